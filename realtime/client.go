package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"voicenote/log"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	readLimit   = 1 << 20
	sendBacklog = 64
	dialTimeout = 15 * time.Second
)

type connState int32

const (
	stateIdle connState = iota
	stateConnecting
	stateOpen
	stateClosed
)

type Stats struct {
	ChunksSent int
	BytesSent  uint64
	Deduped    int
	Suppressed int
}

// Client owns one realtime transcription socket. Outgoing messages are
// queued to a single sender goroutine; incoming messages are dispatched on
// a single reader goroutine, so callbacks never run concurrently with each
// other.
type Client struct {
	cfg Config
	cb  Callbacks
	d   *dispatcher

	state   atomic.Int32
	closing atomic.Bool

	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	sendCh chan []byte
	done   chan struct{}

	closeOnce sync.Once

	mu    sync.Mutex
	stats Stats
}

func NewClient(cfg Config, cb Callbacks) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		cb:     cb,
		d:      &dispatcher{cb: cb},
		sendCh: make(chan []byte, sendBacklog),
		done:   make(chan struct{}),
	}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.cfg.Model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens the socket, sends the session configuration and starts the
// reader and sender. It fails if the client was already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("realtime: missing API key")
	}
	if !c.state.CompareAndSwap(int32(stateIdle), int32(stateConnecting)) {
		return errors.New("realtime: client already used")
	}

	endpoint, err := c.endpoint()
	if err != nil {
		c.state.Store(int32(stateClosed))
		return err
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()
	conn, _, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{
		Subprotocols: []string{
			"realtime",
			"openai-insecure-api-key." + c.cfg.APIKey,
			"openai-beta.realtime-v1",
		},
	})
	if err != nil {
		c.state.Store(int32(stateClosed))
		return fmt.Errorf("realtime dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.conn = conn

	if err := wsjson.Write(c.ctx, conn, newSessionUpdate(c.cfg)); err != nil {
		c.cancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		c.state.Store(int32(stateClosed))
		return fmt.Errorf("realtime session update: %w", err)
	}

	c.state.Store(int32(stateOpen))
	go c.runSender()
	go c.runReceiver()
	return nil
}

func (c *Client) Connected() bool {
	return connState(c.state.Load()) == stateOpen
}

// Done is closed once the reader exits, whichever side closed the socket.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendAudio queues one base64 PCM16 chunk. It is a no-op unless the socket
// is open.
func (c *Client) SendAudio(chunk string) {
	if !c.Connected() || chunk == "" {
		return
	}
	msg, err := json.Marshal(audioAppend{Type: "input_audio_buffer.append", Audio: chunk})
	if err != nil {
		return
	}
	select {
	case c.sendCh <- msg:
	case <-c.ctx.Done():
	}
}

// Close shuts the socket down from our side. OnClose is not invoked for a
// caller-initiated close.
func (c *Client) Close() error {
	c.closing.Store(true)
	if connState(c.state.Load()) != stateOpen {
		c.state.Store(int32(stateClosed))
		return nil
	}
	c.state.Store(int32(stateClosed))

	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "")
		c.cancel()
	})
	<-c.done
	return err
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()
	s.Deduped = int(c.d.deduped.Load())
	s.Suppressed = int(c.d.suppressed.Load())
	return s
}

func (c *Client) runSender() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.sendCh:
			if err := c.conn.Write(c.ctx, websocket.MessageText, msg); err != nil {
				if c.ctx.Err() == nil {
					log.Warnf("realtime send failed: %v", err)
				}
				return
			}
			c.mu.Lock()
			c.stats.ChunksSent++
			c.stats.BytesSent += uint64(len(msg))
			c.mu.Unlock()
		}
	}
}

func (c *Client) runReceiver() {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.handleReadError(err)
			return
		}
		if err := c.d.handle(data); err != nil {
			log.Warnf("realtime: bad server message: %v", err)
		}
	}
}

func (c *Client) handleReadError(err error) {
	c.state.Store(int32(stateClosed))
	if c.closing.Load() {
		return
	}
	c.closeOnce.Do(func() { c.cancel() })

	if status := websocket.CloseStatus(err); status == -1 {
		log.Warnf("realtime connection error: %v", err)
		if c.cb.OnError != nil {
			c.cb.OnError("WebSocket error occurred")
		}
	} else {
		log.Infof("realtime socket closed by server: status=%d", status)
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}
