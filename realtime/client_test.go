package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

type serverConn struct {
	conn     *websocket.Conn
	protocol string
	query    string
	received chan map[string]any
}

func newTestServer(t *testing.T, serve func(ctx context.Context, sc *serverConn)) (string, chan *serverConn) {
	t.Helper()
	conns := make(chan *serverConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{"realtime"}})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		sc := &serverConn{
			conn:     conn,
			protocol: r.Header.Get("Sec-WebSocket-Protocol"),
			query:    r.URL.RawQuery,
			received: make(chan map[string]any, 16),
		}
		conns <- sc
		serve(r.Context(), sc)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

// readLoop forwards every client message until the connection ends.
func readLoop(ctx context.Context, sc *serverConn) {
	for {
		_, data, err := sc.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg map[string]any
		if json.Unmarshal(data, &msg) == nil {
			sc.received <- msg
		}
	}
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestConnectSendsSessionUpdateFirst(t *testing.T) {
	url, conns := newTestServer(t, readLoop)

	c := NewClient(Config{APIKey: "sk-test", URL: url}, Callbacks{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sc := waitFor(t, conns, "connection")
	for _, want := range []string{"realtime", "openai-insecure-api-key.sk-test", "openai-beta.realtime-v1"} {
		if !strings.Contains(sc.protocol, want) {
			t.Errorf("subprotocols %q missing %q", sc.protocol, want)
		}
	}
	if !strings.Contains(sc.query, "model="+DefaultModel) {
		t.Errorf("query = %q, want model %s", sc.query, DefaultModel)
	}

	msg := waitFor(t, sc.received, "session.update")
	if msg["type"] != "session.update" {
		t.Fatalf("first message type = %v, want session.update", msg["type"])
	}
	session := msg["session"].(map[string]any)
	if session["input_audio_format"] != "pcm16" {
		t.Errorf("input_audio_format = %v", session["input_audio_format"])
	}
	td := session["turn_detection"].(map[string]any)
	if td["type"] != "server_vad" || td["threshold"] != 0.3 || td["silence_duration_ms"] != float64(500) {
		t.Errorf("turn_detection = %v", td)
	}
	if td["create_response"] != false {
		t.Errorf("create_response = %v, want false", td["create_response"])
	}
	tr := session["input_audio_transcription"].(map[string]any)
	if tr["model"] != DefaultTranscriptionModel {
		t.Errorf("transcription model = %v", tr["model"])
	}
}

func TestSendAudio(t *testing.T) {
	url, conns := newTestServer(t, readLoop)

	c := NewClient(Config{APIKey: "k", URL: url}, Callbacks{})
	c.SendAudio("ignored-before-connect")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sc := waitFor(t, conns, "connection")
	waitFor(t, sc.received, "session.update")

	c.SendAudio("AAAA")
	c.SendAudio("")
	msg := waitFor(t, sc.received, "audio append")
	if msg["type"] != "input_audio_buffer.append" || msg["audio"] != "AAAA" {
		t.Errorf("got %v", msg)
	}

	deadline := time.Now().Add(time.Second)
	for c.Stats().ChunksSent < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Stats().ChunksSent; got != 1 {
		t.Errorf("ChunksSent = %d, want 1", got)
	}
}

func TestServerEventsReachCallbacks(t *testing.T) {
	url, _ := newTestServer(t, func(ctx context.Context, sc *serverConn) {
		for _, m := range []string{
			`{"type":"input_audio_buffer.speech_started"}`,
			`{"type":"input_audio_buffer.speech_stopped"}`,
			`{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello world"}`,
		} {
			if err := sc.conn.Write(ctx, websocket.MessageText, []byte(m)); err != nil {
				return
			}
		}
		readLoop(ctx, sc)
	})

	started := make(chan struct{}, 1)
	stopped := make(chan struct{}, 1)
	texts := make(chan string, 1)
	c := NewClient(Config{APIKey: "k", URL: url}, Callbacks{
		OnSpeechStarted: func() { started <- struct{}{} },
		OnSpeechStopped: func() { stopped <- struct{}{} },
		OnTranscript:    func(text string) { texts <- text },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	waitFor(t, started, "speech started")
	waitFor(t, stopped, "speech stopped")
	if got := waitFor(t, texts, "transcript"); got != "hello world " {
		t.Errorf("transcript = %q, want %q", got, "hello world ")
	}
}

func TestServerCloseInvokesOnClose(t *testing.T) {
	url, _ := newTestServer(t, func(ctx context.Context, sc *serverConn) {
		sc.conn.Close(websocket.StatusNormalClosure, "bye")
	})

	closed := make(chan struct{}, 1)
	c := NewClient(Config{APIKey: "k", URL: url}, Callbacks{
		OnClose: func() { closed <- struct{}{} },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, closed, "OnClose")
	waitFor(t, c.Done(), "Done")
	if c.Connected() {
		t.Error("client still reports connected")
	}
	c.SendAudio("AAAA")
	if err := c.Close(); err != nil {
		t.Errorf("Close after server close: %v", err)
	}
}

func TestCallerCloseSkipsOnClose(t *testing.T) {
	serverDone := make(chan struct{})
	url, _ := newTestServer(t, func(ctx context.Context, sc *serverConn) {
		readLoop(ctx, sc)
		close(serverDone)
	})

	closed := make(chan struct{}, 1)
	c := NewClient(Config{APIKey: "k", URL: url}, Callbacks{
		OnClose: func() { closed <- struct{}{} },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Close()

	waitFor(t, serverDone, "server to observe close")
	select {
	case <-closed:
		t.Error("OnClose called for caller-initiated close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectErrors(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1"}, Callbacks{})
	if err := c.Connect(context.Background()); err == nil {
		t.Error("expected error without API key")
	}

	c = NewClient(Config{APIKey: "k", URL: "ws://127.0.0.1:1"}, Callbacks{})
	if err := c.Connect(context.Background()); err == nil {
		t.Error("expected dial error")
	}
	if c.Connected() {
		t.Error("failed client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on failed client: %v", err)
	}
}

func TestConnectTwice(t *testing.T) {
	url, _ := newTestServer(t, readLoop)
	c := NewClient(Config{APIKey: "k", URL: url}, Callbacks{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Connect(context.Background()); err == nil {
		t.Error("second Connect should fail")
	}
}
