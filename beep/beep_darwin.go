//go:build darwin

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"voicenote/log"
)

// player keeps one playback device open and swaps the buffer it drains.
type player struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	buf    atomic.Pointer[[]byte]
	pos    atomic.Uint32
}

var (
	out     player
	outOnce sync.Once
	outErr  error
	pcm     = map[Cue][]byte{}
)

func (p *player) open() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	p.ctx = ctx
	if err := p.initDevice(); err != nil {
		ctx.Uninit()
		p.ctx = nil
		return err
	}
	return nil
}

func (p *player) initDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate
	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *player) fill(output, _ []byte, frames uint32) {
	clear(output)
	b := p.buf.Load()
	if b == nil {
		return
	}
	pos := p.pos.Load()
	n := copy(output[:frames*2], (*b)[pos:])
	p.pos.Store(pos + uint32(n))
	if int(pos)+n >= len(*b) {
		p.buf.Store(nil)
	}
}

func (p *player) play(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device.Stop()
	p.pos.Store(0)
	p.buf.Store(&b)
	if err := p.device.Start(); err == nil {
		return nil
	}
	// The device goes stale across sleep and wake.
	p.device.Uninit()
	if err := p.initDevice(); err != nil {
		p.buf.Store(nil)
		return err
	}
	return p.device.Start()
}

func play(c Cue, t tone) {
	outOnce.Do(func() { outErr = out.open() })
	if outErr != nil {
		return
	}
	out.mu.Lock()
	b, ok := pcm[c]
	if !ok {
		mono := render(t, 0)
		b = make([]byte, len(mono)*2)
		for i, v := range mono {
			b[i*2] = byte(v)
			b[i*2+1] = byte(v >> 8)
		}
		pcm[c] = b
	}
	out.mu.Unlock()
	if err := out.play(b); err != nil {
		log.Warnf("cue playback: %v", err)
	}
}
