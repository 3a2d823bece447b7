package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	FrameSize           = 4096
	DefaultSendInterval = 150 * time.Millisecond
)

var ErrMicrophoneUnavailable = errors.New("microphone unavailable")

type RecorderConfig struct {
	Device       *DeviceInfo
	Quality      Quality
	SendInterval time.Duration
	FrameSize    int
}

// Recorder captures mono audio, converts it to PCM16 in fixed-size frames
// and hands out base64 chunks no more often than SendInterval.
type Recorder struct {
	ctx Context
	cfg RecorderConfig
	now func() time.Time

	mu        sync.Mutex
	capture   CaptureDevice
	onChunk   func(chunk string)
	recording bool
	frame     []float32
	pending   []int16
	scratch   []int16
	lastSend  time.Time
	frames    uint64
	chunks    int
}

func NewRecorder(ctx Context, cfg RecorderConfig) *Recorder {
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = DefaultSendInterval
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = FrameSize
	}
	if cfg.Quality == "" {
		cfg.Quality = QualityMedium
	}
	return &Recorder{ctx: ctx, cfg: cfg, now: time.Now}
}

func (r *Recorder) SampleRate() uint32 { return r.cfg.Quality.SampleRate() }

// Start opens the microphone and begins delivering chunks to onChunk.
// Errors wrap ErrMicrophoneUnavailable and leave the recorder stopped.
func (r *Recorder) Start(onChunk func(chunk string)) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("recorder already started")
	}
	r.mu.Unlock()

	capture, err := r.ctx.NewCapture(r.cfg.Device, CaptureConfig{
		SampleRate: r.SampleRate(),
		Channels:   1,
		FrameSize:  uint32(r.cfg.FrameSize),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}

	r.mu.Lock()
	r.capture = capture
	r.onChunk = onChunk
	r.recording = true
	r.frame = make([]float32, 0, r.cfg.FrameSize)
	r.pending = r.pending[:0]
	r.lastSend = time.Time{}
	r.frames = 0
	r.chunks = 0
	r.mu.Unlock()

	capture.SetCallback(r.process)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		r.mu.Lock()
		r.capture = nil
		r.onChunk = nil
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	return nil
}

// Stop closes the capture device. Buffered audio that has not been flushed
// is dropped.
func (r *Recorder) Stop() {
	r.mu.Lock()
	capture := r.capture
	r.capture = nil
	r.onChunk = nil
	r.recording = false
	r.frame = nil
	r.pending = r.pending[:0]
	r.mu.Unlock()

	if capture == nil {
		return
	}
	capture.Stop()
	capture.ClearCallback()
	capture.Close()
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stats returns the number of captured frames and sent chunks.
func (r *Recorder) Stats() (frames uint64, chunks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.chunks
}

func (r *Recorder) process(samples []float32) {
	var out []string
	var onChunk func(string)

	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	for len(samples) > 0 {
		n := min(r.cfg.FrameSize-len(r.frame), len(samples))
		r.frame = append(r.frame, samples[:n]...)
		samples = samples[n:]
		if len(r.frame) < r.cfg.FrameSize {
			break
		}

		r.scratch = FloatToPCM16(r.scratch, r.frame)
		r.pending = append(r.pending, r.scratch...)
		r.frame = r.frame[:0]
		r.frames++

		now := r.now()
		if now.Sub(r.lastSend) >= r.cfg.SendInterval {
			out = append(out, EncodePCM16(r.pending))
			r.pending = r.pending[:0]
			r.lastSend = now
			r.chunks++
		}
	}
	onChunk = r.onChunk
	r.mu.Unlock()

	if onChunk == nil {
		return
	}
	for _, chunk := range out {
		onChunk(chunk)
	}
}
