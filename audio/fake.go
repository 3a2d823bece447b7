package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const fakeFrameSize = 1024

// FakeContext replays prerecorded mono samples instead of a microphone.
type FakeContext struct {
	samples    []float32
	sampleRate uint32
	realtime   bool

	// CaptureErr and StartErr simulate a missing or denied microphone.
	CaptureErr error
	StartErr   error
}

// NewFakeContext loads a 16-bit mono WAV file. In realtime mode samples are
// paced at the WAV's sample rate, otherwise they are delivered on Start.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("invalid WAV file: %s", wavPath)
	}
	rate := uint32(data[24]) | uint32(data[25])<<8 | uint32(data[26])<<16 | uint32(data[27])<<24
	return &FakeContext{
		samples:    PCM16ToFloat(data[WAVHeaderSize:]),
		sampleRate: rate,
		realtime:   realtime,
	}, nil
}

func NewFakeContextSamples(samples []float32) *FakeContext {
	return &FakeContext{samples: samples}
}

// SampleRate reports the WAV sample rate, or 0 for sample-backed fakes.
func (f *FakeContext) SampleRate() uint32 { return f.sampleRate }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	rate := config.SampleRate
	if f.sampleRate != 0 {
		rate = f.sampleRate
	}
	return &FakeCapture{
		samples:    f.samples,
		sampleRate: rate,
		realtime:   f.realtime,
		startErr:   f.StartErr,
		audioDone:  make(chan struct{}),
	}, nil
}

type FakeCapture struct {
	samples    []float32
	sampleRate uint32
	realtime   bool
	startErr   error
	audioDone  chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	started  bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once every prerecorded sample has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Feed delivers samples to the current callback synchronously.
func (f *FakeCapture) Feed(samples []float32) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

func (f *FakeCapture) feedFrame(pos int) int {
	end := min(pos+fakeFrameSize, len(f.samples))
	frame := make([]float32, end-pos)
	copy(frame, f.samples[pos:end])
	f.Feed(frame)
	return end
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.started = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	if !f.realtime || f.sampleRate == 0 {
		for pos := 0; pos < len(f.samples); {
			pos = f.feedFrame(pos)
		}
		close(f.audioDone)
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]float32, fakeFrameSize)
		audioFinished := false
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if pos < len(f.samples) {
				pos = f.feedFrame(pos)
			} else {
				if !audioFinished {
					audioFinished = true
					close(f.audioDone)
				}
				f.Feed(silence)
			}

			select {
			case <-f.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.started = false
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
