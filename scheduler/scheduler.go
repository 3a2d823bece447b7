package scheduler

import (
	"context"
	"sync"
	"time"
)

const DefaultDelay = 1000 * time.Millisecond

type Trigger string

const (
	TriggerSpeechStop Trigger = "speech_stop"
	TriggerBackup     Trigger = "backup"
	TriggerStop       Trigger = "stop"
)

type Config struct {
	// Delay is the silence window after a speech stop before formatting.
	// The backup timer waits 1.5x Delay.
	Delay time.Duration
	Clock Clock
	// Pass runs one formatting pass.
	Pass func(ctx context.Context, trigger Trigger)
	// HasPending reports whether there is unformatted text.
	HasPending func() bool
	// Recording gates the backup timer.
	Recording func() bool
}

// Scheduler decides when formatting passes run. It holds at most one
// primary and one backup timer; re-arming cancels the previous one and a
// superseded timer that already fired does nothing. Passes never overlap.
type Scheduler struct {
	cfg Config
	ctx context.Context

	mu             sync.Mutex
	primary        Timer
	backup         Timer
	primaryGen     uint64
	backupGen      uint64
	lastTranscript time.Time
	stopped        bool

	passMu sync.Mutex
	passes int
}

func New(cfg Config) *Scheduler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.HasPending == nil {
		cfg.HasPending = func() bool { return true }
	}
	if cfg.Recording == nil {
		cfg.Recording = func() bool { return true }
	}
	return &Scheduler{cfg: cfg, ctx: context.Background()}
}

func (s *Scheduler) SpeechStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPrimary()
}

func (s *Scheduler) SpeechStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.armPrimary()
}

func (s *Scheduler) TranscriptReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.lastTranscript = s.cfg.Clock.Now()
	if s.primary != nil {
		s.armPrimary()
	}
	s.armBackup()
}

// Stop cancels both timers and runs one final pass, waiting for any pass
// already in flight first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	s.cancelPrimary()
	s.cancelBackup()
	s.mu.Unlock()

	s.passMu.Lock()
	defer s.passMu.Unlock()
	if s.cfg.HasPending() {
		s.passes++
		s.cfg.Pass(ctx, TriggerStop)
	}
}

// Passes returns the number of formatting passes run so far.
func (s *Scheduler) Passes() int {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	return s.passes
}

func (s *Scheduler) armPrimary() {
	s.cancelPrimary()
	gen := s.primaryGen
	s.primary = s.cfg.Clock.AfterFunc(s.cfg.Delay, func() { s.firePrimary(gen) })
}

func (s *Scheduler) cancelPrimary() {
	s.primaryGen++
	if s.primary != nil {
		s.primary.Stop()
		s.primary = nil
	}
}

func (s *Scheduler) armBackup() {
	s.cancelBackup()
	gen := s.backupGen
	s.backup = s.cfg.Clock.AfterFunc(s.cfg.Delay*3/2, func() { s.fireBackup(gen) })
}

func (s *Scheduler) cancelBackup() {
	s.backupGen++
	if s.backup != nil {
		s.backup.Stop()
		s.backup = nil
	}
}

func (s *Scheduler) firePrimary(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.primaryGen {
		s.mu.Unlock()
		return
	}
	s.primary = nil
	s.mu.Unlock()
	s.run(TriggerSpeechStop)
}

func (s *Scheduler) fireBackup(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.backupGen {
		s.mu.Unlock()
		return
	}
	s.backup = nil
	quiet := s.cfg.Clock.Now().Sub(s.lastTranscript) >= s.cfg.Delay
	s.mu.Unlock()
	if !quiet || !s.cfg.Recording() {
		return
	}
	s.run(TriggerBackup)
}

func (s *Scheduler) run(trigger Trigger) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped || !s.cfg.HasPending() {
		return
	}
	s.passes++
	s.cfg.Pass(s.ctx, trigger)
}
