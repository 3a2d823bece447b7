package status

import (
	"fmt"
	"sync"
)

type Phase int

const (
	Idle Phase = iota
	Listening
	Transcribing
	Formatting
)

func (p Phase) String() string {
	switch p {
	case Listening:
		return "listening"
	case Transcribing:
		return "transcribing"
	case Formatting:
		return "formatting"
	default:
		return "idle"
	}
}

const StartHint = "Press ctrl+shift+space to start recording"

type State struct {
	Phase     Phase
	Recording bool
	Seconds   int
	Text      string
}

// Output receives every state change.
type Output func(State)

// Presenter tracks the recording phase and elapsed time. The phase only
// moves in response to the named events below.
type Presenter struct {
	out  Output
	hint string

	mu        sync.Mutex
	phase     Phase
	recording bool
	seconds   int
}

func NewPresenter(out Output) *Presenter {
	return &Presenter{out: out, hint: StartHint}
}

// SetHint overrides the idle text shown while not recording.
func (p *Presenter) SetHint(hint string) {
	p.update(func() { p.hint = hint })
}

func (p *Presenter) RecordingStarted() {
	p.update(func() {
		p.recording = true
		p.phase = Listening
		p.seconds = 0
	})
}

func (p *Presenter) RecordingStopped() {
	p.update(func() {
		p.recording = false
		p.phase = Idle
		p.seconds = 0
	})
}

func (p *Presenter) SpeechStarted() { p.update(func() { p.phase = Listening }) }

func (p *Presenter) SpeechStopped() { p.update(func() { p.phase = Transcribing }) }

func (p *Presenter) FormatStarted() { p.update(func() { p.phase = Formatting }) }

// FormatFinished returns to listening while a recording is active and leaves
// the phase alone otherwise.
func (p *Presenter) FormatFinished() {
	p.update(func() {
		if p.recording {
			p.phase = Listening
		}
	})
}

// Tick adds one second to the elapsed recording time.
func (p *Presenter) Tick() {
	p.update(func() {
		if p.recording {
			p.seconds++
		}
	})
}

func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Presenter) Text() string { return p.State().Text }

func (p *Presenter) update(fn func()) {
	p.mu.Lock()
	fn()
	st := p.stateLocked()
	p.mu.Unlock()
	if p.out != nil {
		p.out(st)
	}
}

func (p *Presenter) stateLocked() State {
	return State{
		Phase:     p.phase,
		Recording: p.recording,
		Seconds:   p.seconds,
		Text:      render(p.phase, p.recording, p.seconds, p.hint),
	}
}

func render(phase Phase, recording bool, seconds int, hint string) string {
	suffix := ""
	if seconds > 0 {
		suffix = fmt.Sprintf(" (%ds)", seconds)
	}
	switch phase {
	case Listening:
		return "Listening" + suffix + "..."
	case Transcribing:
		return "Transcribing" + suffix + "..."
	case Formatting:
		return "Formatting" + suffix + "..."
	}
	if recording {
		return "Initializing..."
	}
	return hint
}
