package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voicenote/session"
	"voicenote/status"
)

// EventSink abstracts the display layer so the terminal UI and the headless
// replay runner receive the same recording events.
type EventSink interface {
	Status(st status.State)
	Notice(msg string)
	Document(text string)
	Stopped(sum session.Summary)
}

type (
	statusMsg   status.State
	noticeMsg   string
	documentMsg string
	stoppedMsg  session.Summary
)

// programSink forwards events into a running Bubble Tea program.
type programSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) Status(st status.State)      { s.send(statusMsg(st)) }
func (s *programSink) Notice(msg string)           { s.send(noticeMsg(msg)) }
func (s *programSink) Document(text string)        { s.send(documentMsg(text)) }
func (s *programSink) Stopped(sum session.Summary) { s.send(stoppedMsg(sum)) }

// lineSink writes one line per event, for replay runs and non-terminals.
// Status lines are only written when the text changes.
type lineSink struct {
	mu       sync.Mutex
	w        io.Writer
	now      func() time.Time
	lastText string
}

func newLineSink(w io.Writer) *lineSink {
	return &lineSink{w: w, now: time.Now}
}

func (s *lineSink) printf(format string, args ...any) {
	fmt.Fprintf(s.w, "%s "+format+"\n", append([]any{s.now().Format("15:04:05")}, args...)...)
}

func (s *lineSink) Status(st status.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Text == s.lastText {
		return
	}
	s.lastText = st.Text
	s.printf("status: %s", st.Text)
}

func (s *lineSink) Notice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printf("notice: %s", msg)
}

// Document is a no-op; the transcript is printed once per recording.
func (s *lineSink) Document(string) {}

func (s *lineSink) Stopped(sum session.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printf("session %s: %d transcripts, %d format passes, %.1fs", sum.ID, sum.Transcripts, sum.Passes, sum.Duration.Seconds())
	if sum.Text != "" {
		for _, line := range strings.Split(sum.Text, "\n") {
			fmt.Fprintf(s.w, "  %s\n", line)
		}
	}
}
