package editor

import (
	"context"
	"strings"
	"sync"
)

// FormatFunc turns pending raw transcript into its formatted replacement.
type FormatFunc func(ctx context.Context, pending string) (string, error)

// Sink tracks the raw transcript of one recording and writes it into the
// active document. Everything before the formatted offset has already been
// replaced by formatted text; the rest is pending.
type Sink struct {
	active func() Document

	mu     sync.Mutex
	buf    []rune
	offset int
	gen    int
}

// NewSink returns a sink writing to whatever active returns. active may
// return nil when no document is open.
func NewSink(active func() Document) *Sink {
	if active == nil {
		active = func() Document { return nil }
	}
	return &Sink{active: active}
}

// AppendText buffers text and inserts it at the document cursor, moving the
// cursor past it. Without an active document the text is only buffered.
func (s *Sink) AppendText(text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, []rune(text)...)
	doc := s.active()
	if doc == nil {
		return nil
	}
	cursor := doc.Cursor()
	if err := doc.Insert(cursor, text); err != nil {
		return err
	}
	doc.SetCursor(cursor + runeLen(text))
	return nil
}

// FormatPending replaces the pending span of the document with fn's result.
// The span is the pending text's length ending at the cursor as it was when
// the pass began. fn runs without the lock held. If fn fails, nothing
// changes and its error is returned.
func (s *Sink) FormatPending(ctx context.Context, fn FormatFunc) error {
	s.mu.Lock()
	pending := string(s.buf[s.offset:])
	end := len(s.buf)
	gen := s.gen
	if strings.TrimSpace(pending) == "" {
		s.mu.Unlock()
		return nil
	}
	doc := s.active()
	if doc == nil {
		s.mu.Unlock()
		return nil
	}
	cursor := doc.Cursor()
	s.mu.Unlock()

	formatted, err := fn(ctx, pending)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	from := max(cursor-runeLen(pending), 0)
	if err := doc.Replace(from, cursor, formatted); err != nil {
		return err
	}
	// A Reset during the pass still gets the document edit, but the new
	// buffer's offset is left alone.
	if gen == s.gen {
		s.offset = end
	}
	return nil
}

// Reset clears the buffer and the formatted offset.
func (s *Sink) Reset() {
	s.mu.Lock()
	s.buf = nil
	s.offset = 0
	s.gen++
	s.mu.Unlock()
}

// HasUnformattedText reports whether the pending suffix holds anything other
// than whitespace.
func (s *Sink) HasUnformattedText() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(string(s.buf[s.offset:])) != ""
}

func (s *Sink) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

func (s *Sink) FormattedOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}
