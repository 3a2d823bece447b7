package editor

import (
	"fmt"
	"sync"
	"unicode/utf8"
)

// Document is an editable text with a single insertion cursor. All offsets
// are rune offsets.
type Document interface {
	Cursor() int
	SetCursor(offset int)
	Insert(offset int, text string) error
	Replace(from, to int, text string) error
	Text() string
}

// Memory is an in-memory Document. It is safe for concurrent use so that a
// renderer can read it while a sink writes it.
type Memory struct {
	mu       sync.RWMutex
	text     []rune
	cursor   int
	onChange func()
}

func NewMemory(initial string) *Memory {
	text := []rune(initial)
	return &Memory{text: text, cursor: len(text)}
}

// OnChange registers fn to run after every mutation, outside the lock.
func (m *Memory) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Memory) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.text)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.text)
}

func (m *Memory) Cursor() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}

func (m *Memory) SetCursor(offset int) {
	m.mu.Lock()
	m.cursor = max(0, min(offset, len(m.text)))
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Memory) Insert(offset int, text string) error {
	return m.Replace(offset, offset, text)
}

// Replace swaps [from, to) for text. A cursor at or past to moves with the
// end of the span; a cursor inside the span lands after the new text.
func (m *Memory) Replace(from, to int, text string) error {
	m.mu.Lock()
	if from < 0 || to < from || to > len(m.text) {
		n := len(m.text)
		m.mu.Unlock()
		return fmt.Errorf("replace [%d,%d) out of range for length %d", from, to, n)
	}

	ins := []rune(text)
	next := make([]rune, 0, len(m.text)-(to-from)+len(ins))
	next = append(next, m.text[:from]...)
	next = append(next, ins...)
	next = append(next, m.text[to:]...)
	m.text = next

	delta := len(ins) - (to - from)
	switch {
	case from == to && m.cursor > from, from < to && m.cursor >= to:
		m.cursor += delta
	case m.cursor > from:
		m.cursor = from + len(ins)
	}
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
