package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"voicenote/log"
)

// File is a markdown note on disk. Edits apply to an in-memory copy and are
// written through after every mutation. The cursor starts at the end of the
// existing content.
type File struct {
	*Memory
	path string

	mu      sync.Mutex
	lastErr error
}

func OpenFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("create note directory: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read note: %w", err)
	}
	return &File{Memory: NewMemory(string(data)), path: abs}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Insert(offset int, text string) error {
	return f.Replace(offset, offset, text)
}

// Replace edits the note and writes it through. A failed write is logged
// and kept for Err; the in-memory edit still stands.
func (f *File) Replace(from, to int, text string) error {
	if err := f.Memory.Replace(from, to, text); err != nil {
		return err
	}
	if err := f.Flush(); err != nil {
		log.Warnf("note write failed: %v", err)
	}
	return nil
}

// Flush writes the current text to disk via a temp file and rename.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".voicenote-*.md")
	if err != nil {
		f.lastErr = err
		return err
	}
	if _, err := tmp.WriteString(f.Memory.Text()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		f.lastErr = err
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		f.lastErr = err
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		f.lastErr = err
		return err
	}
	f.lastErr = nil
	return nil
}

// Err returns the error from the most recent write, if any.
func (f *File) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
