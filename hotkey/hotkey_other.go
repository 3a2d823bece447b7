//go:build !linux

package hotkey

import (
	"sync"

	"golang.design/x/hotkey"
)

// systemHotkey uses the OS hotkey API. On macOS it needs the main thread
// event loop, which main provides through mainthread.Init.
type systemHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func New() Hotkey {
	return &systemHotkey{
		hk:      hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *systemHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward()
	return nil
}

func (h *systemHotkey) forward() {
	for {
		select {
		case <-h.stop:
			return
		case <-h.hk.Keydown():
			signal(h.keydown)
		case <-h.hk.Keyup():
			signal(h.keyup)
		}
	}
}

func (h *systemHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
	})
}

func (h *systemHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *systemHotkey) Keyup() <-chan struct{}   { return h.keyup }

func Diagnose() (string, error) {
	return "hotkey support available (" + Chord + ")", nil
}
