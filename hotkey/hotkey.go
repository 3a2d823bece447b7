package hotkey

// Chord is the global shortcut that toggles recording.
const Chord = "ctrl+shift+space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// signal delivers without blocking; a press nobody is waiting for is dropped.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
