package hotkey

import (
	"context"
	"fmt"
)

// Bind registers hk and calls fn once per press until ctx is done, then
// unregisters. fn runs on the binding goroutine, so presses that arrive while
// it is busy collapse into one.
func Bind(ctx context.Context, hk Hotkey, fn func()) (<-chan struct{}, error) {
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %s: %w", Chord, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer hk.Unregister()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				fn()
			case <-hk.Keyup():
			}
		}
	}()
	return done, nil
}
