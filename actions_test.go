package main

import (
	"slices"
	"testing"
)

func TestActionSet(t *testing.T) {
	a := newActionSet()
	calls := 0
	a.Register("toggle-recording", func() { calls++ })
	a.Register("copy-note", func() {})

	if !a.Run("toggle-recording") || calls != 1 {
		t.Fatalf("Run toggle: calls = %d", calls)
	}
	if a.Run("missing") {
		t.Error("Run reported an unknown action")
	}
	if got := a.Names(); !slices.Equal(got, []string{"copy-note", "toggle-recording"}) {
		t.Errorf("Names = %v", got)
	}

	a.Unregister("toggle-recording")
	if a.Run("toggle-recording") || calls != 1 {
		t.Error("action ran after Unregister")
	}
}

// Actions may unregister themselves while running.
func TestActionSetReentrant(t *testing.T) {
	a := newActionSet()
	a.Register("once", func() { a.Unregister("once") })
	a.Run("once")
	if a.Run("once") {
		t.Error("action still registered")
	}
}
