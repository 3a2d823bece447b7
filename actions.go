package main

import (
	"sort"
	"sync"
)

// actionSet is the command registry the TUI and the global shortcut both
// dispatch through.
type actionSet struct {
	mu      sync.Mutex
	actions map[string]func()
}

func newActionSet() *actionSet {
	return &actionSet{actions: map[string]func(){}}
}

func (a *actionSet) Register(name string, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[name] = fn
}

func (a *actionSet) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.actions, name)
}

// Run invokes the named action and reports whether it exists.
func (a *actionSet) Run(name string) bool {
	a.mu.Lock()
	fn, ok := a.actions[name]
	a.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func (a *actionSet) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.actions))
	for n := range a.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
