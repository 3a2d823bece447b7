//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The OS hotkey API needs the main thread's event loop on macOS.
func main() {
	code := 0
	mainthread.Init(func() { code = run() })
	os.Exit(code)
}
