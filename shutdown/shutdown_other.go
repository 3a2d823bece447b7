//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Signals that end the process cleanly. SIGHUP is included so closing the
// terminal still flushes the note being recorded.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func Notify(ch chan os.Signal) {
	signal.Notify(ch, Signals...)
}
