//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

var Signals = []os.Signal{os.Interrupt}

func Notify(ch chan os.Signal) {
	signal.Notify(ch, Signals...)
}
