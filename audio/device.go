package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrSelectionCancelled = errors.New("device selection cancelled")

type pickAction int

const (
	pickMove pickAction = iota
	pickConfirm
	pickCancel
)

// pickKey applies one key read from a raw terminal to the picker cursor.
func pickKey(cursor, n int, key []byte) (int, pickAction) {
	switch {
	case len(key) == 1 && (key[0] == '\r' || key[0] == '\n'):
		return cursor, pickConfirm
	case len(key) == 1 && (key[0] == 3 || key[0] == 'q'):
		return cursor, pickCancel
	case len(key) == 1 && key[0] == 'j',
		len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'B':
		return min(cursor+1, n-1), pickMove
	case len(key) == 1 && key[0] == 'k',
		len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'A':
		return max(cursor-1, 0), pickMove
	}
	return cursor, pickMove
}

func renderPicker(w io.Writer, devices []DeviceInfo, cursor int) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select microphone for dictation (↑/↓ or j/k, Enter to confirm):\r\n\r\n")
	for i, d := range devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[bluetooth: lower transcription quality]\x1b[0m"
		}
		if i == cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, tag)
		}
	}
}

// SelectDevice presents an interactive microphone picker and returns the
// selected device. A single device is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("%w: no capture devices found", ErrMicrophoneUnavailable)
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	out := os.Stdout
	cursor := 0
	renderPicker(out, devices, cursor)

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		var action pickAction
		cursor, action = pickKey(cursor, len(devices), buf[:n])
		switch action {
		case pickConfirm:
			fmt.Fprint(out, "\r\n")
			return &devices[cursor], nil
		case pickCancel:
			fmt.Fprint(out, "\r\n")
			return nil, ErrSelectionCancelled
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		renderPicker(out, devices, cursor)
	}
}

// FindDevice returns the capture device with the given name, or nil when
// the name is empty.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}
