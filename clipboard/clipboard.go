package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnavailable means no clipboard utility (xclip, xsel, wl-copy) was found.
var ErrUnavailable = errors.New("clipboard: no clipboard utility available")

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnavailable
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}
