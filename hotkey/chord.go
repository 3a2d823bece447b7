package hotkey

import "encoding/binary"

// Linux input_event layout on 64-bit: timeval (16 bytes), type, code, value.
const inputEventSize = 24

const (
	evKey = 1

	keyRelease = 0
	keyPress   = 1

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

type inputEvent struct {
	typ   uint16
	code  uint16
	value int32
}

func decodeEvent(b []byte) inputEvent {
	return inputEvent{
		typ:   binary.LittleEndian.Uint16(b[16:]),
		code:  binary.LittleEndian.Uint16(b[18:]),
		value: int32(binary.LittleEndian.Uint32(b[20:])),
	}
}

type edge int

const (
	edgeNone edge = iota
	edgeDown
	edgeUp
)

// chordState tracks ctrl+shift+space across key events from one device.
// Autorepeat (value 2) leaves the state unchanged.
type chordState struct {
	ctrl, shift, space bool
}

func (c *chordState) feed(ev inputEvent) edge {
	if ev.typ != evKey {
		return edgeNone
	}
	pressed := ev.value == keyPress
	released := ev.value == keyRelease

	switch ev.code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keySpace:
		if pressed && !c.space && c.ctrl && c.shift {
			c.space = true
			return edgeDown
		}
		if released && c.space {
			c.space = false
			return edgeUp
		}
	}
	return edgeNone
}
