// Package beep plays the short audible cues for recording start, stop and
// failure.
package beep

import (
	"math"
	"sync/atomic"
)

const sampleRate = 44100

type Cue int

const (
	Start Cue = iota
	Stop
	Failure
)

type tone struct {
	freq     float64
	duration float64 // seconds per tick
	volume   float64
	decay    float64
	repeat   int
	gap      float64 // seconds of silence between ticks
}

var tones = map[Cue]tone{
	Start:   {freq: 1200, duration: 0.03, volume: 0.5, decay: 60, repeat: 1},
	Stop:    {freq: 900, duration: 0.05, volume: 0.5, decay: 40, repeat: 1},
	Failure: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: 2, gap: 0.05},
}

var disabled atomic.Bool

// Disable silences every cue, for headless and replay runs.
func Disable() { disabled.Store(true) }

// Play starts the cue and returns without waiting for it to finish.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	t, ok := tones[c]
	if !ok {
		return
	}
	play(c, t)
}

// render returns mono samples for t. minDuration pads each tick with its own
// decaying tail, for backends that need a filled buffer before output starts.
func render(t tone, minDuration float64) []int16 {
	tickLen := int(math.Round(sampleRate * max(t.duration, minDuration)))
	gapLen := int(math.Round(sampleRate * t.gap))
	out := make([]int16, 0, t.repeat*tickLen+(t.repeat-1)*gapLen)
	for r := range t.repeat {
		if r > 0 {
			out = append(out, make([]int16, gapLen)...)
		}
		for i := range tickLen {
			sec := float64(i) / sampleRate
			env := math.Exp(-sec * t.decay)
			out = append(out, int16(math.Sin(2*math.Pi*t.freq*sec)*32767*t.volume*env))
		}
	}
	return out
}
