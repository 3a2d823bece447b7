package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"voicenote/audio"
	"voicenote/hotkey"
	"voicenote/log"
)

// defaultReplayScript records the whole file, leaves time for the last
// transcripts and the format pass, then stops.
const defaultReplayScript = `TOGGLE
WAIT_AUDIO_DONE
SLEEP 3000
TOGGLE
QUIT
`

const replayWait = 30 * time.Second

// replayContext hands out WAV-backed captures and remembers them so the
// script can wait for the audio to run out.
type replayContext struct {
	*audio.FakeContext
	captures chan *audio.FakeCapture
}

func newReplayContext(fc *audio.FakeContext) *replayContext {
	return &replayContext{FakeContext: fc, captures: make(chan *audio.FakeCapture, 4)}
}

func (r *replayContext) NewCapture(dev *audio.DeviceInfo, cfg audio.CaptureConfig) (audio.CaptureDevice, error) {
	c, err := r.FakeContext.NewCapture(dev, cfg)
	if err != nil {
		return nil, err
	}
	if fc, ok := c.(*audio.FakeCapture); ok {
		select {
		case r.captures <- fc:
		default:
		}
	}
	return c, nil
}

// replayDriver runs a line-based script against the fake shortcut:
//
//	TOGGLE           press the recording shortcut
//	WAIT_AUDIO_DONE  wait until the next capture has played the whole file
//	SLEEP <ms>       pause
//	QUIT             stop reading
type replayDriver struct {
	hk    *hotkey.FakeHotkey
	ctx   *replayContext
	wait  time.Duration
	sleep func(time.Duration)
}

func newReplayDriver(hk *hotkey.FakeHotkey, ctx *replayContext) *replayDriver {
	return &replayDriver{hk: hk, ctx: ctx, wait: replayWait, sleep: time.Sleep}
}

func (d *replayDriver) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		log.Infof("replay: %s", cmd)

		switch {
		case cmd == "QUIT":
			return nil
		case cmd == "TOGGLE":
			d.hk.Press()
		case cmd == "WAIT_AUDIO_DONE":
			if err := d.waitAudioDone(); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(cmd[len("SLEEP "):]))
			if err != nil || ms < 0 {
				return fmt.Errorf("line %d: bad duration in %q", line, cmd)
			}
			d.sleep(time.Duration(ms) * time.Millisecond)
		default:
			return fmt.Errorf("line %d: unknown command %q", line, cmd)
		}
	}
	return scanner.Err()
}

func (d *replayDriver) waitAudioDone() error {
	timeout := time.NewTimer(d.wait)
	defer timeout.Stop()

	var capture *audio.FakeCapture
	select {
	case capture = <-d.ctx.captures:
	case <-timeout.C:
		return errors.New("no capture started")
	}
	select {
	case <-capture.AudioDone():
		return nil
	case <-timeout.C:
		return errors.New("audio did not finish")
	}
}

// replayQuality picks the tier whose rate matches the WAV, so the fake
// capture and the declared stream format agree.
func replayQuality(rate uint32, fallback audio.Quality) audio.Quality {
	for _, q := range []audio.Quality{audio.QualityHigh, audio.QualityMedium, audio.QualityLow} {
		if q.SampleRate() == rate {
			return q
		}
	}
	log.Warnf("replay: WAV rate %d Hz matches no quality tier, using %s", rate, fallback)
	return fallback
}
