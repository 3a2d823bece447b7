// Package doctor runs the non-interactive setup checks behind
// `voicenote doctor`.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"voicenote/audio"
	"voicenote/realtime"
)

// ErrSkip marks a check that could not run; it does not fail the report.
var ErrSkip = errors.New("skipped")

type Check struct {
	Name string
	// Required checks stop the run when they fail; later checks depend on them.
	Required bool
	Run      func(ctx context.Context) (detail string, err error)
}

// Run executes checks in order and returns an exit code (0 = all pass, 1 = any fail).
func Run(ctx context.Context, checks []Check, out io.Writer) int {
	fmt.Fprintln(out, "voicenote doctor - system diagnostics")
	fmt.Fprintln(out, "=====================================")

	failed := false
	for i, c := range checks {
		fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		if failed && c.Required {
			fmt.Fprintln(out, "  SKIP: an earlier check failed")
			continue
		}
		detail, err := c.Run(ctx)
		switch {
		case errors.Is(err, ErrSkip):
			fmt.Fprintf(out, "  SKIP: %v\n", err)
		case err != nil:
			fmt.Fprintf(out, "  FAIL: %v\n", err)
			failed = true
		default:
			fmt.Fprintf(out, "  PASS: %s\n", detail)
		}
	}

	fmt.Fprintln(out)
	if failed {
		fmt.Fprintln(out, "Some checks failed. See details above.")
		return 1
	}
	fmt.Fprintln(out, "All checks passed!")
	return 0
}

func APIKey(key string) Check {
	return Check{Name: "OpenAI API key", Required: true, Run: func(context.Context) (string, error) {
		if key == "" {
			return "", errors.New("not set (run: voicenote config set key <key>, or export OPENAI_API_KEY)")
		}
		return "configured", nil
	}}
}

func Hotkey(diagnose func() (string, error)) Check {
	return Check{Name: "Global shortcut", Run: func(context.Context) (string, error) {
		return diagnose()
	}}
}

// Microphone records for d and expects at least one audio chunk.
func Microphone(actx audio.Context, dev *audio.DeviceInfo, q audio.Quality, d time.Duration) Check {
	return Check{Name: "Microphone", Required: true, Run: func(ctx context.Context) (string, error) {
		rec := audio.NewRecorder(actx, audio.RecorderConfig{Device: dev, Quality: q})
		var mu sync.Mutex
		var bytes int
		if err := rec.Start(func(chunk string) {
			mu.Lock()
			bytes += len(chunk)
			mu.Unlock()
		}); err != nil {
			return "", err
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		rec.Stop()

		frames, chunks := rec.Stats()
		if chunks == 0 {
			return "", fmt.Errorf("no audio captured in %v (%d frames)", d, frames)
		}
		mu.Lock()
		defer mu.Unlock()
		return fmt.Sprintf("%d chunks (%.1f KB base64) at %d Hz", chunks, float64(bytes)/1024, q.SampleRate()), nil
	}}
}

// Realtime opens the transcription socket and waits for the server to
// reject it. Silence for the whole wait counts as accepted.
func Realtime(cfg realtime.Config, wait time.Duration) Check {
	return Check{Name: "Realtime transcription socket", Required: true, Run: func(ctx context.Context) (string, error) {
		errCh := make(chan string, 1)
		report := func(msg string) {
			select {
			case errCh <- msg:
			default:
			}
		}
		c := realtime.NewClient(cfg, realtime.Callbacks{
			OnError: report,
			OnClose: func() { report("connection closed by server") },
		})
		if err := c.Connect(ctx); err != nil {
			return "", err
		}
		defer c.Close()

		select {
		case msg := <-errCh:
			return "", errors.New(msg)
		case <-time.After(wait):
			return "session accepted", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
}

type Formatter interface {
	TryFormat(ctx context.Context, raw string) (string, error)
}

func Formatting(f Formatter) Check {
	return Check{Name: "Formatting model", Required: true, Run: func(ctx context.Context) (string, error) {
		out, err := f.TryFormat(ctx, "hello world this is a test")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%q", strings.TrimSpace(out)), nil
	}}
}

// Clipboard only matters for -copy, so a missing utility is a skip.
func Clipboard(read func() (string, error), unavailable error) Check {
	return Check{Name: "Clipboard", Run: func(context.Context) (string, error) {
		if _, err := read(); err != nil {
			if errors.Is(err, unavailable) {
				return "", fmt.Errorf("%w: %v", ErrSkip, err)
			}
			return "", err
		}
		return "readable", nil
	}}
}
