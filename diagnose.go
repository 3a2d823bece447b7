package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"voicenote/audio"
	"voicenote/clipboard"
	"voicenote/doctor"
	"voicenote/formatter"
	"voicenote/hotkey"
	"voicenote/realtime"
	"voicenote/settings"
)

// runDoctor checks the shortcut, microphone, credentials and both OpenAI
// endpoints, in that order.
func runDoctor(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("voicenote doctor", flag.ContinueOnError)
	fs.SetOutput(out)
	device := fs.String("device", "", "Use named microphone device")
	record := fs.Duration("record", 2*time.Second, "How long to record for the microphone check")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := settings.LoadEnv(); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}
	path, err := settings.DefaultPath()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	store, err := settings.Open(path)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	key := store.APIKey()
	quality := store.Get().Quality

	mic := doctor.Check{Name: "Microphone", Required: true, Run: func(ctx context.Context) (string, error) {
		actx, err := audio.NewContext()
		if err != nil {
			return "", fmt.Errorf("cannot connect to audio: %w", err)
		}
		defer actx.Close()
		dev, err := audio.FindDevice(actx, *device)
		if err != nil {
			return "", err
		}
		return doctor.Microphone(actx, dev, quality, *record).Run(ctx)
	}}

	checks := []doctor.Check{
		doctor.Hotkey(hotkey.Diagnose),
		mic,
		doctor.APIKey(key),
		doctor.Realtime(realtime.Config{APIKey: key}, 3*time.Second),
		doctor.Formatting(formatter.New(formatter.Config{APIKey: key})),
		doctor.Clipboard(clipboard.Read, clipboard.ErrUnavailable),
	}
	return doctor.Run(context.Background(), checks, out)
}
