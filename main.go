package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/term"

	"voicenote/audio"
	"voicenote/beep"
	"voicenote/clipboard"
	"voicenote/editor"
	"voicenote/formatter"
	"voicenote/hotkey"
	"voicenote/log"
	"voicenote/metrics"
	"voicenote/realtime"
	"voicenote/scheduler"
	"voicenote/session"
	"voicenote/settings"
	"voicenote/shutdown"
	"voicenote/status"
)

var version = "dev"

type options struct {
	note        string
	quality     string
	device      string
	setup       bool
	delay       time.Duration
	interval    time.Duration
	logPath     string
	metricsAddr string
	copy        bool
	replay      string
	responses   bool
	beep        bool
	version     bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("voicenote", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.note, "note", "", "Markdown note to dictate into (default: in-memory note shown in the TUI)")
	fs.StringVar(&o.quality, "quality", "", "Audio quality: high (48kHz), medium (24kHz) or low (16kHz); default from settings")
	fs.StringVar(&o.device, "device", "", "Use named microphone device")
	fs.BoolVar(&o.setup, "setup", false, "Select microphone device interactively")
	fs.DurationVar(&o.delay, "delay", scheduler.DefaultDelay, "Wait after speech stops before formatting")
	fs.DurationVar(&o.interval, "interval", audio.DefaultSendInterval, "Minimum interval between audio chunks sent to the socket")
	fs.StringVar(&o.logPath, "logpath", "", "Log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&o.copy, "copy", false, "Copy each recording's note text to the clipboard when it stops")
	fs.StringVar(&o.replay, "replay", "", "Replay a 16-bit mono WAV instead of the microphone (script on stdin)")
	fs.BoolVar(&o.responses, "responses", false, "Let the realtime session create model responses")
	fs.BoolVar(&o.beep, "beep", true, "Play a sound when recording starts and stops")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.delay <= 0 {
		return o, fmt.Errorf("-delay must be positive, got %v", o.delay)
	}
	if o.interval <= 0 {
		return o, fmt.Errorf("-interval must be positive, got %v", o.interval)
	}
	return o, nil
}

// resolveQuality prefers the flag over the stored setting.
func resolveQuality(flagValue string, stored audio.Quality) (audio.Quality, error) {
	if strings.TrimSpace(flagValue) == "" {
		if stored == "" {
			return audio.QualityMedium, nil
		}
		return stored, nil
	}
	return audio.ParseQuality(flagValue)
}

type app struct {
	opts    options
	store   *settings.Store
	audio   audio.Context
	device  *audio.DeviceInfo
	quality audio.Quality
	doc     editor.Document
	mem     *editor.Memory
	metrics *metrics.Metrics
	ui      EventSink
	status  *status.Presenter
	actions *actionSet
	ctrl    *session.Controller

	// Endpoint overrides; empty means the OpenAI defaults.
	realtimeURL string
	formatURL   string
}

// sessionConfig wires one recording: a fresh socket, recorder and formatter
// per session, all sharing the app's document and presenters.
func (a *app) sessionConfig(apiKey string) session.Config {
	return session.Config{
		Document:  func() editor.Document { return a.doc },
		Formatter: formatter.New(formatter.Config{APIKey: apiKey, URL: a.formatURL}),
		NewRecorder: func() session.Recorder {
			return audio.NewRecorder(a.audio, audio.RecorderConfig{
				Device:       a.device,
				Quality:      a.quality,
				SendInterval: a.opts.interval,
			})
		},
		NewSocket: func(cb realtime.Callbacks) session.Socket {
			return realtime.NewClient(realtime.Config{
				APIKey:         apiKey,
				URL:            a.realtimeURL,
				CreateResponse: a.opts.responses,
			}, cb)
		},
		Status:     a.status,
		Metrics:    a.metrics,
		Delay:      a.opts.delay,
		Model:      realtime.DefaultModel,
		Quality:    string(a.quality),
		SampleRate: int(a.quality.SampleRate()),
	}
}

func (a *app) newController() *session.Controller {
	return session.NewController(session.ControllerConfig{
		Store:     a.store,
		Build:     a.sessionConfig,
		Notify:    a.ui.Notice,
		OnStarted: func() { beep.Play(beep.Start) },
		OnFailed:  func(error) { beep.Play(beep.Failure) },
		OnStopped: a.stopped,
	})
}

func (a *app) stopped(sum session.Summary) {
	beep.Play(beep.Stop)
	a.ui.Stopped(sum)
	if !a.opts.copy || sum.Text == "" {
		return
	}
	if err := clipboard.Copy(sum.Text); err != nil {
		log.Warnf("copy note: %v", err)
		a.ui.Notice(fmt.Sprintf("Could not copy note: %v", err))
		return
	}
	a.ui.Notice("Note copied to clipboard")
}

func (a *app) toggle() {
	if !a.actions.Run(session.ToggleAction) {
		log.Warn("toggle pressed with no action registered")
	}
}

func run() int {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			path, err := settings.DefaultPath()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			return runConfig(os.Args[2:], path, os.Stdout)
		case "doctor":
			return runDoctor(os.Args[2:], os.Stdout)
		}
	}

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Printf("voicenote %s\n", version)
		return 0
	}

	if err := settings.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	initCrashLog()

	a := &app{opts: opts, actions: newActionSet(), metrics: metrics.New()}

	path, err := settings.DefaultPath()
	if err == nil {
		a.store, err = settings.Open(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	a.quality, err = resolveQuality(opts.quality, a.store.Get().Quality)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var replayCtx *replayContext
	if opts.replay != "" {
		fc, err := audio.NewFakeContext(opts.replay, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			return 1
		}
		replayCtx = newReplayContext(fc)
		a.audio = replayCtx
		a.quality = replayQuality(fc.SampleRate(), a.quality)
		beep.Disable()
	} else {
		ctx, err := audio.NewContext()
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
			return 1
		}
		a.audio = ctx
	}
	defer a.audio.Close()
	if !opts.beep {
		beep.Disable()
	}

	if a.device, err = pickDevice(a.audio, opts); err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v; using the system default\n", err)
	}

	noteLine := "note: in memory"
	if opts.note != "" {
		f, err := editor.OpenFile(opts.note)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		a.doc, a.mem = f, f.Memory
		noteLine = "note: " + f.Path()
	} else {
		a.mem = editor.NewMemory("")
		a.doc = a.mem
	}

	interactive := replayCtx == nil && term.IsTerminal(int(os.Stdout.Fd()))
	var psink *programSink
	if interactive {
		psink = &programSink{}
		a.ui = psink
	} else {
		a.ui = newLineSink(os.Stdout)
	}
	a.status = status.NewPresenter(a.ui.Status)
	a.mem.OnChange(func() { a.ui.Document(a.mem.Text()) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.metricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, opts.metricsAddr); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	a.ctrl = a.newController()
	a.ctrl.Register(a.actions)
	defer a.ctrl.Close(context.Background())

	var hk hotkey.Hotkey
	var fakeHK *hotkey.FakeHotkey
	if replayCtx != nil {
		fakeHK = hotkey.NewFake()
		hk = fakeHK
	} else {
		hk = hotkey.New()
	}
	if _, err := hotkey.Bind(ctx, hk, a.toggle); err != nil {
		log.Warnf("global shortcut unavailable: %v", err)
		if msg, derr := hotkey.Diagnose(); derr != nil {
			log.Warnf("hotkey diagnose: %v", derr)
		} else {
			log.Info(msg)
		}
		a.status.SetHint("Press r to start recording")
		a.ui.Notice(fmt.Sprintf("Global shortcut unavailable: %v", err))
	}

	log.Infof("voicenote %s started (quality %s, delay %v, %s)", version, a.quality, opts.delay, noteLine)

	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)

	if replayCtx != nil {
		return runReplay(ctx, a, newReplayDriver(fakeHK, replayCtx), sigCh)
	}
	if !interactive {
		fmt.Printf("%s; waiting for %s (Ctrl+C to exit)\n", noteLine, hotkey.Chord)
		<-sigCh
		return 0
	}

	device := "mic: system default"
	if a.device != nil {
		device = "mic: " + a.device.Name
	}
	m := newTUIModel(a.toggle, noteLine, device)
	m.status = a.status.State()
	p := NewTUIProgram(m)
	psink.attach(p)
	go func() {
		<-sigCh
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		return 1
	}
	return 0
}

func runReplay(ctx context.Context, a *app, d *replayDriver, sigCh <-chan os.Signal) int {
	script := io.Reader(os.Stdin)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		script = strings.NewReader(defaultReplayScript)
	}
	done := make(chan error, 1)
	go func() { done <- d.Run(script) }()
	select {
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: replay: %v\n", err)
			return 1
		}
	case <-sigCh:
	case <-ctx.Done():
	}
	a.ctrl.Close(context.Background())
	if a.opts.note == "" {
		fmt.Print(a.mem.Text())
		fmt.Println()
	}
	return 0
}

func pickDevice(ctx audio.Context, opts options) (*audio.DeviceInfo, error) {
	switch {
	case opts.device != "":
		return audio.FindDevice(ctx, opts.device)
	case opts.setup:
		return audio.SelectDevice(ctx)
	}
	return nil, nil
}

func initCrashLog() {
	if log.Dir() == "" {
		return
	}
	f, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}
