package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"voicenote/editor"
	"voicenote/log"
	"voicenote/metrics"
	"voicenote/realtime"
	"voicenote/scheduler"
	"voicenote/status"

	"github.com/google/uuid"
)

type Recorder interface {
	Start(onChunk func(chunk string)) error
	Stop()
}

type Socket interface {
	Connect(ctx context.Context) error
	SendAudio(chunk string)
	Close() error
	Stats() realtime.Stats
}

type Formatter interface {
	TryFormat(ctx context.Context, raw string) (string, error)
}

type Config struct {
	Document    func() editor.Document
	Formatter   Formatter
	NewRecorder func() Recorder
	NewSocket   func(cb realtime.Callbacks) Socket
	Status      *status.Presenter
	Metrics     *metrics.Metrics
	Clock       scheduler.Clock
	Delay       time.Duration

	// Notify shows a user-facing notice.
	Notify func(msg string)
	// OnVendorClose runs when the server or network ends the socket.
	OnVendorClose func(s *Session)

	Model      string
	Quality    string
	SampleRate int
}

type Summary struct {
	ID          string
	Duration    time.Duration
	Transcripts int
	Chars       int
	Passes      int
	// Text is what this recording left in the document.
	Text string
}

// Session owns the sub-resources of one recording. It is built by Start and
// torn down by Stop; nothing outlives it.
type Session struct {
	ID  string
	cfg Config

	sink   *editor.Sink
	sched  *scheduler.Scheduler
	socket Socket
	rec    Recorder

	started     time.Time
	startCursor int
	recording   atomic.Bool
	stopping    atomic.Bool
	transcripts atomic.Int64
	chars       atomic.Int64

	tickMu sync.Mutex
	tick   scheduler.Timer

	stopOnce sync.Once
	summary  Summary
}

// Start connects the socket, then opens the microphone. On failure nothing
// is left running.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Clock == nil {
		cfg.Clock = scheduler.RealClock
	}
	if cfg.Document == nil {
		cfg.Document = func() editor.Document { return nil }
	}
	if cfg.Notify == nil {
		cfg.Notify = func(string) {}
	}

	s := &Session{
		ID:      uuid.NewString()[:8],
		cfg:     cfg,
		sink:    editor.NewSink(cfg.Document),
		started: cfg.Clock.Now(),
	}
	if doc := cfg.Document(); doc != nil {
		s.startCursor = doc.Cursor()
	}
	s.sched = scheduler.New(scheduler.Config{
		Delay:      cfg.Delay,
		Clock:      cfg.Clock,
		Pass:       s.formatPass,
		HasPending: s.sink.HasUnformattedText,
		Recording:  s.recording.Load,
	})

	s.socket = cfg.NewSocket(realtime.Callbacks{
		OnSpeechStarted: s.onSpeechStarted,
		OnSpeechStopped: s.onSpeechStopped,
		OnTranscript:    s.onTranscript,
		OnError:         s.onError,
		OnClose:         s.onClose,
		OnEvent:         func(t string) { log.SocketEvent(s.ID, t) },
	})
	if err := s.socket.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect transcription socket: %w", err)
	}

	s.rec = cfg.NewRecorder()
	s.recording.Store(true)
	if err := s.rec.Start(s.onChunk); err != nil {
		s.recording.Store(false)
		s.socket.Close()
		return nil, err
	}

	s.status(func(p *status.Presenter) { p.RecordingStarted() })
	s.metric(func(m *metrics.Metrics) {
		m.SessionsStarted.Inc()
		m.Recording.Set(1)
	})
	log.SessionStart(s.ID, cfg.Model, cfg.Quality, cfg.SampleRate)
	s.armTick()
	return s, nil
}

func (s *Session) Recording() bool { return s.recording.Load() }

// Sink exposes the transcript buffer of this recording.
func (s *Session) Sink() *editor.Sink { return s.sink }

// Stop cancels pending formatting, runs the final pass, then releases the
// microphone and the socket. It is safe to call more than once.
func (s *Session) Stop(ctx context.Context) Summary {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.sched.Stop(ctx)
		s.rec.Stop()
		s.socket.Close()
		s.stopTick()
		s.recording.Store(false)
		s.status(func(p *status.Presenter) { p.RecordingStopped() })

		stats := s.socket.Stats()
		s.metric(func(m *metrics.Metrics) {
			m.Recording.Set(0)
			m.TranscriptsDeduped.Add(float64(stats.Deduped))
		})

		s.summary = Summary{
			ID:          s.ID,
			Duration:    s.cfg.Clock.Now().Sub(s.started),
			Transcripts: int(s.transcripts.Load()),
			Chars:       int(s.chars.Load()),
			Passes:      s.sched.Passes(),
			Text:        s.writtenText(),
		}
		log.SessionEnd(log.SessionEndData{
			Session:     s.ID,
			Duration:    s.summary.Duration,
			Transcripts: s.summary.Transcripts,
			Chars:       s.summary.Chars,
			FormatPass:  s.summary.Passes,
			ChunksSent:  stats.ChunksSent,
		})
		s.sink.Reset()
	})
	return s.summary
}

func (s *Session) writtenText() string {
	doc := s.cfg.Document()
	if doc == nil {
		return ""
	}
	text := []rune(doc.Text())
	end := min(doc.Cursor(), len(text))
	start := min(s.startCursor, end)
	return strings.TrimSpace(string(text[start:end]))
}

func (s *Session) onChunk(chunk string) {
	s.socket.SendAudio(chunk)
	s.metric(func(m *metrics.Metrics) {
		m.ChunksSent.Inc()
		m.BytesSent.Add(float64(len(chunk)))
	})
}

func (s *Session) onSpeechStarted() {
	s.status(func(p *status.Presenter) { p.SpeechStarted() })
	s.sched.SpeechStarted()
	s.metric(func(m *metrics.Metrics) { m.SpeechEvents.WithLabelValues("started").Inc() })
}

func (s *Session) onSpeechStopped() {
	s.status(func(p *status.Presenter) { p.SpeechStopped() })
	s.sched.SpeechStopped()
	s.metric(func(m *metrics.Metrics) { m.SpeechEvents.WithLabelValues("stopped").Inc() })
}

func (s *Session) onTranscript(text string) {
	if err := s.sink.AppendText(text); err != nil {
		log.Warnf("insert transcript: %v", err)
	}
	s.transcripts.Add(1)
	s.chars.Add(int64(utf8.RuneCountInString(text)))
	log.TranscriptText(s.ID, text)
	s.sched.TranscriptReceived()
	s.metric(func(m *metrics.Metrics) { m.TranscriptsReceived.Inc() })
}

func (s *Session) onError(msg string) {
	log.Errorf("realtime error: %s", msg)
	s.metric(func(m *metrics.Metrics) { m.SocketErrors.Inc() })
	s.cfg.Notify(msg)
}

func (s *Session) onClose() {
	if s.stopping.Load() {
		return
	}
	log.Warn("transcription socket closed by server")
	s.recording.Store(false)
	s.status(func(p *status.Presenter) { p.RecordingStopped() })
	if s.cfg.OnVendorClose != nil {
		s.cfg.OnVendorClose(s)
	}
}

// formatPass runs one pass through the formatter. Formatter failures fall
// back to the raw text, so the pass itself never fails.
func (s *Session) formatPass(ctx context.Context, trigger scheduler.Trigger) {
	s.status(func(p *status.Presenter) { p.FormatStarted() })
	defer s.status(func(p *status.Presenter) { p.FormatFinished() })

	var pendingLen, resultLen int
	var formatErr error
	start := time.Now()
	err := s.sink.FormatPending(ctx, func(ctx context.Context, pending string) (string, error) {
		pendingLen = utf8.RuneCountInString(pending)
		out, err := s.cfg.Formatter.TryFormat(ctx, pending)
		if err != nil {
			formatErr = err
			out = pending
		} else {
			out = keepTrailingSpace(pending, out)
		}
		resultLen = utf8.RuneCountInString(out)
		return out, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Warnf("format pass: %v", err)
	}

	log.FormatPass(log.FormatPassData{
		Session:    s.ID,
		Trigger:    string(trigger),
		PendingLen: pendingLen,
		ResultLen:  resultLen,
		Duration:   elapsed,
		Err:        formatErr,
	})
	s.metric(func(m *metrics.Metrics) {
		m.FormatPasses.WithLabelValues(string(trigger)).Inc()
		m.FormatDuration.Observe(elapsed.Seconds())
		if formatErr != nil {
			m.FormatFailures.Inc()
		}
	})
}

// keepTrailingSpace restores the separator the raw text ended with, since
// the formatter trims its output and the next fragment is appended directly
// after it.
func keepTrailingSpace(raw, formatted string) string {
	if formatted == "" {
		return formatted
	}
	last, _ := utf8.DecodeLastRuneInString(raw)
	if unicode.IsSpace(last) && !strings.HasSuffix(formatted, " ") {
		return formatted + " "
	}
	return formatted
}

func (s *Session) armTick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.tick = s.cfg.Clock.AfterFunc(time.Second, func() {
		if !s.recording.Load() {
			return
		}
		s.status(func(p *status.Presenter) { p.Tick() })
		s.armTick()
	})
}

func (s *Session) stopTick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
}

func (s *Session) status(fn func(*status.Presenter)) {
	if s.cfg.Status != nil {
		fn(s.cfg.Status)
	}
}

func (s *Session) metric(fn func(*metrics.Metrics)) {
	if s.cfg.Metrics != nil {
		fn(s.cfg.Metrics)
	}
}
