package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: VOICENOTE_LOG_PATH environment variable
	if envPath := os.Getenv("VOICENOTE_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// TranscriptText appends one received transcript fragment to transcribe_log.txt.
func TranscriptText(session, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, session, text)
	transcribeFile.WriteString(line)
}

func SocketEvent(session, eventType string) {
	if !logReady {
		return
	}
	diagLog.Debug().
		Str("session", session).
		Str("type", eventType).
		Msg("realtime_event")
}

type FormatPassData struct {
	Session    string
	Trigger    string // "speech_stop", "backup", "stop"
	PendingLen int
	ResultLen  int
	Duration   time.Duration
	Err        error
}

func FormatPass(d FormatPassData) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if d.Err != nil {
		ev = diagLog.Warn().Err(d.Err)
	}
	ev.Str("session", d.Session).
		Str("trigger", d.Trigger).
		Int("pending_chars", d.PendingLen).
		Int("result_chars", d.ResultLen).
		Float64("format_ms", float64(d.Duration.Microseconds())/1000).
		Msg("format_pass")
}

type HTTPTimings struct {
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ConnReused bool
	Status     int
}

func FormatRequest(t HTTPTimings) {
	if !logReady {
		return
	}
	connStatus := "new"
	if t.ConnReused {
		connStatus = "reused"
	}
	diagLog.Info().
		Str("conn", connStatus).
		Int("status", t.Status).
		Float64("dns_ms", t.DNSMs).
		Float64("tls_ms", t.TLSMs).
		Float64("ttfb_ms", t.TTFBMs).
		Float64("total_ms", t.TotalMs).
		Msg("format_request")
}

func SessionStart(session, model, quality string, sampleRate int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", session).
		Str("model", model).
		Str("quality", quality).
		Int("sample_rate", sampleRate).
		Msg("session_start")
}

type SessionEndData struct {
	Session     string
	Duration    time.Duration
	Transcripts int
	Chars       int
	FormatPass  int
	ChunksSent  int
}

func SessionEnd(d SessionEndData) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", d.Session).
		Float64("duration_s", d.Duration.Seconds()).
		Int("transcripts", d.Transcripts).
		Int("chars", d.Chars).
		Int("format_passes", d.FormatPass).
		Int("chunks_sent", d.ChunksSent).
		Msg("session_end")
}
