package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for voicenote.
type Metrics struct {
	Registry *prometheus.Registry

	// Audio
	ChunksSent prometheus.Counter
	BytesSent  prometheus.Counter

	// Realtime socket
	TranscriptsReceived prometheus.Counter
	TranscriptsDeduped  prometheus.Counter
	SpeechEvents        *prometheus.CounterVec
	SocketErrors        prometheus.Counter

	// Formatting
	FormatPasses   *prometheus.CounterVec
	FormatFailures prometheus.Counter
	FormatDuration prometheus.Histogram

	// Sessions
	SessionsStarted prometheus.Counter
	Recording       prometheus.Gauge
}

// New registers every metric on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		ChunksSent: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_audio_chunks_sent_total",
			Help: "Total number of audio chunks queued to the realtime socket",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_audio_bytes_sent_total",
			Help: "Total base64 audio bytes queued to the realtime socket",
		}),

		TranscriptsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_transcripts_received_total",
			Help: "Total number of transcript fragments inserted into the note",
		}),
		TranscriptsDeduped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_transcripts_deduped_total",
			Help: "Total number of repeated transcripts dropped",
		}),
		SpeechEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicenote_speech_events_total",
			Help: "Voice activity boundaries reported by the server",
		}, []string{"event"}),
		SocketErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_socket_errors_total",
			Help: "Total number of realtime errors surfaced to the user",
		}),

		FormatPasses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicenote_format_passes_total",
			Help: "Formatting passes by trigger",
		}, []string{"trigger"}),
		FormatFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_format_failures_total",
			Help: "Formatting passes that fell back to raw text",
		}),
		FormatDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicenote_format_duration_seconds",
			Help:    "Time spent in the chat completion call",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),

		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenote_sessions_started_total",
			Help: "Total number of recordings started",
		}),
		Recording: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicenote_recording",
			Help: "1 while a recording is active",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
