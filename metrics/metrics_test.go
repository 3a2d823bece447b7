package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.ChunksSent.Inc()
	if out := scrape(t, b); !strings.Contains(out, "voicenote_audio_chunks_sent_total 0") {
		t.Errorf("second registry affected by first: %s", out)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.FormatPasses.WithLabelValues("backup").Inc()
	m.SpeechEvents.WithLabelValues("started").Add(2)

	body := scrape(t, m)
	for _, want := range []string{
		`voicenote_format_passes_total{trigger="backup"} 1`,
		`voicenote_speech_events_total{event="started"} 2`,
		"voicenote_sessions_started_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
