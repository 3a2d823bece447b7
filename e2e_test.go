package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"voicenote/audio"
	"voicenote/session"
)

type keyStore struct{ recording atomic.Bool }

func (*keyStore) APIKey() string { return "sk-test" }
func (s *keyStore) SetRecording(on bool) error {
	s.recording.Store(on)
	return nil
}

// dictationServer answers the first audio chunk with one spoken phrase.
func dictationServer(t *testing.T, phrase string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{"realtime"}})
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		spoken := false
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			var msg struct {
				Type string `json:"type"`
			}
			json.Unmarshal(data, &msg)
			if msg.Type != "input_audio_buffer.append" || spoken {
				continue
			}
			spoken = true
			for _, ev := range []string{
				`{"type":"input_audio_buffer.speech_started"}`,
				`{"type":"conversation.item.input_audio_transcription.completed","transcript":"` + phrase + `"}`,
				`{"type":"input_audio_buffer.speech_stopped"}`,
			} {
				if err := c.Write(ctx, websocket.MessageText, []byte(ev)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func completionServer(t *testing.T, calls *atomic.Int32, reply string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestDictationEndToEnd(t *testing.T) {
	a, out := testApp()
	a.opts.delay = 50 * time.Millisecond
	a.audio = newReplayContext(audio.NewFakeContextSamples(make([]float32, audio.FrameSize*2)))
	a.realtimeURL = dictationServer(t, "hello world")
	var calls atomic.Int32
	a.formatURL = completionServer(t, &calls, "Hello world.")

	store := &keyStore{}
	stopped := make(chan session.Summary, 1)
	a.ctrl = session.NewController(session.ControllerConfig{
		Store:     store,
		Build:     a.sessionConfig,
		Notify:    a.ui.Notice,
		OnStopped: func(s session.Summary) { stopped <- s },
	})
	a.ctrl.Register(a.actions)
	defer a.ctrl.Close(context.Background())

	a.toggle()
	if !a.ctrl.Recording() || !store.recording.Load() {
		t.Fatalf("recording did not start: %s", out.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.mem.Text() != "Hello world. " {
		if time.Now().After(deadline) {
			t.Fatalf("document = %q", a.mem.Text())
		}
		time.Sleep(10 * time.Millisecond)
	}

	a.toggle()
	sum := <-stopped
	if sum.Transcripts != 1 || sum.Passes != 1 || sum.Text != "Hello world." {
		t.Errorf("summary = %+v", sum)
	}
	if calls.Load() != 1 {
		t.Errorf("formatter called %d times", calls.Load())
	}
	if store.recording.Load() {
		t.Error("recording flag left on")
	}
	if a.status.State().Recording {
		t.Error("status still recording")
	}
}
