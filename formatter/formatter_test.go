package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "sk-test", URL: srv.URL})
}

func reply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}
}

func TestFormatRequestShape(t *testing.T) {
	var got chatRequest
	var auth string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		reply("Hello, world.")(w, r)
	})

	out := c.Format(context.Background(), "hello world")
	if out != "Hello, world." {
		t.Errorf("Format = %q", out)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != DefaultModel || got.Temperature != 0.3 || got.MaxTokens != 2000 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello world" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestFormatFallsBackToRaw(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
		}},
		{"error payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.handler)
			if out := c.Format(context.Background(), "raw text "); out != "raw text " {
				t.Errorf("Format = %q, want raw input", out)
			}
			if _, err := c.TryFormat(context.Background(), "raw text "); err == nil {
				t.Error("TryFormat should report the failure")
			}
		})
	}
}

func TestTryFormatEmptyChoices(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := c.TryFormat(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestFormatUnreachable(t *testing.T) {
	c := New(Config{APIKey: "k", URL: "http://127.0.0.1:1/v1/chat/completions"})
	if out := c.Format(context.Background(), "keep me"); out != "keep me" {
		t.Errorf("Format = %q", out)
	}
}

func TestFormatCancelledContext(t *testing.T) {
	c := newServer(t, reply("never"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.TryFormat(ctx, "x"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
