package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func identity(_ context.Context, s string) (string, error) { return s, nil }

func constant(out string) FormatFunc {
	return func(context.Context, string) (string, error) { return out, nil }
}

func newTestSink(initial string) (*Sink, *Memory) {
	doc := NewMemory(initial)
	return NewSink(func() Document { return doc }), doc
}

func TestAppendTextAccumulates(t *testing.T) {
	tests := []struct {
		name    string
		appends []string
	}{
		{"single", []string{"hello "}},
		{"several", []string{"a ", "b ", "c "}},
		{"cjk", []string{"你好 ", "world ", "再见 "}},
		{"with empty", []string{"x ", "", "y "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, doc := newTestSink("")
			for _, a := range tt.appends {
				if err := s.AppendText(a); err != nil {
					t.Fatal(err)
				}
			}
			want := strings.Join(tt.appends, "")
			if got := s.Buffer(); got != want {
				t.Errorf("buffer = %q, want %q", got, want)
			}
			if got := doc.Text(); got != want {
				t.Errorf("document = %q, want %q", got, want)
			}
			if s.FormattedOffset() != 0 {
				t.Errorf("offset = %d, want 0", s.FormattedOffset())
			}
			if doc.Cursor() != runeLen(want) {
				t.Errorf("cursor = %d, want %d", doc.Cursor(), runeLen(want))
			}
		})
	}
}

func TestHelloWorldScenario(t *testing.T) {
	s, doc := newTestSink("# Notes\n")
	start := doc.Cursor()

	s.AppendText("hello ")
	s.AppendText("world ")

	if got := s.Buffer(); got != "hello world " {
		t.Fatalf("buffer = %q", got)
	}
	if got := doc.Cursor() - start; got != 12 {
		t.Errorf("cursor advanced by %d, want 12", got)
	}
	if s.FormattedOffset() != 0 {
		t.Errorf("offset = %d, want 0", s.FormattedOffset())
	}

	if err := s.FormatPending(context.Background(), constant("Hello, world. ")); err != nil {
		t.Fatal(err)
	}
	if got := doc.Text(); got != "# Notes\nHello, world. " {
		t.Errorf("document = %q", got)
	}
	if s.FormattedOffset() != 12 {
		t.Errorf("offset = %d, want 12", s.FormattedOffset())
	}
	if got, want := doc.Cursor(), runeLen("# Notes\nHello, world. "); got != want {
		t.Errorf("cursor = %d, want %d", got, want)
	}
	if s.HasUnformattedText() {
		t.Error("expected nothing pending after format")
	}
}

func TestFormatPendingIdentityRoundTrip(t *testing.T) {
	s, doc := newTestSink("prefix ")
	s.AppendText("some raw ")
	s.AppendText("text 中文 ")
	before := doc.Text()

	if err := s.FormatPending(context.Background(), identity); err != nil {
		t.Fatal(err)
	}
	if got := doc.Text(); got != before {
		t.Errorf("document changed: %q -> %q", before, got)
	}
}

func TestFormatPendingIdempotent(t *testing.T) {
	s, _ := newTestSink("")
	s.AppendText("one two ")

	calls := 0
	fn := func(_ context.Context, p string) (string, error) {
		calls++
		return strings.ToUpper(p), nil
	}
	s.FormatPending(context.Background(), fn)
	s.FormatPending(context.Background(), fn)
	if calls != 1 {
		t.Errorf("format called %d times, want 1", calls)
	}
}

func TestFormatPendingOnlyTouchesPendingSuffix(t *testing.T) {
	s, doc := newTestSink("")
	s.AppendText("first ")
	s.FormatPending(context.Background(), constant("First. "))
	s.AppendText("second ")

	var seen string
	s.FormatPending(context.Background(), func(_ context.Context, p string) (string, error) {
		seen = p
		return "Second. ", nil
	})
	if seen != "second " {
		t.Errorf("pending = %q, want %q", seen, "second ")
	}
	if got := doc.Text(); got != "First. Second. " {
		t.Errorf("document = %q", got)
	}
	if got := s.FormattedOffset(); got != runeLen("first second ") {
		t.Errorf("offset = %d", got)
	}
}

func TestFormatPendingFailureLeavesState(t *testing.T) {
	s, doc := newTestSink("keep ")
	s.AppendText("raw ")
	beforeDoc, beforeBuf, beforeCursor := doc.Text(), s.Buffer(), doc.Cursor()

	boom := errors.New("boom")
	err := s.FormatPending(context.Background(), func(context.Context, string) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if doc.Text() != beforeDoc || s.Buffer() != beforeBuf || doc.Cursor() != beforeCursor {
		t.Error("state changed after failed format")
	}
	if s.FormattedOffset() != 0 {
		t.Errorf("offset = %d, want 0", s.FormattedOffset())
	}
	if !s.HasUnformattedText() {
		t.Error("pending text lost after failure")
	}
}

func TestFormatPendingBlankIsNoop(t *testing.T) {
	s, _ := newTestSink("")
	s.AppendText("   ")
	called := false
	s.FormatPending(context.Background(), func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})
	if called {
		t.Error("format called for blank pending text")
	}
	if s.HasUnformattedText() {
		t.Error("whitespace should not count as unformatted text")
	}
}

func TestAppendDuringFormat(t *testing.T) {
	s, doc := newTestSink("")
	s.AppendText("alpha ")

	err := s.FormatPending(context.Background(), func(_ context.Context, p string) (string, error) {
		s.AppendText("beta ")
		return "Alpha. ", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Text(); got != "Alpha. beta " {
		t.Errorf("document = %q", got)
	}
	if got := s.FormattedOffset(); got != runeLen("alpha ") {
		t.Errorf("offset = %d, want %d", got, runeLen("alpha "))
	}
	if !s.HasUnformattedText() {
		t.Error("text appended mid-pass should stay pending")
	}
	if got := doc.Cursor(); got != runeLen("Alpha. beta ") {
		t.Errorf("cursor = %d", got)
	}
}

func TestNoActiveDocument(t *testing.T) {
	s := NewSink(nil)
	if err := s.AppendText("kept "); err != nil {
		t.Fatal(err)
	}
	if s.Buffer() != "kept " {
		t.Errorf("buffer = %q", s.Buffer())
	}
	called := false
	s.FormatPending(context.Background(), func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})
	if called {
		t.Error("format should not run without a document")
	}
	if !s.HasUnformattedText() {
		t.Error("text should remain pending")
	}
}

func TestReset(t *testing.T) {
	s, _ := newTestSink("")
	s.AppendText("a ")
	s.FormatPending(context.Background(), identity)
	s.AppendText("b ")
	s.Reset()
	if s.Buffer() != "" || s.FormattedOffset() != 0 || s.HasUnformattedText() {
		t.Errorf("after reset buffer=%q offset=%d", s.Buffer(), s.FormattedOffset())
	}
}

func TestResetDuringFormatKeepsOffsetInRange(t *testing.T) {
	s, _ := newTestSink("")
	s.AppendText("late pass ")
	s.FormatPending(context.Background(), func(_ context.Context, p string) (string, error) {
		s.Reset()
		return p, nil
	})
	if got := s.FormattedOffset(); got != 0 {
		t.Errorf("offset = %d after reset mid-pass, want 0", got)
	}
	s.AppendText("x ")
	if !s.HasUnformattedText() {
		t.Error("new text after reset should be pending")
	}
}
