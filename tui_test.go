package main

import (
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voicenote/session"
	"voicenote/status"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 10, []string{""}},
		{"fits", "hello", 10, []string{"hello"}},
		{"at space", "hello world again", 11, []string{"hello world", "again"}},
		{"hard wrap", "你好世界你好世界", 3, []string{"你好世", "界你好", "世界"}},
		{"long word", "abcdefgh ij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); !slices.Equal(got, tt.want) {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestTailLines(t *testing.T) {
	got := tailLines("one\ntwo three\nfour", 5, 2)
	if !slices.Equal(got, []string{"three", "four"}) {
		t.Errorf("tailLines = %q", got)
	}
}

func update(m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func TestTUIToggleKey(t *testing.T) {
	toggled := 0
	m := newTUIModel(func() { toggled++ }, "", "")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("toggle key returned no command")
	}
	if toggled != 0 {
		t.Fatal("toggle ran on the update loop")
	}
	cmd()
	if toggled != 1 {
		t.Errorf("toggled = %d", toggled)
	}

	_, cmd = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Error("unbound key returned a command")
	}
}

func TestTUIQuitKey(t *testing.T) {
	m := newTUIModel(nil, "", "")
	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestTUINoticesCapped(t *testing.T) {
	m := newTUIModel(nil, "", "")
	m.now = func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) }
	for _, n := range []string{"a", "b", "c", "d"} {
		m, _ = update(m, noticeMsg(n))
	}
	if len(m.notices) != maxNotices || m.notices[0].text != "b" {
		t.Errorf("notices = %+v", m.notices)
	}
}

func TestTUIView(t *testing.T) {
	m := newTUIModel(nil, "note: inbox.md", "mic: system default")
	if got := m.View(); got != "Loading..." {
		t.Errorf("view before size = %q", got)
	}

	m, _ = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m, _ = update(m, statusMsg(status.State{Phase: status.Listening, Recording: true, Seconds: 3, Text: "Listening (3s)..."}))
	m, _ = update(m, documentMsg("Hello world. "))
	m, _ = update(m, noticeMsg("Recording started"))
	m, _ = update(m, stoppedMsg(session.Summary{Transcripts: 2, Passes: 1}))

	view := m.View()
	for _, want := range []string{"Listening (3s)...", "Hello world.", "Recording started", "note: inbox.md", "2 transcripts", "to toggle recording"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
