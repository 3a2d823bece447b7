package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voicenote/hotkey"
	"voicenote/session"
	"voicenote/status"
)

const maxNotices = 3

type notice struct {
	text string
	at   time.Time
}

type tuiModel struct {
	status        status.State
	doc           string
	notices       []notice
	last          *session.Summary
	width, height int

	noteLine   string // "note: ~/notes/inbox.md"
	deviceLine string // "mic: system default"
	toggle     func()
	now        func() time.Time
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKey     = helpStyle.Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	docStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	docBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).PaddingLeft(1)

	phaseColors = map[status.Phase]lipgloss.Color{
		status.Idle:         "241",
		status.Listening:    "196",
		status.Transcribing: "214",
		status.Formatting:   "39",
	}
)

func newTUIModel(toggle func(), noteLine, deviceLine string) tuiModel {
	return tuiModel{
		status:     status.State{Text: status.StartHint},
		noteLine:   noteLine,
		deviceLine: deviceLine,
		toggle:     toggle,
		now:        time.Now,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "enter":
			if m.toggle != nil {
				toggle := m.toggle
				// Stopping waits on the final format pass, so keep it off the UI loop.
				return m, func() tea.Msg { toggle(); return nil }
			}
		}

	case statusMsg:
		m.status = status.State(msg)

	case noticeMsg:
		m.notices = append(m.notices, notice{text: string(msg), at: m.now()})
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}

	case documentMsg:
		m.doc = string(msg)

	case stoppedMsg:
		sum := session.Summary(msg)
		m.last = &sum
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var header []string
	header = append(header, titleStyle.Render("voicenote "+version))
	header = append(header, m.statusLine())
	for _, line := range []string{m.noteLine, m.deviceLine} {
		if line != "" {
			header = append(header, metaStyle.Render(line))
		}
	}
	if m.last != nil {
		header = append(header, metaStyle.Render(fmt.Sprintf("last: %d transcripts, %d format passes, %.0fs",
			m.last.Transcripts, m.last.Passes, m.last.Duration.Seconds())))
	}

	var footer []string
	for _, n := range m.notices {
		footer = append(footer, noticeStyle.Render(n.at.Format("15:04:05")+" "+n.text))
	}
	footer = append(footer, helpKey.Render(hotkey.Chord)+helpStyle.Render(" or ")+
		helpKey.Render("r")+helpStyle.Render(" to toggle recording, ")+
		helpKey.Render("q")+helpStyle.Render(" to quit"))

	// Two border rows plus the padding column.
	docWidth := max(m.width-4, 10)
	docHeight := max(m.height-len(header)-len(footer)-2, 1)
	lines := tailLines(m.doc, docWidth, docHeight)
	for len(lines) < docHeight {
		lines = append(lines, "")
	}
	panel := docBorder.Width(docWidth + 1).Render(docStyle.Render(strings.Join(lines, "\n")))

	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(header, "\n"),
		panel,
		strings.Join(footer, "\n"),
	)
}

func (m tuiModel) statusLine() string {
	style := lipgloss.NewStyle().Foreground(phaseColors[m.status.Phase])
	mark := "○ "
	if m.status.Recording {
		mark = "● "
		style = style.Bold(true)
	}
	return style.Render(mark + m.status.Text)
}

// tailLines wraps text to width runes and returns at most the last n lines.
func tailLines(text string, width, n int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapText(para, width)...)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// wrapText breaks at the last space within width, or hard-wraps when a run
// has no spaces (Chinese text).
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	r := []rune(text)
	if len(r) == 0 {
		return []string{""}
	}
	var lines []string
	for len(r) > width {
		split := width
		for i := width; i > 0; i-- {
			if r[i] == ' ' {
				split = i
				break
			}
		}
		lines = append(lines, string(r[:split]))
		r = r[split:]
		for len(r) > 0 && r[0] == ' ' {
			r = r[1:]
		}
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}
