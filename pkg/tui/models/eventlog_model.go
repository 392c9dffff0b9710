package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
	"github.com/go-go-golems/infravoice/pkg/tui/widgets"
)

var levelOrder = []tui.LogLevel{tui.LogLevelDebug, tui.LogLevelInfo, tui.LogLevelWarn, tui.LogLevelError}

func levelRank(l tui.LogLevel) int {
	for i, x := range levelOrder {
		if x == l {
			return i
		}
	}
	return 1
}

type EventLogModel struct {
	max     int
	entries []tui.EventLogEntry

	width  int
	height int

	searching bool
	search    textinput.Model
	filter    string
	minLevel  tui.LogLevel

	vp viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := EventLogModel{max: 500, search: search, minLevel: tui.LogLevelInfo}
	m.vp = viewport.New(0, 0)
	return m
}

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	usable := height - 4
	if usable < 3 {
		usable = 3
	}
	m.vp.Width = maxInt(0, width)
	m.vp.Height = usable
	return m.refresh(false)
}

func (m EventLogModel) Capturing() bool { return m.searching }

func (m EventLogModel) Entries() []tui.EventLogEntry { return m.entries }

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		switch k.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			return m.refresh(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		return m.refresh(true), nil
	case "c":
		m.entries = nil
		return m.refresh(true), nil
	case "v":
		m.minLevel = levelOrder[(levelRank(m.minLevel)+1)%len(levelOrder)]
		return m.refresh(true), nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]tui.EventLogEntry{}, m.entries[len(m.entries)-m.max:]...)
	}
	return m.refresh(true)
}

func (m EventLogModel) visible() []tui.EventLogEntry {
	out := make([]tui.EventLogEntry, 0, len(m.entries))
	floor := levelRank(m.minLevel)
	for _, e := range m.entries {
		if levelRank(e.Level) < floor {
			continue
		}
		if m.filter != "" && !strings.Contains(strings.ToLower(e.Text), strings.ToLower(m.filter)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	right := fmt.Sprintf("level≥%s", m.minLevel)
	if m.filter != "" {
		right = fmt.Sprintf("filter=%q  %s", m.filter, right)
	}
	var sections []string
	if m.searching {
		sections = append(sections, m.search.View())
	}
	title := fmt.Sprintf("Events (%d)", len(m.entries))
	if len(m.entries) == 0 {
		sections = append(sections, widgets.NewBox(title).
			WithTitleRight(right).
			WithContent(theme.TitleMuted.Render("(no events yet)")).
			WithSize(m.width, 5).Render())
	} else {
		sections = append(sections, widgets.NewBox(title).
			WithTitleRight(right).
			WithContent(m.vp.View()).
			WithSize(m.width, m.vp.Height+3).Render())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EventLogModel) refresh(gotoBottom bool) EventLogModel {
	theme := styles.DefaultTheme()
	entries := m.visible()
	if len(entries) == 0 {
		m.vp.SetContent("")
		return m
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		ts := e.At
		if ts.IsZero() {
			ts = time.Now()
		}
		source := strings.TrimSpace(e.Source)
		if source == "" {
			source = "system"
		}
		level := e.Level
		if level == "" {
			level = tui.LogLevelInfo
		}

		style := theme.TitleMuted
		switch level {
		case tui.LogLevelError:
			style = theme.StatusFailed
		case tui.LogLevelWarn:
			style = theme.StatusWarn
		}

		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Center,
			style.Render(styles.LogLevelIcon(string(level))),
			" ",
			theme.TitleMuted.Render(ts.Format("15:04:05")),
			" ",
			theme.TitleMuted.Render(fmt.Sprintf("[%s]", source)),
			"  ",
			style.Render(e.Text),
		))
	}
	m.vp.SetContent(strings.Join(lines, "\n") + "\n")
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func (m EventLogModel) Keybinds() []widgets.Keybind {
	if m.searching {
		return []widgets.Keybind{{Key: "enter", Label: "apply"}, {Key: "esc", Label: "cancel"}}
	}
	return []widgets.Keybind{{Key: "/", Label: "filter"}, {Key: "v", Label: "level"}, {Key: "c", Label: "clear"}, {Key: "↑/↓", Label: "scroll"}}
}
