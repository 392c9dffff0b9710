package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
)

type Keybind struct {
	Key   string
	Label string
}

// Header is the top bar: app title, the active tab list and the signed-in
// user.
type Header struct {
	Title  string
	Tabs   []string
	Active int
	User   string
	Width  int
	theme  styles.Theme
}

func NewHeader(title string) Header {
	return Header{Title: title, theme: styles.DefaultTheme()}
}

func (h Header) WithTabs(tabs []string, active int) Header {
	h.Tabs = tabs
	h.Active = active
	return h
}

func (h Header) WithUser(user string) Header {
	h.User = user
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

func (h Header) Render() string {
	theme := h.theme

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Text).
		Background(theme.Primary).
		Padding(0, 1).
		Render(h.Title)

	tabs := make([]string, 0, len(h.Tabs))
	for i, t := range h.Tabs {
		if i == h.Active {
			tabs = append(tabs, theme.KeybindKey.Underline(true).Render(t))
		} else {
			tabs = append(tabs, theme.TitleMuted.Render(t))
		}
	}
	left := title
	if len(tabs) > 0 {
		left = lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", strings.Join(tabs, "  "))
	}

	right := ""
	if h.User != "" {
		right = theme.TitleMuted.Render(styles.IconCloud + " " + h.User)
	}

	gap := h.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)
	return lipgloss.JoinVertical(lipgloss.Left, line, rule(h.Width, theme))
}

// RenderKeybinds renders "[k] label" hints separated by spaces.
func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds))
	for _, kb := range keybinds {
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]")+theme.Keybind.Render(" "+kb.Label))
	}
	return strings.Join(parts, "  ")
}

func rule(width int, theme styles.Theme) string {
	if width <= 0 {
		width = 80
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("━", width))
}
