package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
)

// Footer shows key hints and, above them, the latest status line.
type Footer struct {
	Keybinds []Keybind
	Status   string
	Level    styles.Level
	Width    int
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{Keybinds: keybinds, theme: styles.DefaultTheme()}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

func (f Footer) WithStatus(text string, level styles.Level) Footer {
	f.Status = text
	f.Level = level
	return f
}

func (f Footer) Render() string {
	lines := []string{rule(f.Width, f.theme)}
	if f.Status != "" {
		lines = append(lines, f.theme.ForLevel(f.Level).Width(f.Width).Render(f.Status))
	}
	lines = append(lines, RenderKeybinds(f.Keybinds, f.theme))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
