package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette and base styles for the TUI.
type Theme struct {
	// Colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	Border       lipgloss.Style
	ActiveBorder lipgloss.Style
	Title        lipgloss.Style
	TitleMuted   lipgloss.Style
	Selected     lipgloss.Style
	Keybind      lipgloss.Style
	KeybindKey   lipgloss.Style
	Code         lipgloss.Style
	LineNumber   lipgloss.Style

	StatusOK      lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style
	StatusWarn    lipgloss.Style
}

// DefaultTheme returns the infravoice TUI theme.
func DefaultTheme() Theme {
	primary := lipgloss.Color("#2563EB")   // Blue
	secondary := lipgloss.Color("#06B6D4") // Cyan
	success := lipgloss.Color("#22C55E")
	warning := lipgloss.Color("#EAB308")
	errorC := lipgloss.Color("#EF4444")
	muted := lipgloss.Color("#6B7280")
	text := lipgloss.Color("#F9FAFB")
	textDim := lipgloss.Color("#9CA3AF")

	return Theme{
		Primary:   primary,
		Secondary: secondary,
		Success:   success,
		Warning:   warning,
		Error:     errorC,
		Muted:     muted,
		Text:      text,
		TextDim:   textDim,

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),
		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primary),

		Title:      lipgloss.NewStyle().Bold(true).Foreground(text),
		TitleMuted: lipgloss.NewStyle().Foreground(textDim),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(lipgloss.Color("#1E3A8A")),
		Keybind:    lipgloss.NewStyle().Foreground(textDim),
		KeybindKey: lipgloss.NewStyle().Bold(true).Foreground(secondary),
		Code:       lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB")),
		LineNumber: lipgloss.NewStyle().Foreground(muted),

		StatusOK:      lipgloss.NewStyle().Foreground(success),
		StatusFailed:  lipgloss.NewStyle().Foreground(errorC),
		StatusPending: lipgloss.NewStyle().Foreground(muted),
		StatusWarn:    lipgloss.NewStyle().Foreground(warning),
	}
}

// ForLevel picks the status style for an icon level.
func (t Theme) ForLevel(l Level) lipgloss.Style {
	switch l {
	case LevelOK:
		return t.StatusOK
	case LevelWarn:
		return t.StatusWarn
	case LevelFailed:
		return t.StatusFailed
	case LevelActive:
		return lipgloss.NewStyle().Foreground(t.Secondary)
	default:
		return t.StatusPending
	}
}
