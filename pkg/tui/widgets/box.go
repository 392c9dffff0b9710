package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
)

// Box renders a bordered panel with a title line.
type Box struct {
	Title      string
	TitleRight string
	Content    string
	Width      int
	Height     int
	Active     bool
	theme      styles.Theme
}

func NewBox(title string) Box {
	return Box{Title: title, theme: styles.DefaultTheme()}
}

func (b Box) WithContent(content string) Box {
	b.Content = content
	return b
}

// WithTitleRight sets the right-aligned title text (usually key hints).
func (b Box) WithTitleRight(text string) Box {
	b.TitleRight = text
	return b
}

func (b Box) WithSize(width, height int) Box {
	b.Width = width
	b.Height = height
	return b
}

// WithActive highlights the border of the focused panel.
func (b Box) WithActive(active bool) Box {
	b.Active = active
	return b
}

func (b Box) Render() string {
	style := b.theme.Border
	if b.Active {
		style = b.theme.ActiveBorder
	}

	innerWidth := b.Width - 2
	if innerWidth < 0 {
		innerWidth = 0
	}

	body := b.Content
	if header := b.header(innerWidth); header != "" {
		body = header + "\n" + body
	}

	if b.Width > 0 {
		style = style.Width(innerWidth)
	}
	if b.Height > 0 {
		inner := b.Height - 2
		if b.Title != "" || b.TitleRight != "" {
			inner--
		}
		if inner < 0 {
			inner = 0
		}
		style = style.Height(inner)
	}
	return style.Render(body)
}

func (b Box) header(width int) string {
	if b.Title == "" && b.TitleRight == "" {
		return ""
	}
	left := b.theme.Title.Render(b.Title)
	right := b.theme.TitleMuted.Render(b.TitleRight)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)
}
