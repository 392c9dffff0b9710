package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
)

type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

type TableRow struct {
	Icon  string
	Level styles.Level
	Cells []string
}

// Table renders rows under a header with a cursor. Only the rows around the
// cursor that fit in Height are shown.
type Table struct {
	Columns []TableColumn
	Rows    []TableRow
	Cursor  int
	Width   int
	Height  int
	theme   styles.Theme
}

func NewTable(cols []TableColumn) Table {
	return Table{Columns: cols, theme: styles.DefaultTheme()}
}

func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

func (t Table) WithSize(width, height int) Table {
	t.Width = width
	t.Height = height
	return t
}

func (t Table) Render() string {
	theme := t.theme
	lines := []string{t.headerLine()}
	if len(t.Rows) == 0 {
		return strings.Join(append(lines, theme.TitleMuted.Render("  (no data)")), "\n")
	}

	first, last := t.window()
	for i := first; i < last; i++ {
		row := t.Rows[i]
		selected := i == t.Cursor

		parts := []string{"  "}
		if selected {
			parts[0] = theme.KeybindKey.Render("> ")
		}
		icon := row.Icon
		if icon == "" {
			icon = " "
		}
		parts = append(parts, theme.ForLevel(row.Level).Render(icon)+" ")
		for j, cell := range row.Cells {
			st := t.cellStyle(j)
			if selected {
				st = st.Bold(true).Foreground(theme.Text)
			} else {
				st = st.Foreground(theme.TextDim)
			}
			parts = append(parts, st.Render(Truncate(cell, t.colWidth(j))))
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		if selected && t.Width > 0 {
			line = theme.Selected.Width(t.Width).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (t Table) headerLine() string {
	parts := []string{"    "}
	for j, c := range t.Columns {
		parts = append(parts, t.cellStyle(j).Bold(true).Foreground(t.theme.TextDim).Render(Truncate(c.Header, t.colWidth(j))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (t Table) window() (int, int) {
	n := len(t.Rows)
	visible := t.Height - 1
	if visible <= 0 || visible >= n {
		return 0, n
	}
	first := t.Cursor - visible/2
	if first < 0 {
		first = 0
	}
	if first+visible > n {
		first = n - visible
	}
	return first, first + visible
}

func (t Table) colWidth(j int) int {
	if j < len(t.Columns) && t.Columns[j].Width > 0 {
		return t.Columns[j].Width
	}
	return 16
}

func (t Table) cellStyle(j int) lipgloss.Style {
	st := lipgloss.NewStyle().Width(t.colWidth(j) + 1).PaddingRight(1)
	if j < len(t.Columns) {
		st = st.Align(t.Columns[j].Align)
	}
	return st
}

// Truncate shortens s to width cells, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
