package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
)

// Stepper renders a row of labelled stages with the current one
// highlighted. Stages before Current are complete; Current == len(Labels)
// marks everything complete.
type Stepper struct {
	Labels  []string
	Current int
	Failed  bool
	theme   styles.Theme
}

func NewStepper(labels []string, current int) Stepper {
	return Stepper{Labels: labels, Current: current, theme: styles.DefaultTheme()}
}

func (s Stepper) WithFailed(failed bool) Stepper {
	s.Failed = failed
	return s
}

func (s Stepper) Render() string {
	parts := make([]string, 0, len(s.Labels)*2)
	for i, label := range s.Labels {
		var icon string
		var level styles.Level
		switch {
		case i < s.Current:
			icon, level = styles.IconSuccess, styles.LevelOK
		case i == s.Current && s.Failed:
			icon, level = styles.IconError, styles.LevelFailed
		case i == s.Current:
			icon, level = styles.IconRunning, styles.LevelActive
		default:
			icon, level = styles.IconPending, styles.LevelIdle
		}
		st := s.theme.ForLevel(level)
		if i == s.Current {
			st = st.Bold(true)
		}
		if i > 0 {
			parts = append(parts, s.theme.TitleMuted.Render(" ─ "))
		}
		parts = append(parts, st.Render(icon+" "+label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// ScoreBar renders a 0..max score, e.g. the security score out of 10.
type ScoreBar struct {
	Score float64
	Max   float64
	Width int
	Level styles.Level
	theme styles.Theme
}

func NewScoreBar(score, max float64) ScoreBar {
	return ScoreBar{Score: score, Max: max, Width: 20, theme: styles.DefaultTheme()}
}

func (b ScoreBar) WithWidth(w int) ScoreBar {
	if w < 5 {
		w = 5
	}
	b.Width = w
	return b
}

func (b ScoreBar) WithLevel(l styles.Level) ScoreBar {
	b.Level = l
	return b
}

func (b ScoreBar) Render() string {
	ratio := 0.0
	if b.Max > 0 {
		ratio = b.Score / b.Max
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*float64(b.Width) + 0.5)
	bar := b.theme.ForLevel(b.Level).Render(strings.Repeat("█", filled)) + strings.Repeat("░", b.Width-filled)
	return fmt.Sprintf("%s %.1f/%.0f", bar, b.Score, b.Max)
}
