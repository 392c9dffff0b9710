package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
	"github.com/go-go-golems/infravoice/pkg/tui/widgets"
)

const recentDeployments = 5

type DashboardModel struct {
	width int

	stats  *services.Stats
	recent []services.Deployment
	user   *services.User
}

func NewDashboardModel() DashboardModel { return DashboardModel{} }

func (m DashboardModel) WithSize(width, _ int) DashboardModel {
	m.width = width
	return m
}

func (m DashboardModel) WithUser(u *services.User) DashboardModel {
	m.user = u
	return m
}

// Reload requests stats and the deployment list.
func (m DashboardModel) Reload() tea.Cmd {
	return tea.Batch(
		action(tui.ActionRequest{Kind: tui.ActionLoadStats}),
		action(tui.ActionRequest{Kind: tui.ActionRefreshDeployments}),
	)
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.StatsLoadedMsg:
		s := v.Loaded.Stats
		m.stats = &s
	case tui.DeploymentsLoadedMsg:
		ds := v.Loaded.Deployments
		if len(ds) > recentDeployments {
			ds = ds[:recentDeployments]
		}
		m.recent = ds
	case tea.KeyMsg:
		if v.String() == "r" {
			return m, m.Reload()
		}
	}
	return m, nil
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()

	var stats string
	if m.stats == nil {
		stats = theme.TitleMuted.Render("Loading stats…")
	} else {
		s := m.stats
		stats = strings.Join([]string{
			fmt.Sprintf("total      %d", s.TotalDeployments),
			theme.StatusOK.Render(fmt.Sprintf("active     %d", s.ActiveDeployments)),
			theme.StatusFailed.Render(fmt.Sprintf("failed     %d", s.FailedDeployments)),
			fmt.Sprintf("success    %.1f%%", s.SuccessRate),
			fmt.Sprintf("cost       $%.2f/month", s.TotalCost),
		}, "\n")
	}
	sections := []string{widgets.NewBox("Overview").WithContent(stats).WithSize(m.width, 0).Render()}

	if m.user != nil {
		u := m.user
		account := fmt.Sprintf("%s <%s>  tier %s\nAPI quota %d/%d used, %d left",
			u.Username, u.Email, u.SubscriptionTier, u.APICallsUsed, u.APIQuota, u.QuotaRemaining())
		sections = append(sections, widgets.NewBox("Account").WithContent(account).WithSize(m.width, 0).Render())
	}

	var recent string
	if len(m.recent) == 0 {
		recent = theme.TitleMuted.Render("No deployments yet.")
	} else {
		lines := make([]string, 0, len(m.recent))
		for _, d := range m.recent {
			icon, level := styles.DeploymentStatusIcon(string(d.Status))
			lines = append(lines, fmt.Sprintf("%s %-28s %-10s %s",
				theme.ForLevel(level).Render(icon), widgets.Truncate(d.Name, 28), d.Status, theme.TitleMuted.Render(d.CreatedAt.Short())))
		}
		recent = strings.Join(lines, "\n")
	}
	sections = append(sections, widgets.NewBox("Recent deployments").WithContent(recent).WithSize(m.width, 0).Render())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) Keybinds() []widgets.Keybind {
	return []widgets.Keybind{{Key: "r", Label: "reload"}}
}
