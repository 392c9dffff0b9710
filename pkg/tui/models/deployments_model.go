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
	"github.com/go-go-golems/infravoice/pkg/wizard"
)

// statusFilters is the cycle order of the [f] key. The empty filter shows
// everything.
var statusFilters = []services.DeploymentStatus{
	"",
	services.StatusDeployed,
	services.StatusDeploying,
	services.StatusReady,
	services.StatusGenerated,
	services.StatusFailed,
	services.StatusDestroyed,
}

type DeploymentsModel struct {
	width  int
	height int

	deployments []services.Deployment
	cursor      int
	filter      int
	loaded      bool
	loading     bool
}

func NewDeploymentsModel() DeploymentsModel { return DeploymentsModel{} }

func (m DeploymentsModel) WithSize(width, height int) DeploymentsModel {
	m.width, m.height = width, height
	return m
}

func (m DeploymentsModel) Filter() services.DeploymentStatus { return statusFilters[m.filter] }

// Refresh marks the list as loading and returns the request for it.
func (m DeploymentsModel) Refresh() (DeploymentsModel, tea.Cmd) {
	m.loading = true
	return m, action(tui.ActionRequest{Kind: tui.ActionRefreshDeployments, StatusFilter: m.Filter()})
}

func (m DeploymentsModel) Selected() (services.Deployment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.deployments) {
		return services.Deployment{}, false
	}
	return m.deployments[m.cursor], true
}

func (m DeploymentsModel) Update(msg tea.Msg) (DeploymentsModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.DeploymentsLoadedMsg:
		m.deployments = v.Loaded.Deployments
		m.loaded = true
		m.loading = false
		if m.cursor >= len(m.deployments) {
			m.cursor = maxInt(0, len(m.deployments)-1)
		}
		return m, nil
	case tui.ActionDoneMsg:
		if v.Done.Kind == tui.ActionRefreshDeployments {
			m.loading = false
		}
		return m, nil
	case tea.KeyMsg:
		switch v.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.deployments)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = maxInt(0, len(m.deployments)-1)
		case "r":
			return m.Refresh()
		case "f":
			m.filter = (m.filter + 1) % len(statusFilters)
			m.cursor = 0
			return m.Refresh()
		case "enter":
			if d, ok := m.Selected(); ok {
				path := wizard.DeploymentPath(d.ID)
				return m, func() tea.Msg { return tui.NavigateMsg{Path: path} }
			}
		}
	}
	return m, nil
}

func (m DeploymentsModel) View() string {
	theme := styles.DefaultTheme()

	filter := "all"
	if f := m.Filter(); f != "" {
		filter = string(f)
	}
	title := fmt.Sprintf("Deployments (%d)", len(m.deployments))
	right := "status=" + filter
	if m.loading {
		right = "loading…  " + right
	}

	var content string
	switch {
	case !m.loaded && m.loading:
		content = theme.TitleMuted.Render("Loading deployments…")
	case len(m.deployments) == 0:
		content = theme.TitleMuted.Render("No deployments yet. Create one in the wizard tab.")
	default:
		content = m.table().Render()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		widgets.NewBox(title).WithTitleRight(right).WithContent(content).WithSize(m.width, 0).Render(),
	)
}

func (m DeploymentsModel) table() widgets.Table {
	cols := []widgets.TableColumn{
		{Header: "NAME", Width: 28},
		{Header: "STATUS", Width: 11},
		{Header: "PROVIDER", Width: 8},
		{Header: "REGION", Width: 12},
		{Header: "RES", Width: 4, Align: lipgloss.Right},
		{Header: "CREATED", Width: 16},
	}
	rows := make([]widgets.TableRow, 0, len(m.deployments))
	for _, d := range m.deployments {
		icon, level := styles.DeploymentStatusIcon(string(d.Status))
		rows = append(rows, widgets.TableRow{
			Icon:  icon,
			Level: level,
			Cells: []string{
				d.Name,
				string(d.Status),
				strings.ToUpper(string(d.CloudProvider)),
				d.Region,
				fmt.Sprint(len(d.Resources)),
				d.CreatedAt.Short(),
			},
		})
	}
	return widgets.NewTable(cols).WithRows(rows).WithCursor(m.cursor).WithSize(m.width-4, m.height-4)
}

func (m DeploymentsModel) Keybinds() []widgets.Keybind {
	return []widgets.Keybind{{Key: "↑/↓", Label: "select"}, {Key: "enter", Label: "open"}, {Key: "f", Label: "filter"}, {Key: "r", Label: "refresh"}}
}
