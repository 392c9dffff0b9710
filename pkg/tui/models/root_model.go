package models

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
	"github.com/go-go-golems/infravoice/pkg/tui/widgets"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/rs/zerolog/log"
)

type ViewID string

const (
	ViewWizard      ViewID = "wizard"
	ViewDeployments ViewID = "deployments"
	ViewDeployment  ViewID = "deployment"
	ViewDashboard   ViewID = "dashboard"
	ViewEvents      ViewID = "events"
)

var tabs = []ViewID{ViewWizard, ViewDeployments, ViewDashboard, ViewEvents}

var tabLabels = []string{"Wizard", "Deployments", "Dashboard", "Events"}

const authExpiredText = "Session expired. Run `infravoice login`, then restart."

type RootOptions struct {
	Initial       wizard.State
	User          *services.User
	RedirectDelay time.Duration
	Modals        *store.ModalRegistry
	// Publish sends action requests to the runner. Nil drops them.
	Publish func(tui.ActionRequest) error
	Start   ViewID
}

type RootModel struct {
	width  int
	height int

	active  ViewID
	publish func(tui.ActionRequest) error
	user    *services.User

	status      string
	statusLevel styles.Level
	authExpired bool

	wizard      WizardModel
	deployments DeploymentsModel
	deployment  DeploymentModel
	dashboard   DashboardModel
	events      EventLogModel
}

func NewRootModel(opts RootOptions) RootModel {
	if opts.Modals == nil {
		opts.Modals = store.NewModalRegistry()
	}
	if opts.Start == "" {
		opts.Start = ViewWizard
	}
	return RootModel{
		active:      opts.Start,
		publish:     opts.Publish,
		user:        opts.User,
		wizard:      NewWizardModel(opts.Initial, opts.Modals, opts.RedirectDelay),
		deployments: NewDeploymentsModel(),
		deployment:  NewDeploymentModel(opts.Modals),
		dashboard:   NewDashboardModel().WithUser(opts.User),
		events:      NewEventLogModel(),
	}
}

func (m RootModel) Active() ViewID { return m.active }

func (m RootModel) Init() tea.Cmd {
	return m.dashboard.Reload()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		h := maxInt(5, v.Height-5)
		m.wizard = m.wizard.WithSize(v.Width, h)
		m.deployments = m.deployments.WithSize(v.Width, h)
		m.deployment = m.deployment.WithSize(v.Width, h)
		m.dashboard = m.dashboard.WithSize(v.Width, h)
		m.events = m.events.WithSize(v.Width, h)
		return m, nil

	case tui.ActionRequestMsg:
		if m.publish != nil {
			if err := m.publish(v.Request); err != nil {
				log.Warn().Err(err).Str("action", string(v.Request.Kind)).Msg("publish action")
				m.status, m.statusLevel = err.Error(), styles.LevelFailed
			}
		}
		return m, nil

	case tui.NavigateMsg:
		return m.navigate(v.Path)

	case BackMsg:
		m.active = ViewDeployments
		return m, nil

	case tui.AuthRequiredMsg:
		m.authExpired = true
		return m, nil

	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		switch v.Entry.Level {
		case tui.LogLevelError:
			m.status, m.statusLevel = v.Entry.Text, styles.LevelFailed
		case tui.LogLevelWarn:
			m.status, m.statusLevel = v.Entry.Text, styles.LevelWarn
		}
		return m, nil

	case tui.WizardStateMsg, tui.RecordingMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.wizard, cmd = m.wizard.Update(msg)
		return m, cmd

	case tui.DeploymentsLoadedMsg:
		m.deployments, _ = m.deployments.Update(msg)
		m.dashboard, _ = m.dashboard.Update(msg)
		return m, nil

	case tui.DeploymentLoadedMsg:
		m.deployment, _ = m.deployment.Update(msg)
		return m, nil

	case tui.StatsLoadedMsg:
		m.dashboard, _ = m.dashboard.Update(msg)
		return m, nil

	case tui.ActionDoneMsg:
		if v.Done.Error == "" && m.statusLevel != styles.LevelFailed {
			m.status = ""
		}
		var c1, c2 tea.Cmd
		m.wizard, c1 = m.wizard.Update(msg)
		m.deployments, _ = m.deployments.Update(msg)
		m.deployment, c2 = m.deployment.Update(msg)
		return m, tea.Batch(c1, c2)

	case tea.KeyMsg:
		return m.updateKey(v)
	}

	// Cursor blinks and the rest belong to the active view.
	return m.updateActive(msg)
}

func (m RootModel) updateKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if !m.capturing() {
		switch k.String() {
		case "q":
			return m, tea.Quit
		case "tab":
			return m.switchTo(tabs[(m.tabIndex()+1)%len(tabs)])
		case "shift+tab":
			return m.switchTo(tabs[(m.tabIndex()+len(tabs)-1)%len(tabs)])
		case "1", "2", "3", "4":
			return m.switchTo(tabs[int(k.String()[0]-'1')])
		}
		if m.status != "" && k.String() == "esc" && m.active != ViewDeployment {
			m.status = ""
			m.statusLevel = styles.LevelIdle
			return m, nil
		}
	}
	return m.updateActive(k)
}

func (m RootModel) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case ViewWizard:
		m.wizard, cmd = m.wizard.Update(msg)
	case ViewDeployments:
		m.deployments, cmd = m.deployments.Update(msg)
	case ViewDeployment:
		m.deployment, cmd = m.deployment.Update(msg)
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewEvents:
		m.events, cmd = m.events.Update(msg)
	}
	return m, cmd
}

func (m RootModel) capturing() bool {
	switch m.active {
	case ViewWizard:
		return m.wizard.Capturing()
	case ViewDeployment:
		return m.deployment.Capturing()
	case ViewEvents:
		return m.events.Capturing()
	}
	return false
}

func (m RootModel) switchTo(v ViewID) (tea.Model, tea.Cmd) {
	m.active = v
	switch v {
	case ViewDeployments:
		var cmd tea.Cmd
		m.deployments, cmd = m.deployments.Refresh()
		return m, cmd
	case ViewDashboard:
		return m, m.dashboard.Reload()
	}
	return m, nil
}

func (m RootModel) navigate(path string) (tea.Model, tea.Cmd) {
	const prefix = "/deployments/"
	switch {
	case strings.HasPrefix(path, prefix) && len(path) > len(prefix):
		m.active = ViewDeployment
		var cmd tea.Cmd
		m.deployment, cmd = m.deployment.Open(strings.TrimPrefix(path, prefix))
		return m, cmd
	case path == "/deployments":
		return m.switchTo(ViewDeployments)
	case path == "/dashboard":
		return m.switchTo(ViewDashboard)
	}
	return m, nil
}

func (m RootModel) tabIndex() int {
	active := m.active
	if active == ViewDeployment {
		active = ViewDeployments
	}
	for i, t := range tabs {
		if t == active {
			return i
		}
	}
	return 0
}

func (m RootModel) View() string {
	user := ""
	if m.user != nil {
		user = m.user.Username
	}
	header := widgets.NewHeader("infravoice").WithTabs(tabLabels, m.tabIndex()).WithUser(user).WithWidth(m.width).Render()

	var body string
	var keys []widgets.Keybind
	switch m.active {
	case ViewDeployments:
		body, keys = m.deployments.View(), m.deployments.Keybinds()
	case ViewDeployment:
		body, keys = m.deployment.View(), m.deployment.Keybinds()
	case ViewDashboard:
		body, keys = m.dashboard.View(), m.dashboard.Keybinds()
	case ViewEvents:
		body, keys = m.events.View(), m.events.Keybinds()
	default:
		body, keys = m.wizard.View(), m.wizard.Keybinds()
	}
	if !m.capturing() {
		keys = append(keys, widgets.Keybind{Key: "tab", Label: "switch"}, widgets.Keybind{Key: "q", Label: "quit"})
	}

	status, level := m.status, m.statusLevel
	if m.authExpired {
		status, level = authExpiredText, styles.LevelFailed
	}
	footer := widgets.NewFooter(keys).WithWidth(m.width).WithStatus(status, level).Render()
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
