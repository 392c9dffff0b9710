package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
	"github.com/go-go-golems/infravoice/pkg/tui/widgets"
)

// BackMsg asks the root to return to the deployment list.
type BackMsg struct{}

// DeploymentModel is the detail page of one deployment.
type DeploymentModel struct {
	width  int
	height int

	id         string
	deployment *services.Deployment
	cost       *services.CostEstimate
	destroying bool
	notice     string

	modals *store.ModalRegistry
	code   viewport.Model
}

func NewDeploymentModel(modals *store.ModalRegistry) DeploymentModel {
	if modals == nil {
		modals = store.NewModalRegistry()
	}
	return DeploymentModel{modals: modals, code: viewport.New(0, 0)}
}

func (m DeploymentModel) WithSize(width, height int) DeploymentModel {
	m.width, m.height = width, height
	m.code.Width = maxInt(20, width-4)
	m.code.Height = maxInt(3, height-16)
	return m
}

func (m DeploymentModel) ID() string { return m.id }

// Open switches the page to id and requests it.
func (m DeploymentModel) Open(id string) (DeploymentModel, tea.Cmd) {
	if id != m.id {
		m.deployment = nil
		m.cost = nil
		m.code.SetContent("")
	}
	m.id = id
	m.notice = ""
	m.destroying = false
	m.modals.Close(store.ModalConfirmDestroy)
	return m, action(tui.ActionRequest{Kind: tui.ActionLoadDeployment, DeploymentID: id})
}

// Capturing is true while the destroy confirmation is up.
func (m DeploymentModel) Capturing() bool {
	return m.modals.IsOpen(store.ModalConfirmDestroy)
}

func (m DeploymentModel) Update(msg tea.Msg) (DeploymentModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.DeploymentLoadedMsg:
		d := v.Loaded.Deployment
		if d == nil || d.ID != m.id {
			return m, nil
		}
		m.deployment = d
		m.cost = v.Loaded.Cost
		m.code.SetContent(numberLines(d.TerraformCode))
		return m, nil
	case tui.ActionDoneMsg:
		if v.Done.Kind == tui.ActionDestroy {
			m.destroying = false
		}
		if v.Done.Error != "" && (v.Done.Kind == tui.ActionDestroy || v.Done.Kind == tui.ActionLoadDeployment) {
			m.notice = v.Done.Error
		}
		return m, nil
	case tea.KeyMsg:
		if m.Capturing() {
			return m.updateConfirm(v)
		}
		switch v.String() {
		case "esc", "backspace":
			return m, func() tea.Msg { return BackMsg{} }
		case "r":
			return m.Open(m.id)
		case "d":
			if m.deployment == nil {
				return m, nil
			}
			if !m.deployment.CanDestroy() {
				m.notice = fmt.Sprintf("only deployed infrastructure can be destroyed (status: %s)", m.deployment.Status)
				return m, nil
			}
			m.modals.Open(store.ModalConfirmDestroy, m.deployment.ID)
			return m, nil
		}
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m DeploymentModel) updateConfirm(k tea.KeyMsg) (DeploymentModel, tea.Cmd) {
	switch k.String() {
	case "y", "Y":
		id, _ := m.modals.Data(store.ModalConfirmDestroy).(string)
		m.modals.Close(store.ModalConfirmDestroy)
		m.destroying = true
		m.notice = ""
		return m, action(tui.ActionRequest{Kind: tui.ActionDestroy, DeploymentID: id})
	case "n", "N", "esc":
		m.modals.Close(store.ModalConfirmDestroy)
	}
	return m, nil
}

func (m DeploymentModel) View() string {
	theme := styles.DefaultTheme()
	if m.deployment == nil {
		text := "Loading deployment " + m.id + "…"
		if m.notice != "" {
			text = theme.StatusFailed.Render(styles.IconError + " " + m.notice)
		}
		return widgets.NewBox("Deployment").WithContent(text).WithSize(m.width, 0).Render()
	}
	d := m.deployment

	icon, level := styles.DeploymentStatusIcon(string(d.Status))
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", theme.ForLevel(level).Render(icon+" "+string(d.Status)), theme.TitleMuted.Render(d.ID))
	fmt.Fprintf(&b, "provider %s  region %s\n", strings.ToUpper(string(d.CloudProvider)), d.Region)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n", theme.TitleMuted.Render(widgets.Truncate(d.Description, maxInt(20, m.width-4))))
	}
	fmt.Fprintf(&b, "created %s  deployed %s  destroyed %s\n", d.CreatedAt.Short(), d.DeployedAt.Short(), d.DestroyedAt.Short())
	if len(d.Resources) > 0 {
		fmt.Fprintf(&b, "resources: %s\n", strings.Join(d.Resources, ", "))
	}
	if d.ErrorMessage != "" {
		b.WriteString(theme.StatusFailed.Render(styles.IconError+" "+d.ErrorMessage) + "\n")
	}
	if m.cost != nil {
		line := fmt.Sprintf("cost $%.2f/month  $%.2f/year", m.cost.MonthlyCost, m.cost.AnnualCost)
		if m.cost.OverThreshold() {
			line = theme.StatusWarn.Render(line + "  " + styles.IconWarning)
		}
		b.WriteString(line + "\n")
	}

	title := d.Name
	if title == "" {
		title = "Deployment"
	}
	sections := []string{
		widgets.NewBox(title).WithContent(strings.TrimRight(b.String(), "\n")).WithSize(m.width, 0).Render(),
	}
	if d.TerraformCode != "" {
		sections = append(sections, widgets.NewBox("main.tf").WithContent(m.code.View()).WithSize(m.width, 0).Render())
	}

	if m.modals.IsOpen(store.ModalConfirmDestroy) {
		confirm := fmt.Sprintf("Destroy %s? All of its cloud resources will be deleted.\n\n[y] destroy  [n] cancel", title)
		sections = append(sections, widgets.NewBox("Confirm").
			WithContent(theme.StatusFailed.Render(confirm)).
			WithActive(true).
			WithSize(minInt(m.width, 60), 0).Render())
	}
	if m.destroying {
		sections = append(sections, theme.TitleMuted.Render("Destroying…"))
	}
	if m.notice != "" {
		sections = append(sections, theme.StatusWarn.Render(styles.IconWarning+" "+m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DeploymentModel) Keybinds() []widgets.Keybind {
	if m.Capturing() {
		return []widgets.Keybind{{Key: "y", Label: "destroy"}, {Key: "n", Label: "cancel"}}
	}
	kb := []widgets.Keybind{{Key: "esc", Label: "back"}, {Key: "r", Label: "reload"}}
	if m.deployment != nil && m.deployment.CanDestroy() {
		kb = append(kb, widgets.Keybind{Key: "d", Label: "destroy"})
	}
	return kb
}
