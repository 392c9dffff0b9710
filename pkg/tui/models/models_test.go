package models

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and returns every message it produces, flattening batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func requests(cmd tea.Cmd) []tui.ActionRequest {
	var out []tui.ActionRequest
	for _, m := range collect(cmd) {
		if r, ok := m.(tui.ActionRequestMsg); ok {
			out = append(out, r.Request)
		}
	}
	return out
}

func onlyRequest(t *testing.T, cmd tea.Cmd) tui.ActionRequest {
	t.Helper()
	reqs := requests(cmd)
	require.Len(t, reqs, 1)
	return reqs[0]
}

func reviewingState() wizard.State {
	return wizard.State{
		Step:         wizard.StepReviewing,
		Mode:         wizard.ModeText,
		Text:         "a bucket",
		Provider:     services.ProviderAWS,
		Region:       "us-east-1",
		DeploymentID: "d1",
		Files: wizard.FileSet{
			{Name: "main.tf", Content: "resource \"aws_s3_bucket\" \"b\" {}", Language: "hcl"},
			{Name: "variables.tf", Content: "variable \"region\" {}", Language: "hcl"},
		},
	}
}

func TestWizardGenerateFromText(t *testing.T) {
	m := NewWizardModel(wizard.State{Step: wizard.StepInput, Mode: wizard.ModeText, Provider: services.ProviderAWS, Region: "us-east-1"}, nil, time.Second)
	m = m.WithSize(100, 40)

	m, _ = m.Update(key("i"))
	require.True(t, m.Capturing())
	for _, r := range "a web server" {
		m, _ = m.Update(key(string(r)))
	}
	m, cmd := m.Update(key("ctrl+g"))
	require.False(t, m.Capturing())

	req := onlyRequest(t, cmd)
	require.Equal(t, tui.ActionGenerate, req.Kind)
	require.Equal(t, wizard.ModeText, req.Mode)
	require.Equal(t, "a web server", req.Text)
	require.Equal(t, services.ProviderAWS, req.Provider)
	require.Equal(t, "us-east-1", req.Region)
}

func TestWizardProviderCycleFollowsDefaultRegion(t *testing.T) {
	m := NewWizardModel(wizard.State{Step: wizard.StepInput, Mode: wizard.ModeText, Provider: services.ProviderAWS, Region: services.DefaultRegion(services.ProviderAWS)}, nil, time.Second)
	m, _ = m.Update(key("p"))
	next := m.State().Provider
	require.NotEqual(t, services.ProviderAWS, next)

	m, cmd := m.Update(key("g"))
	req := onlyRequest(t, cmd)
	require.Equal(t, next, req.Provider)
	require.Equal(t, services.DefaultRegion(next), req.Region)
}

func TestWizardRecordingNeedsVoiceMode(t *testing.T) {
	m := NewWizardModel(wizard.State{Step: wizard.StepInput, Mode: wizard.ModeText}, nil, time.Second).WithSize(100, 40)
	m, cmd := m.Update(key("r"))
	require.Nil(t, cmd)
	require.Contains(t, m.View(), "voice mode")

	m, _ = m.Update(key("m"))
	m, cmd = m.Update(key("r"))
	require.Equal(t, tui.ActionRecordStart, onlyRequest(t, cmd).Kind)

	m, _ = m.Update(tui.RecordingMsg{Status: tui.RecordingStatus{At: time.Now(), Recording: true}})
	_, cmd = m.Update(key("r"))
	require.Equal(t, tui.ActionRecordStop, onlyRequest(t, cmd).Kind)
}

func TestWizardAudioFileField(t *testing.T) {
	m := NewWizardModel(wizard.State{Step: wizard.StepInput, Mode: wizard.ModeVoice}, nil, time.Second)
	m, _ = m.Update(key("f"))
	require.True(t, m.Capturing())
	for _, r := range "clip.wav" {
		m, _ = m.Update(key(string(r)))
	}
	_, cmd := m.Update(key("enter"))
	req := onlyRequest(t, cmd)
	require.Equal(t, tui.ActionTranscribe, req.Kind)
	require.Equal(t, "clip.wav", req.Path)
}

func TestWizardReviewKeys(t *testing.T) {
	modals := store.NewModalRegistry()
	m := NewWizardModel(wizard.State{Step: wizard.StepInput}, modals, time.Second).WithSize(100, 40)
	m, _ = m.Update(tui.WizardStateMsg{State: reviewingState()})

	// Deploy is not offered before the scan.
	_, cmd := m.Update(key("d"))
	require.Empty(t, requests(cmd))

	_, cmd = m.Update(key("s"))
	require.Equal(t, tui.ActionScan, onlyRequest(t, cmd).Kind)
	_, cmd = m.Update(key("k"))
	require.Equal(t, tui.ActionSkipScan, onlyRequest(t, cmd).Kind)

	m, _ = m.Update(key("l"))
	m, _ = m.Update(key("e"))
	require.True(t, m.Capturing())
	require.True(t, modals.IsOpen(store.ModalFileEditor))
	m, cmd = m.Update(key("ctrl+s"))
	require.False(t, modals.IsOpen(store.ModalFileEditor))
	req := onlyRequest(t, cmd)
	require.Equal(t, tui.ActionEditFile, req.Kind)
	require.Equal(t, "variables.tf", req.File)
	require.Equal(t, "variable \"region\" {}", req.Content)

	_, cmd = m.Update(key("x"))
	require.Equal(t, tui.ActionReset, onlyRequest(t, cmd).Kind)
}

func TestWizardReadyAndSuccess(t *testing.T) {
	m := NewWizardModel(wizard.State{Step: wizard.StepInput}, nil, time.Second).WithSize(100, 40)
	st := reviewingState()
	st.Step = wizard.StepReady
	st.Estimate = &services.CostEstimate{MonthlyCost: 12.5, AnnualCost: 150}
	m, _ = m.Update(tui.WizardStateMsg{State: st})
	require.Contains(t, m.View(), "12.50")

	_, cmd := m.Update(key("d"))
	require.Equal(t, tui.ActionDeploy, onlyRequest(t, cmd).Kind)

	st.Step = wizard.StepSuccess
	st.RedirectTo = wizard.DeploymentPath("d1")
	m, _ = m.Update(tui.WizardStateMsg{State: st})
	_, cmd = m.Update(key("enter"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	require.Equal(t, tui.NavigateMsg{Path: "/deployments/d1"}, msgs[0])
}

func TestDeploymentsFilterAndOpen(t *testing.T) {
	m := NewDeploymentsModel().WithSize(120, 30)
	m, cmd := m.Refresh()
	require.Equal(t, tui.ActionRefreshDeployments, onlyRequest(t, cmd).Kind)

	m, cmd = m.Update(key("f"))
	req := onlyRequest(t, cmd)
	require.Equal(t, services.StatusDeployed, req.StatusFilter)

	m, _ = m.Update(tui.DeploymentsLoadedMsg{Loaded: tui.DeploymentsLoaded{Deployments: []services.Deployment{
		{ID: "a", Name: "web", Status: services.StatusDeployed},
		{ID: "b", Name: "db", Status: services.StatusDeployed},
	}}})
	require.Contains(t, m.View(), "web")

	m, _ = m.Update(key("j"))
	_, cmd = m.Update(key("enter"))
	require.Equal(t, []tea.Msg{tui.NavigateMsg{Path: "/deployments/b"}}, collect(cmd))
}

func TestDeploymentDestroyConfirm(t *testing.T) {
	modals := store.NewModalRegistry()
	m := NewDeploymentModel(modals).WithSize(100, 40)
	m, cmd := m.Open("a")
	require.Equal(t, tui.ActionRequest{Kind: tui.ActionLoadDeployment, DeploymentID: "a"}, onlyRequest(t, cmd))

	m, _ = m.Update(tui.DeploymentLoadedMsg{Loaded: tui.DeploymentLoaded{Deployment: &services.Deployment{ID: "a", Name: "web", Status: services.StatusGenerated}}})
	m, _ = m.Update(key("d"))
	require.False(t, m.Capturing())
	require.Contains(t, m.View(), "only deployed infrastructure")

	m, _ = m.Update(tui.DeploymentLoadedMsg{Loaded: tui.DeploymentLoaded{Deployment: &services.Deployment{ID: "a", Name: "web", Status: services.StatusDeployed}}})
	m, _ = m.Update(key("d"))
	require.True(t, m.Capturing())

	m, cmd = m.Update(key("n"))
	require.False(t, m.Capturing())
	require.Nil(t, cmd)

	m, _ = m.Update(key("d"))
	m, cmd = m.Update(key("y"))
	require.False(t, m.Capturing())
	require.Equal(t, tui.ActionRequest{Kind: tui.ActionDestroy, DeploymentID: "a"}, onlyRequest(t, cmd))
	require.Contains(t, m.View(), "Destroying")

	// Stale loads for another deployment are ignored.
	m, _ = m.Update(tui.DeploymentLoadedMsg{Loaded: tui.DeploymentLoaded{Deployment: &services.Deployment{ID: "z", Name: "other"}}})
	require.NotContains(t, m.View(), "other")
}

func TestEventLogFilters(t *testing.T) {
	m := NewEventLogModel().WithSize(100, 20)
	m = m.Append(tui.EventLogEntry{Level: tui.LogLevelDebug, Text: "noise"})
	m = m.Append(tui.EventLogEntry{Level: tui.LogLevelInfo, Text: "generated 3 resources"})
	m = m.Append(tui.EventLogEntry{Level: tui.LogLevelError, Text: "scan failed"})
	require.Len(t, m.visible(), 2)

	m, _ = m.Update(key("v"))
	m, _ = m.Update(key("v"))
	require.Len(t, m.visible(), 1)

	m, _ = m.Update(key("v"))
	require.Len(t, m.visible(), 3)

	m, _ = m.Update(key("/"))
	require.True(t, m.Capturing())
	for _, r := range "scan" {
		m, _ = m.Update(key(string(r)))
	}
	m, _ = m.Update(key("enter"))
	require.False(t, m.Capturing())
	require.Len(t, m.visible(), 1)
	require.Equal(t, "scan failed", m.visible()[0].Text)
}

func TestEventLogCapsEntries(t *testing.T) {
	m := NewEventLogModel()
	for i := 0; i < 600; i++ {
		m = m.Append(tui.EventLogEntry{Text: "x"})
	}
	require.Len(t, m.Entries(), 500)
}

func TestRootRoutesActionsAndNavigation(t *testing.T) {
	var published []tui.ActionRequest
	root := NewRootModel(RootOptions{
		Initial: wizard.State{Step: wizard.StepInput, Mode: wizard.ModeText},
		Publish: func(r tui.ActionRequest) error {
			published = append(published, r)
			return nil
		},
	})

	kinds := map[tui.ActionKind]bool{}
	for _, r := range requests(root.Init()) {
		kinds[r.Kind] = true
	}
	require.True(t, kinds[tui.ActionLoadStats])
	require.True(t, kinds[tui.ActionRefreshDeployments])

	next, _ := root.Update(tui.ActionRequestMsg{Request: tui.ActionRequest{Kind: tui.ActionReset}})
	root = next.(RootModel)
	require.Len(t, published, 1)

	next, cmd := root.Update(key("2"))
	root = next.(RootModel)
	require.Equal(t, ViewDeployments, root.Active())
	require.Equal(t, tui.ActionRefreshDeployments, onlyRequest(t, cmd).Kind)

	next, cmd = root.Update(tui.NavigateMsg{Path: "/deployments/abc"})
	root = next.(RootModel)
	require.Equal(t, ViewDeployment, root.Active())
	require.Equal(t, "abc", onlyRequest(t, cmd).DeploymentID)

	next, _ = root.Update(BackMsg{})
	root = next.(RootModel)
	require.Equal(t, ViewDeployments, root.Active())

	next, _ = root.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	root = next.(RootModel)
	next, _ = root.Update(tui.AuthRequiredMsg{})
	root = next.(RootModel)
	require.Contains(t, root.View(), "infravoice login")
}

func TestRootTabsWaitForCapturedInput(t *testing.T) {
	root := NewRootModel(RootOptions{Initial: wizard.State{Step: wizard.StepInput, Mode: wizard.ModeText}})
	next, _ := root.Update(key("i"))
	root = next.(RootModel)
	next, _ = root.Update(key("2"))
	root = next.(RootModel)
	require.Equal(t, ViewWizard, root.Active())
	require.Contains(t, root.wizard.desc.Value(), "2")
}
