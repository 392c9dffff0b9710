package tui

import "github.com/go-go-golems/infravoice/pkg/wizard"

type WizardStateMsg struct {
	State wizard.State
	// Transition is nil for edits that kept the step.
	Transition *WizardTransition
}

type RecordingMsg struct {
	Status RecordingStatus
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

type ActionDoneMsg struct {
	Done ActionDone
}

type DeploymentsLoadedMsg struct {
	Loaded DeploymentsLoaded
}

type DeploymentLoadedMsg struct {
	Loaded DeploymentLoaded
}

type StatsLoadedMsg struct {
	Loaded StatsLoaded
}

// NavigateMsg switches the root view to a route such as
// /deployments/<id>.
type NavigateMsg struct {
	Path string
}

type AuthRequiredMsg struct{}

type ActionRequestMsg struct {
	Request ActionRequest
}
