package tui

const (
	TopicEvents     = "infravoice.events"
	TopicUIMessages = "infravoice.ui.msgs"
	TopicUIActions  = "infravoice.ui.actions"
)

// Domain events, published by the action runner, the wizard observer and
// the deployment watcher.
const (
	DomainTypeWizardTransition  = "wizard.transition"
	DomainTypeWizardState       = "wizard.state"
	DomainTypeRecording         = "recording.status"
	DomainTypeActionLog         = "action.log"
	DomainTypeActionDone        = "action.done"
	DomainTypeDeploymentsLoaded = "deployments.loaded"
	DomainTypeDeploymentLoaded  = "deployment.loaded"
	DomainTypeStatsLoaded       = "stats.loaded"
	DomainTypeNavigate          = "navigate"
	DomainTypeAuthRequired      = "auth.required"
)

// UI messages, forwarded into the bubbletea program.
const (
	UITypeWizardState       = "tui.wizard.state"
	UITypeRecording         = "tui.recording"
	UITypeEventAppend       = "tui.event.append"
	UITypeDeploymentsLoaded = "tui.deployments.loaded"
	UITypeDeploymentLoaded  = "tui.deployment.loaded"
	UITypeStatsLoaded       = "tui.stats.loaded"
	UITypeNavigate          = "tui.navigate"
	UITypeAuthRequired      = "tui.auth.required"
	UITypeActionDone        = "tui.action.done"

	UITypeActionRequest = "tui.action.request"
)
