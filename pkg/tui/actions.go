package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/pkg/errors"
)

type ActionKind string

const (
	ActionTranscribe  ActionKind = "transcribe"
	ActionRecordStart ActionKind = "record-start"
	ActionRecordStop  ActionKind = "record-stop"
	ActionGenerate    ActionKind = "generate"
	ActionEditFile    ActionKind = "edit-file"
	ActionScan        ActionKind = "scan"
	ActionSkipScan    ActionKind = "skip-scan"
	ActionDeploy      ActionKind = "deploy"
	ActionReset       ActionKind = "reset"

	ActionRefreshDeployments ActionKind = "refresh-deployments"
	ActionLoadDeployment     ActionKind = "load-deployment"
	ActionDestroy            ActionKind = "destroy"
	ActionLoadStats          ActionKind = "load-stats"
)

// ActionRequest is what views publish on the action topic. Only the fields
// relevant to Kind are set.
type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	At   time.Time  `json:"at"`

	// generate
	Mode     wizard.InputMode       `json:"mode,omitempty"`
	Text     string                 `json:"text,omitempty"`
	Provider services.CloudProvider `json:"provider,omitempty"`
	Region   string                 `json:"region,omitempty"`

	// transcribe uses Path; edit-file uses File and Content.
	Path    string `json:"path,omitempty"`
	File    string `json:"file,omitempty"`
	Content string `json:"content,omitempty"`

	DeploymentID string                    `json:"deployment_id,omitempty"`
	StatusFilter services.DeploymentStatus `json:"status_filter,omitempty"`
}

func PublishAction(pub message.Publisher, req ActionRequest) error {
	if req.Kind == "" {
		return errors.New("missing action kind")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return publish(pub, TopicUIActions, UITypeActionRequest, req)
}

// Publisher returns a function views can hold to publish actions.
func Publisher(pub message.Publisher) func(ActionRequest) error {
	return func(req ActionRequest) error { return PublishAction(pub, req) }
}
