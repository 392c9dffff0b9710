package tui

import (
	"time"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/wizard"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Level  LogLevel  `json:"level,omitempty"`
	Text   string    `json:"text"`
}

// WizardTransition is a step change together with the state it produced.
type WizardTransition struct {
	From  wizard.Step  `json:"from"`
	To    wizard.Step  `json:"to"`
	At    time.Time    `json:"at"`
	Error string       `json:"error,omitempty"`
	State wizard.State `json:"state"`
}

// WizardStateChanged carries a snapshot taken after an edit that did not
// change the step.
type WizardStateChanged struct {
	At    time.Time    `json:"at"`
	State wizard.State `json:"state"`
}

type RecordingStatus struct {
	At        time.Time `json:"at"`
	Recording bool      `json:"recording"`
	Elapsed   float64   `json:"elapsed_seconds,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type ActionLog struct {
	At    time.Time  `json:"at"`
	Kind  ActionKind `json:"kind,omitempty"`
	Level LogLevel   `json:"level,omitempty"`
	Text  string     `json:"text"`
}

// ActionDone reports the end of an action. Views use it to stop spinners
// and show errors that did not go through the wizard.
type ActionDone struct {
	At    time.Time  `json:"at"`
	Kind  ActionKind `json:"kind"`
	Error string     `json:"error,omitempty"`
}

type DeploymentsLoaded struct {
	At          time.Time             `json:"at"`
	Deployments []services.Deployment `json:"deployments"`
}

type DeploymentLoaded struct {
	At         time.Time              `json:"at"`
	Deployment *services.Deployment   `json:"deployment,omitempty"`
	Cost       *services.CostEstimate `json:"cost,omitempty"`
}

type StatsLoaded struct {
	At    time.Time      `json:"at"`
	Stats services.Stats `json:"stats"`
}

type Navigate struct {
	At   time.Time `json:"at"`
	Path string    `json:"path"`
}

type AuthRequired struct {
	At time.Time `json:"at"`
}
