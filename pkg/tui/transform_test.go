package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/stretchr/testify/require"
)

func TestTransitionReachesProgramWithLogLine(t *testing.T) {
	bus, sender := startBus(t, nil)

	st := wizard.State{Step: wizard.StepReviewing, Mode: wizard.ModeText, Text: "a bucket", DeploymentID: "d1"}
	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeWizardTransition, WizardTransition{
		From: wizard.StepGenerating, To: wizard.StepReviewing, At: time.Now(), State: st,
	}))

	msg := waitMsg(t, sender, func(m WizardStateMsg) bool { return m.State.Step == wizard.StepReviewing })
	require.NotNil(t, msg.Transition)
	require.Equal(t, wizard.StepGenerating, msg.Transition.From)
	require.Equal(t, "d1", msg.State.DeploymentID)

	entry := waitMsg(t, sender, func(m EventLogAppendMsg) bool { return m.Entry.Source == "wizard" })
	require.Equal(t, LogLevelInfo, entry.Entry.Level)
}

func TestBridgePublishesStateOfTransition(t *testing.T) {
	bus, sender := startBus(t, nil)
	b := &WizardBridge{Pub: bus.Publisher}

	b.OnTransition(wizard.Transition{
		From: wizard.StepScanning, To: wizard.StepEstimating, At: time.Now(),
		State: wizard.State{Step: wizard.StepEstimating, DeploymentID: "d2"},
	})

	msg := waitMsg(t, sender, func(m WizardStateMsg) bool { return m.State.Step == wizard.StepEstimating })
	require.Equal(t, "d2", msg.State.DeploymentID)
	require.Equal(t, wizard.StepScanning, msg.Transition.From)
}

func TestFailedTransitionLogsError(t *testing.T) {
	bus, sender := startBus(t, nil)

	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeWizardTransition, WizardTransition{
		From: wizard.StepGenerating, To: wizard.StepInput, Error: "quota exceeded",
		State: wizard.State{Step: wizard.StepInput, Error: "quota exceeded"},
	}))

	entry := waitMsg(t, sender, func(m EventLogAppendMsg) bool { return m.Entry.Level == LogLevelError })
	require.Contains(t, entry.Entry.Text, "quota exceeded")
}

func TestStateChangeHasNoTransition(t *testing.T) {
	bus, sender := startBus(t, nil)

	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeWizardState, WizardStateChanged{
		At: time.Now(), State: wizard.State{Step: wizard.StepInput, Error: "describe your infrastructure first"},
	}))

	msg := waitMsg[WizardStateMsg](t, sender, nil)
	require.Nil(t, msg.Transition)
	require.Equal(t, "describe your infrastructure first", msg.State.Error)
}

func TestLoadedEventsAreForwarded(t *testing.T) {
	bus, sender := startBus(t, nil)

	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeDeploymentsLoaded, DeploymentsLoaded{
		Deployments: []services.Deployment{{ID: "a", Name: "web", Status: services.StatusDeployed}},
	}))
	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeStatsLoaded, StatsLoaded{
		Stats: services.Stats{TotalDeployments: 3},
	}))
	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeNavigate, Navigate{Path: "/deployments/a"}))
	require.NoError(t, publish(bus.Publisher, TopicEvents, DomainTypeAuthRequired, AuthRequired{}))

	list := waitMsg[DeploymentsLoadedMsg](t, sender, nil)
	require.Len(t, list.Loaded.Deployments, 1)
	stats := waitMsg[StatsLoadedMsg](t, sender, nil)
	require.Equal(t, 3, stats.Loaded.Stats.TotalDeployments)
	nav := waitMsg[NavigateMsg](t, sender, nil)
	require.Equal(t, "/deployments/a", nav.Path)
	waitMsg[AuthRequiredMsg](t, sender, nil)
	waitMsg(t, sender, func(m EventLogAppendMsg) bool { return strings.Contains(m.Entry.Text, "login") })
}
