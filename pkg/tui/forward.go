package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// RegisterUIForwarder delivers UI messages to the program.
func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.AddHandler("ui-forward", TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg)
		if err != nil {
			return err
		}

		switch env.Type {
		case UITypeWizardState:
			var ev WizardTransition
			if err := env.Decode(&ev); err != nil {
				return err
			}
			out := WizardStateMsg{State: ev.State}
			if ev.From != "" || ev.To != "" {
				out.Transition = &ev
			}
			p.Send(out)
		case UITypeRecording:
			var ev RecordingStatus
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(RecordingMsg{Status: ev})
		case UITypeEventAppend:
			var entry EventLogEntry
			if err := env.Decode(&entry); err != nil {
				return err
			}
			p.Send(EventLogAppendMsg{Entry: entry})
		case UITypeActionDone:
			var ev ActionDone
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(ActionDoneMsg{Done: ev})
		case UITypeDeploymentsLoaded:
			var ev DeploymentsLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(DeploymentsLoadedMsg{Loaded: ev})
		case UITypeDeploymentLoaded:
			var ev DeploymentLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(DeploymentLoadedMsg{Loaded: ev})
		case UITypeStatsLoaded:
			var ev StatsLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(StatsLoadedMsg{Loaded: ev})
		case UITypeNavigate:
			var ev Navigate
			if err := env.Decode(&ev); err != nil {
				return err
			}
			p.Send(NavigateMsg{Path: ev.Path})
		case UITypeAuthRequired:
			p.Send(AuthRequiredMsg{})
		}
		return nil
	})
}
