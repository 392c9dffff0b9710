package tui

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/pkg/errors"
)

// RegisterDomainToUITransformer turns domain events into UI messages and
// event-log lines.
func RegisterDomainToUITransformer(bus *Bus) {
	bus.AddHandler("domain-to-ui", TopicEvents, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg)
		if err != nil {
			return err
		}

		publishUI := func(uiType string, payload any) error {
			return publish(bus.Publisher, TopicUIMessages, uiType, payload)
		}
		publishEventText := func(at time.Time, source string, level LogLevel, text string) error {
			if at.IsZero() {
				at = time.Now()
			}
			return publishUI(UITypeEventAppend, EventLogEntry{At: at, Source: source, Level: level, Text: text})
		}

		switch env.Type {
		case DomainTypeWizardTransition:
			var ev WizardTransition
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeWizardState, ev); err != nil {
				return err
			}
			if ev.Error != "" {
				return publishEventText(ev.At, "wizard", LogLevelError, fmt.Sprintf("%s → %s: %s", ev.From, ev.To, ev.Error))
			}
			level := LogLevelInfo
			if ev.To.Transient() {
				level = LogLevelDebug
			}
			return publishEventText(ev.At, "wizard", level, transitionText(ev))
		case DomainTypeWizardState:
			var ev WizardStateChanged
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishUI(UITypeWizardState, ev)
		case DomainTypeRecording:
			var ev RecordingStatus
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeRecording, ev); err != nil {
				return err
			}
			switch {
			case ev.Error != "":
				return publishEventText(ev.At, "audio", LogLevelError, "recording failed: "+ev.Error)
			case ev.Recording:
				return publishEventText(ev.At, "audio", LogLevelInfo, "recording started")
			default:
				return publishEventText(ev.At, "audio", LogLevelInfo, fmt.Sprintf("recording stopped (%.1fs)", ev.Elapsed))
			}
		case DomainTypeActionLog:
			var ev ActionLog
			if err := env.Decode(&ev); err != nil {
				return err
			}
			level := ev.Level
			if level == "" {
				level = LogLevelInfo
			}
			return publishEventText(ev.At, "action", level, ev.Text)
		case DomainTypeActionDone:
			var ev ActionDone
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishUI(UITypeActionDone, ev)
		case DomainTypeDeploymentsLoaded:
			var ev DeploymentsLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishUI(UITypeDeploymentsLoaded, ev)
		case DomainTypeDeploymentLoaded:
			var ev DeploymentLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishUI(UITypeDeploymentLoaded, ev)
		case DomainTypeStatsLoaded:
			var ev StatsLoaded
			if err := env.Decode(&ev); err != nil {
				return err
			}
			return publishUI(UITypeStatsLoaded, ev)
		case DomainTypeNavigate:
			var ev Navigate
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeNavigate, ev); err != nil {
				return err
			}
			return publishEventText(ev.At, "wizard", LogLevelInfo, "navigate: "+ev.Path)
		case DomainTypeAuthRequired:
			var ev AuthRequired
			if err := env.Decode(&ev); err != nil {
				return errors.Wrap(err, "auth required")
			}
			if err := publishUI(UITypeAuthRequired, ev); err != nil {
				return err
			}
			return publishEventText(ev.At, "auth", LogLevelWarn, "session expired; run `infravoice login`")
		default:
			return nil
		}
	})
}

func transitionText(ev WizardTransition) string {
	switch ev.To {
	case wizard.StepReviewing:
		if ev.From == wizard.StepGenerating {
			return fmt.Sprintf("generated %d resources (deployment %s)", len(ev.State.Resources), ev.State.DeploymentID)
		}
	case wizard.StepReady:
		if ev.State.CostWarning != "" {
			return "ready to deploy (cost estimate unavailable: " + ev.State.CostWarning + ")"
		}
		if ev.State.Estimate != nil {
			return fmt.Sprintf("ready to deploy ($%.2f/month)", ev.State.Estimate.MonthlyCost)
		}
	case wizard.StepSuccess:
		return "deployment started: " + ev.State.DeploymentID
	}
	return fmt.Sprintf("%s → %s", ev.From, ev.To)
}
