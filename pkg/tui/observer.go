package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/rs/zerolog/log"
)

// WizardBridge publishes wizard transitions and redirects as domain events.
// It is the controller's Observer and Navigator while the TUI runs.
type WizardBridge struct {
	Pub    message.Publisher
	Wizard *wizard.Controller
}

var (
	_ wizard.Observer  = (*WizardBridge)(nil)
	_ wizard.Navigator = (*WizardBridge)(nil)
)

// Attach installs the bridge on its controller.
func (b *WizardBridge) Attach() {
	b.Wizard.SetObserver(b)
	b.Wizard.SetNavigator(b)
}

func (b *WizardBridge) OnTransition(t wizard.Transition) {
	ev := WizardTransition{From: t.From, To: t.To, At: t.At, Error: t.Error, State: t.State}
	if err := publish(b.Pub, TopicEvents, DomainTypeWizardTransition, ev); err != nil {
		log.Warn().Err(err).Str("to", string(t.To)).Msg("publish wizard transition")
	}
}

// PublishState sends the current snapshot without a step change.
func (b *WizardBridge) PublishState() error {
	return publish(b.Pub, TopicEvents, DomainTypeWizardState, WizardStateChanged{At: time.Now(), State: b.Wizard.Snapshot()})
}

func (b *WizardBridge) Navigate(path string) {
	if err := publish(b.Pub, TopicEvents, DomainTypeNavigate, Navigate{At: time.Now(), Path: path}); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("publish navigate")
	}
}

// AuthFailureHook is installed as the api client's OnAuthFailure.
func AuthFailureHook(pub message.Publisher) func() {
	return func() {
		if err := publish(pub, TopicEvents, DomainTypeAuthRequired, AuthRequired{At: time.Now()}); err != nil {
			log.Warn().Err(err).Msg("publish auth required")
		}
	}
}
