package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DeploymentGetter is satisfied by *services.DeploymentService.
type DeploymentGetter interface {
	Get(ctx context.Context, id string) (*services.Deployment, error)
}

// DeploymentWatcher polls deployments the backend is still working on and
// patches the store when their status changes.
type DeploymentWatcher struct {
	Getter   DeploymentGetter
	Store    *store.DeploymentStore
	Interval time.Duration
	Pub      message.Publisher

	lastStatus map[string]services.DeploymentStatus
}

func (w *DeploymentWatcher) Run(ctx context.Context) error {
	if w.Getter == nil {
		return errors.New("missing Getter")
	}
	if w.Store == nil {
		return errors.New("missing Store")
	}
	if w.Pub == nil {
		return errors.New("missing Publisher")
	}
	if w.Interval <= 0 {
		w.Interval = 2 * time.Second
	}
	w.lastStatus = map[string]services.DeploymentStatus{}

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		w.Poll(ctx)
	}
}

// Poll checks every in-progress deployment once.
func (w *DeploymentWatcher) Poll(ctx context.Context) {
	if w.lastStatus == nil {
		w.lastStatus = map[string]services.DeploymentStatus{}
	}
	for _, known := range w.pending() {
		if ctx.Err() != nil {
			return
		}
		id := known.ID
		d, err := w.Getter.Get(ctx, id)
		if err != nil {
			log.Debug().Err(err).Str("deployment_id", id).Msg("poll deployment")
			continue
		}
		prev, ok := w.lastStatus[id]
		if !ok {
			// First sighting: compare against what the store last showed.
			prev = known.Status
		}
		w.lastStatus[id] = d.Status
		if prev == d.Status {
			continue
		}
		p := store.StatusPatch(d.Status)
		p.ErrorMessage = &d.ErrorMessage
		w.Store.Update(id, p)
		if prev != "" {
			w.publishChange(d, prev)
		}
	}
}

func (w *DeploymentWatcher) pending() []services.Deployment {
	seen := map[string]bool{}
	var ids []services.Deployment
	add := func(d services.Deployment) {
		if d.Status.InProgress() && !seen[d.ID] {
			seen[d.ID] = true
			ids = append(ids, d)
		}
	}
	if cur := w.Store.Current(); cur != nil {
		add(*cur)
	}
	for _, d := range w.Store.Deployments() {
		add(d)
	}
	return ids
}

func (w *DeploymentWatcher) publishChange(d *services.Deployment, prev services.DeploymentStatus) {
	level := LogLevelInfo
	text := fmt.Sprintf("deployment %s: %s → %s", d.Name, prev, d.Status)
	if d.Status == services.StatusFailed {
		level = LogLevelError
		if d.ErrorMessage != "" {
			text += ": " + d.ErrorMessage
		}
	}
	if err := publish(w.Pub, TopicEvents, DomainTypeActionLog, ActionLog{At: time.Now(), Level: level, Text: text}); err != nil {
		log.Warn().Err(err).Msg("publish deployment status")
	}
}
