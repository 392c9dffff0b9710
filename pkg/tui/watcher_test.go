package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	mu     sync.Mutex
	byID   map[string]services.Deployment
	called map[string]int
}

func (g *fakeGetter) set(d services.Deployment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byID[d.ID] = d
}

func (g *fakeGetter) Get(_ context.Context, id string) (*services.Deployment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.called[id]++
	d, ok := g.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &d, nil
}

func TestWatcherPatchesStatusChanges(t *testing.T) {
	bus, sender := startBus(t, nil)

	st := store.NewDeploymentStore()
	st.SetDeployments([]services.Deployment{
		{ID: "a", Name: "web", Status: services.StatusDeploying},
		{ID: "b", Name: "db", Status: services.StatusDeployed},
		{ID: "c", Name: "queue", Status: services.StatusDestroying},
	})
	g := &fakeGetter{byID: map[string]services.Deployment{}, called: map[string]int{}}
	g.set(services.Deployment{ID: "a", Name: "web", Status: services.StatusDeploying})
	w := &DeploymentWatcher{Getter: g, Store: st, Pub: bus.Publisher}

	ctx := context.Background()
	w.Poll(ctx)
	require.Equal(t, 1, g.called["a"])
	require.Equal(t, 0, g.called["b"])
	require.Equal(t, 1, g.called["c"])

	g.set(services.Deployment{ID: "a", Name: "web", Status: services.StatusFailed, ErrorMessage: "quota exceeded"})
	w.Poll(ctx)

	var got services.Deployment
	for _, d := range st.Deployments() {
		if d.ID == "a" {
			got = d
		}
	}
	require.Equal(t, services.StatusFailed, got.Status)
	require.Equal(t, "quota exceeded", got.ErrorMessage)

	entry := waitMsg(t, sender, func(m EventLogAppendMsg) bool { return strings.Contains(m.Entry.Text, "deployment web") })
	require.Equal(t, LogLevelError, entry.Entry.Level)
	require.Contains(t, entry.Entry.Text, "quota exceeded")

	// Finished deployments are no longer polled.
	w.Poll(ctx)
	require.Equal(t, 2, g.called["a"])
}

func TestWatcherLogsChangeSeenOnFirstPoll(t *testing.T) {
	bus, sender := startBus(t, nil)

	st := store.NewDeploymentStore()
	st.SetCurrent(&services.Deployment{ID: "a", Name: "web", Status: services.StatusDeploying})
	g := &fakeGetter{byID: map[string]services.Deployment{}, called: map[string]int{}}
	g.set(services.Deployment{ID: "a", Name: "web", Status: services.StatusDeployed})
	w := &DeploymentWatcher{Getter: g, Store: st, Pub: bus.Publisher}

	w.Poll(context.Background())

	require.Equal(t, services.StatusDeployed, st.Current().Status)
	entry := waitMsg(t, sender, func(m EventLogAppendMsg) bool { return strings.Contains(m.Entry.Text, "deployment web") })
	require.Equal(t, LogLevelInfo, entry.Entry.Level)
	require.Contains(t, entry.Entry.Text, "deploying → deployed")
}

func TestWatcherRequiresDependencies(t *testing.T) {
	w := &DeploymentWatcher{}
	require.Error(t, w.Run(context.Background()))
}
