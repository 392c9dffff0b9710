package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *captureSender) Send(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSender) snapshot() []tea.Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tea.Msg(nil), c.msgs...)
}

// waitMsg returns the first captured message of type T that matches pred.
func waitMsg[T any](t *testing.T, c *captureSender, pred func(T) bool) T {
	t.Helper()
	var found T
	require.Eventually(t, func() bool {
		for _, m := range c.snapshot() {
			if v, ok := m.(T); ok && (pred == nil || pred(v)) {
				found = v
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return found
}

// startBus runs bus with the transformer and forwarder installed. register
// adds further handlers before the router starts.
func startBus(t *testing.T, register func(ctx context.Context, bus *Bus)) (*Bus, *captureSender) {
	t.Helper()
	bus, err := NewInMemoryBus()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sender := &captureSender{}
	RegisterDomainToUITransformer(bus)
	RegisterUIForwarder(bus, sender)
	if register != nil {
		register(ctx, bus)
	}

	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	select {
	case <-bus.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return bus, sender
}
