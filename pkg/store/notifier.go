// Package store holds the client-side state shared between CLI commands and
// TUI views: the signed-in user, the deployments seen so far and which
// modal dialogs are open. Stores are plain values; construct one per
// process and pass it where it is needed.
package store

import "sync"

// notifier fans change notifications out to subscribers. Callbacks run on
// the mutating goroutine after the store lock has been released.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// Subscribe registers fn and returns a function that removes it.
func (n *notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(){}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
