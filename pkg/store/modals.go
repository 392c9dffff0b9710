package store

import "sync"

// Modal ids used by the TUI.
const (
	ModalConfirmDestroy = "confirm-destroy"
	ModalFileEditor     = "file-editor"
	ModalHelp           = "help"
)

type modal struct {
	open bool
	data any
}

// ModalRegistry tracks open dialogs by id. Closing keeps the last data so a
// reopened dialog can show it again.
type ModalRegistry struct {
	notifier

	mu     sync.Mutex
	modals map[string]modal
}

func NewModalRegistry() *ModalRegistry {
	return &ModalRegistry{modals: map[string]modal{}}
}

func (r *ModalRegistry) Open(id string, data any) {
	r.mu.Lock()
	r.modals[id] = modal{open: true, data: data}
	r.mu.Unlock()
	r.notify()
}

func (r *ModalRegistry) Close(id string) {
	r.mu.Lock()
	m, ok := r.modals[id]
	if ok {
		m.open = false
		r.modals[id] = m
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
}

func (r *ModalRegistry) IsOpen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modals[id].open
}

func (r *ModalRegistry) Data(id string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modals[id].data
}

// Top returns the id of an open modal, preferring the most severe one.
func (r *ModalRegistry) Top() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range []string{ModalConfirmDestroy, ModalFileEditor, ModalHelp} {
		if r.modals[id].open {
			return id, true
		}
	}
	for id, m := range r.modals {
		if m.open {
			return id, true
		}
	}
	return "", false
}
