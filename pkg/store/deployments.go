package store

import (
	"context"
	"sync"

	"github.com/go-go-golems/infravoice/pkg/services"
)

// Patch lists the deployment fields an Update may change. Nil fields are
// left alone.
type Patch struct {
	Name          *string
	Description   *string
	Status        *services.DeploymentStatus
	ErrorMessage  *string
	TerraformCode *string
	Resources     []string
}

func (p Patch) apply(d *services.Deployment) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.ErrorMessage != nil {
		d.ErrorMessage = *p.ErrorMessage
	}
	if p.TerraformCode != nil {
		d.TerraformCode = *p.TerraformCode
	}
	if p.Resources != nil {
		d.Resources = append([]string(nil), p.Resources...)
	}
}

// StatusPatch is shorthand for the most common update.
func StatusPatch(st services.DeploymentStatus) Patch {
	return Patch{Status: &st}
}

// Lister is satisfied by *services.DeploymentService.
type Lister interface {
	List(ctx context.Context, opts services.ListOptions) ([]services.Deployment, error)
}

type DeploymentStore struct {
	notifier

	mu          sync.Mutex
	deployments []services.Deployment
	current     *services.Deployment
}

func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{}
}

func (s *DeploymentStore) Deployments() []services.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.Deployment(nil), s.deployments...)
}

func (s *DeploymentStore) SetDeployments(ds []services.Deployment) {
	s.mu.Lock()
	s.deployments = append([]services.Deployment(nil), ds...)
	s.mu.Unlock()
	s.notify()
}

func (s *DeploymentStore) Current() *services.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	d := *s.current
	return &d
}

func (s *DeploymentStore) SetCurrent(d *services.Deployment) {
	s.mu.Lock()
	if d == nil {
		s.current = nil
	} else {
		cp := *d
		s.current = &cp
	}
	s.mu.Unlock()
	s.notify()
}

// Add prepends d.
func (s *DeploymentStore) Add(d services.Deployment) {
	s.mu.Lock()
	s.deployments = append([]services.Deployment{d}, s.deployments...)
	s.mu.Unlock()
	s.notify()
}

// Update applies p to the listed deployment with id and to the current
// deployment when it has the same id. It reports whether anything matched.
func (s *DeploymentStore) Update(id string, p Patch) bool {
	s.mu.Lock()
	matched := false
	for i := range s.deployments {
		if s.deployments[i].ID == id {
			p.apply(&s.deployments[i])
			matched = true
		}
	}
	if s.current != nil && s.current.ID == id {
		p.apply(s.current)
		matched = true
	}
	s.mu.Unlock()
	if matched {
		s.notify()
	}
	return matched
}

// Refresh replaces the list with a fresh page from the backend.
func (s *DeploymentStore) Refresh(ctx context.Context, l Lister, opts services.ListOptions) error {
	ds, err := l.List(ctx, opts)
	if err != nil {
		return err
	}
	s.SetDeployments(ds)
	return nil
}
