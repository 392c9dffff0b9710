// Package services maps the backend's REST endpoints onto typed calls. Each
// method issues exactly one request through the shared api client; retries
// and token refresh are the client's business.
package services

import (
	"context"
	"net/url"

	"github.com/go-go-golems/infravoice/pkg/api"
)

// Doer is satisfied by *api.Client.
type Doer interface {
	Do(ctx context.Context, req api.Request, out any) error
}

// Services bundles one instance of every service over the same Doer.
type Services struct {
	Auth        *AuthService
	Voice       *VoiceService
	Code        *CodeService
	Security    *SecurityService
	Cost        *CostService
	Deployments *DeploymentService
}

func New(d Doer) *Services {
	return &Services{
		Auth:        &AuthService{d: d},
		Voice:       &VoiceService{d: d},
		Code:        &CodeService{d: d},
		Security:    &SecurityService{d: d},
		Cost:        &CostService{d: d},
		Deployments: &DeploymentService{d: d},
	}
}

// Message is the reply shape of endpoints that only acknowledge.
type Message struct {
	Message string `json:"message"`
}

func escape(id string) string { return url.PathEscape(id) }
