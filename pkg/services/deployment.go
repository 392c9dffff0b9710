package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/pkg/errors"
)

type DeploymentStatus string

const (
	StatusPending    DeploymentStatus = "pending"
	StatusGenerating DeploymentStatus = "generating"
	StatusGenerated  DeploymentStatus = "generated"
	StatusScanning   DeploymentStatus = "scanning"
	StatusEstimating DeploymentStatus = "estimating"
	StatusReady      DeploymentStatus = "ready"
	StatusDeploying  DeploymentStatus = "deploying"
	StatusDeployed   DeploymentStatus = "deployed"
	StatusFailed     DeploymentStatus = "failed"
	StatusDestroying DeploymentStatus = "destroying"
	StatusDestroyed  DeploymentStatus = "destroyed"
)

var statuses = []DeploymentStatus{
	StatusPending, StatusGenerating, StatusGenerated, StatusScanning, StatusEstimating,
	StatusReady, StatusDeploying, StatusDeployed, StatusFailed, StatusDestroying, StatusDestroyed,
}

func ParseStatus(s string) (DeploymentStatus, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Errorf("unknown deployment status %q", s)
}

// InProgress is true while the backend is still working on a deployment.
func (s DeploymentStatus) InProgress() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusScanning, StatusEstimating, StatusDeploying, StatusDestroying:
		return true
	}
	return false
}

type Deployment struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	CloudProvider CloudProvider    `json:"cloud_provider"`
	Region        string           `json:"region"`
	TerraformCode string           `json:"terraform_code,omitempty"`
	Status        DeploymentStatus `json:"status"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Resources     []string         `json:"resources"`
	CreatedAt     api.Timestamp    `json:"created_at"`
	UpdatedAt     api.Timestamp    `json:"updated_at"`
	DeployedAt    api.Timestamp    `json:"deployed_at"`
	DestroyedAt   api.Timestamp    `json:"destroyed_at"`
}

// CanDestroy is true only for live infrastructure.
func (d Deployment) CanDestroy() bool { return d.Status == StatusDeployed }

type Stats struct {
	TotalDeployments  int     `json:"total_deployments"`
	ActiveDeployments int     `json:"active_deployments"`
	FailedDeployments int     `json:"failed_deployments"`
	TotalCost         float64 `json:"total_cost"`
	SuccessRate       float64 `json:"success_rate"`
}

// ActionResult is returned by deploy and destroy.
type ActionResult struct {
	Message      string           `json:"message"`
	DeploymentID string           `json:"deployment_id"`
	Status       DeploymentStatus `json:"status"`
}

type ListOptions struct {
	Skip     int
	Limit    int
	Status   DeploymentStatus
	Provider CloudProvider
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Skip > 0 {
		q.Set("skip", strconv.Itoa(o.Skip))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Status != "" {
		q.Set("status_filter", string(o.Status))
	}
	if o.Provider != "" {
		q.Set("cloud_provider", string(o.Provider))
	}
	return q
}

type DeploymentService struct {
	d Doer
}

func (s *DeploymentService) List(ctx context.Context, opts ListOptions) ([]Deployment, error) {
	var out []Deployment
	err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "deployment/", Query: opts.query()}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DeploymentService) Get(ctx context.Context, id string) (*Deployment, error) {
	var d Deployment
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "deployment/" + escape(id)}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DeploymentService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "deployment/stats"}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *DeploymentService) Deploy(ctx context.Context, id string) (*ActionResult, error) {
	if id == "" {
		return nil, errors.New("missing deployment id")
	}
	var r ActionResult
	err := s.d.Do(ctx, api.Request{Method: http.MethodPost, Path: "deployment/" + escape(id) + "/deploy"}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *DeploymentService) Destroy(ctx context.Context, id string) (*ActionResult, error) {
	if id == "" {
		return nil, errors.New("missing deployment id")
	}
	var r ActionResult
	err := s.d.Do(ctx, api.Request{Method: http.MethodDelete, Path: "deployment/" + escape(id)}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
