package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/pkg/errors"
)

type CloudProvider string

const (
	ProviderAWS   CloudProvider = "aws"
	ProviderGCP   CloudProvider = "gcp"
	ProviderAzure CloudProvider = "azure"
)

var Providers = []CloudProvider{ProviderAWS, ProviderGCP, ProviderAzure}

func ParseProvider(s string) (CloudProvider, error) {
	p := CloudProvider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", errors.Errorf("unknown cloud provider %q (want aws, gcp or azure)", s)
}

// DefaultRegion is the region offered first for each provider.
func DefaultRegion(p CloudProvider) string {
	switch p {
	case ProviderGCP:
		return "us-central1"
	case ProviderAzure:
		return "eastus"
	default:
		return "us-east-1"
	}
}

type GenerateRequest struct {
	Description   string        `json:"description"`
	CloudProvider CloudProvider `json:"cloud_provider"`
	Region        string        `json:"region"`
}

type GenerateResponse struct {
	DeploymentID string   `json:"deployment_id"`
	MainTF       string   `json:"main_tf"`
	VariablesTF  string   `json:"variables_tf"`
	OutputsTF    string   `json:"outputs_tf"`
	Resources    []string `json:"resources"`
	Message      string   `json:"message"`
}

type CodeService struct {
	d Doer
}

func (s *CodeService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	err := s.d.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "code/generate",
		Body:   api.JSONBody(req),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the deployment record holding the stored Terraform code.
func (s *CodeService) Get(ctx context.Context, deploymentID string) (*Deployment, error) {
	var d Deployment
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "code/" + escape(deploymentID)}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *CodeService) Update(ctx context.Context, deploymentID, code string) (*Deployment, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("terraform code is empty")
	}
	var d Deployment
	err := s.d.Do(ctx, api.Request{
		Method: http.MethodPut,
		Path:   "code/" + escape(deploymentID),
		Body:   api.JSONBody(map[string]string{"terraform_code": code}),
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
