package services

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-go-golems/infravoice/pkg/api"
)

// CostWarningThreshold is the monthly spend above which an estimate is
// flagged.
const CostWarningThreshold = 1000.0

type ResourceCost struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	MonthlyCost float64 `json:"monthly_cost"`
	Percentage  float64 `json:"percentage"`
}

type CostOptimization struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	PotentialSavings float64 `json:"potential_savings"`
	Priority         string  `json:"priority"`
}

type CostEstimate struct {
	ID              string             `json:"id"`
	DeploymentID    string             `json:"deployment_id"`
	MonthlyCost     float64            `json:"monthly_cost"`
	AnnualCost      float64            `json:"annual_cost"`
	Breakdown       map[string]float64 `json:"breakdown"`
	ResourceCosts   []ResourceCost     `json:"resource_costs"`
	Recommendations []CostOptimization `json:"recommendations"`
	CreatedAt       api.Timestamp      `json:"created_at"`
	Warning         string             `json:"warning,omitempty"`
	Message         string             `json:"message"`
}

func (e CostEstimate) OverThreshold() bool { return e.MonthlyCost > CostWarningThreshold }

// BreakdownKeys returns the breakdown categories in a stable order.
func (e CostEstimate) BreakdownKeys() []string {
	keys := make([]string, 0, len(e.Breakdown))
	for k := range e.Breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e CostEstimate) PotentialSavings() float64 {
	total := 0.0
	for _, r := range e.Recommendations {
		total += r.PotentialSavings
	}
	return total
}

type CostService struct {
	d Doer
}

func (s *CostService) Estimate(ctx context.Context, code, deploymentID string) (*CostEstimate, error) {
	var out CostEstimate
	err := s.d.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "cost/estimate",
		Body:   api.JSONBody(scanRequest{TerraformCode: code, DeploymentID: deploymentID}),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ForDeployment returns the latest stored estimate of a deployment.
func (s *CostService) ForDeployment(ctx context.Context, deploymentID string) (*CostEstimate, error) {
	var out CostEstimate
	err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "cost/" + escape(deploymentID) + "/cost"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
