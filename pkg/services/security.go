package services

import (
	"context"
	"net/http"

	"github.com/go-go-golems/infravoice/pkg/api"
)

const (
	ScoreExcellent = 8.0
	ScoreGood      = 6.0
	ScorePoor      = 4.0
)

type SecurityIssue struct {
	CheckID     string `json:"check_id"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	FilePath    string `json:"file_path"`
	LineNumber  *int   `json:"line_number,omitempty"`
	Guideline   string `json:"guideline,omitempty"`
}

type SecurityScan struct {
	ID             string          `json:"id"`
	DeploymentID   string          `json:"deployment_id"`
	SecurityScore  float64         `json:"security_score"`
	PassedChecks   int             `json:"passed_checks"`
	FailedChecks   int             `json:"failed_checks"`
	CriticalIssues int             `json:"critical_issues"`
	HighIssues     int             `json:"high_issues"`
	MediumIssues   int             `json:"medium_issues"`
	LowIssues      int             `json:"low_issues"`
	Issues         []SecurityIssue `json:"issues"`
	CreatedAt      api.Timestamp   `json:"created_at"`
	Message        string          `json:"message"`
}

// Grade buckets the 0-10 score the way the report is labelled.
func (s SecurityScan) Grade() string {
	switch {
	case s.SecurityScore >= ScoreExcellent:
		return "excellent"
	case s.SecurityScore >= ScoreGood:
		return "good"
	case s.SecurityScore >= ScorePoor:
		return "fair"
	default:
		return "poor"
	}
}

type scanRequest struct {
	TerraformCode string `json:"terraform_code"`
	DeploymentID  string `json:"deployment_id,omitempty"`
}

type SecurityService struct {
	d Doer
}

// Scan checks code. deploymentID may be empty for an unattached scan.
func (s *SecurityService) Scan(ctx context.Context, code, deploymentID string) (*SecurityScan, error) {
	var out SecurityScan
	err := s.d.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "security/scan",
		Body:   api.JSONBody(scanRequest{TerraformCode: code, DeploymentID: deploymentID}),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SecurityService) Get(ctx context.Context, scanID string) (*SecurityScan, error) {
	var out SecurityScan
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "security/" + escape(scanID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
