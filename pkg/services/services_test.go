package services_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/go-go-golems/infravoice/pkg/mockbackend"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *mockbackend.Server
	svc     *services.Services
	creds   *credentials.ScopedStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := mockbackend.New(mockbackend.Options{})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	creds := credentials.NewScopedStore(credentials.NewMemoryStorage(), credentials.NewMemoryStorage())
	client, err := api.New(api.Options{BaseURL: srv.URL, Credentials: creds})
	require.NoError(t, err)
	return &fixture{backend: backend, svc: services.New(client), creds: creds}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	tokens, err := f.svc.Auth.Login(context.Background(), services.LoginRequest{
		Email:    mockbackend.DefaultEmail,
		Password: mockbackend.DefaultPassword,
	})
	require.NoError(t, err)
	require.NoError(t, f.creds.Save(tokens, false))
}

func (f *fixture) generate(t *testing.T) *services.GenerateResponse {
	t.Helper()
	res, err := f.svc.Code.Generate(context.Background(), services.GenerateRequest{
		Description:   "web server with a postgres database",
		CloudProvider: services.ProviderAWS,
		Region:        "us-east-1",
	})
	require.NoError(t, err)
	return res
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Auth.Login(ctx, services.LoginRequest{Email: mockbackend.DefaultEmail, Password: "nope"})
	require.Error(t, err)
	require.Equal(t, "Incorrect email or password", api.Message(err, ""))

	f.login(t)
	u, err := f.svc.Auth.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, mockbackend.DefaultEmail, u.Email)
	require.Equal(t, 100, u.QuotaRemaining())
	require.False(t, u.CreatedAt.IsZero())
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Auth.Signup(context.Background(), services.SignupRequest{
		Email: "new@example.com", Username: "newbie", Password: "password1",
	})
	require.Error(t, err)
	require.Equal(t, "password: Password must contain at least one uppercase letter", api.Message(err, ""))

	u, err := f.svc.Auth.Signup(context.Background(), services.SignupRequest{
		Email: "new@example.com", Username: "newbie", Password: "Password1",
	})
	require.NoError(t, err)
	require.Equal(t, "newbie", u.Username)
}

func TestTranscribe(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	tr, err := f.svc.Voice.Transcribe(ctx, "note.webm", bytes.NewReader(make([]byte, 64000)))
	require.NoError(t, err)
	require.NotEmpty(t, tr.Transcript)
	require.InDelta(t, 2.0, tr.Duration, 0.001)

	_, err = f.svc.Voice.Transcribe(ctx, "note.ogg", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	require.Contains(t, api.Message(err, ""), "Unsupported audio format")

	h, err := f.svc.Voice.History(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, h.Total)
}

func TestGenerateScanEstimateDeploy(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	gen := f.generate(t)
	require.NotEmpty(t, gen.DeploymentID)
	require.Contains(t, gen.MainTF, "aws_instance")
	require.Contains(t, gen.VariablesTF, `"us-east-1"`)

	scan, err := f.svc.Security.Scan(ctx, gen.MainTF, gen.DeploymentID)
	require.NoError(t, err)
	require.Equal(t, gen.DeploymentID, scan.DeploymentID)
	require.Equal(t, 2, scan.FailedChecks)
	require.NotEmpty(t, scan.Grade())

	again, err := f.svc.Security.Get(ctx, scan.ID)
	require.NoError(t, err)
	require.Equal(t, scan.SecurityScore, again.SecurityScore)

	est, err := f.svc.Cost.Estimate(ctx, gen.MainTF, gen.DeploymentID)
	require.NoError(t, err)
	require.Greater(t, est.MonthlyCost, 0.0)
	require.InDelta(t, est.MonthlyCost*12, est.AnnualCost, 0.05)
	require.False(t, est.OverThreshold())
	require.Equal(t, []string{"compute", "database", "storage"}, est.BreakdownKeys())

	stored, err := f.svc.Cost.ForDeployment(ctx, gen.DeploymentID)
	require.NoError(t, err)
	require.Equal(t, est.ID, stored.ID)

	res, err := f.svc.Deployments.Deploy(ctx, gen.DeploymentID)
	require.NoError(t, err)
	require.Equal(t, gen.DeploymentID, res.DeploymentID)

	d, err := f.svc.Deployments.Get(ctx, gen.DeploymentID)
	require.NoError(t, err)
	require.Equal(t, services.StatusDeployed, d.Status)
	require.True(t, d.CanDestroy())

	st, err := f.svc.Deployments.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.TotalDeployments)
	require.Equal(t, 1, st.ActiveDeployments)

	_, err = f.svc.Deployments.Destroy(ctx, gen.DeploymentID)
	require.NoError(t, err)
	d, err = f.svc.Deployments.Get(ctx, gen.DeploymentID)
	require.NoError(t, err)
	require.False(t, d.CanDestroy())
}

func TestCodeGetUpdate(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()
	gen := f.generate(t)

	d, err := f.svc.Code.Update(ctx, gen.DeploymentID, "resource \"aws_s3_bucket\" \"b\" {}\n")
	require.NoError(t, err)
	require.Contains(t, d.TerraformCode, "aws_s3_bucket")

	d, err = f.svc.Code.Get(ctx, gen.DeploymentID)
	require.NoError(t, err)
	require.Contains(t, d.TerraformCode, "aws_s3_bucket")

	_, err = f.svc.Code.Update(ctx, gen.DeploymentID, "  ")
	require.Error(t, err)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()
	first := f.generate(t)
	f.generate(t)
	_, err := f.svc.Deployments.Deploy(ctx, first.DeploymentID)
	require.NoError(t, err)

	all, err := f.svc.Deployments.List(ctx, services.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	deployed, err := f.svc.Deployments.List(ctx, services.ListOptions{Status: services.StatusDeployed})
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	require.Equal(t, first.DeploymentID, deployed[0].ID)

	gcp, err := f.svc.Deployments.List(ctx, services.ListOptions{Provider: services.ProviderGCP})
	require.NoError(t, err)
	require.Empty(t, gcp)

	page, err := f.svc.Deployments.List(ctx, services.ListOptions{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestNotFoundAndValidation(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	_, err := f.svc.Deployments.Get(ctx, "missing")
	require.True(t, errors.Is(err, api.ErrNotFound))
	require.Equal(t, "Deployment not found", api.Message(err, ""))

	_, err = f.svc.Code.Generate(ctx, services.GenerateRequest{Description: "short", CloudProvider: services.ProviderAWS, Region: "us-east-1"})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "description: String should have at least 10 characters", apiErr.Detail)
}

func TestInjectedFailureDetail(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.Fail("security/scan", http.StatusInternalServerError, "Failed to scan Terraform code: boom", 1)

	_, err := f.svc.Security.Scan(context.Background(), "resource \"x\" \"y\" {}", "")
	require.Equal(t, "Failed to scan Terraform code: boom", api.Message(err, "fallback"))

	_, err = f.svc.Security.Scan(context.Background(), "resource \"x\" \"y\" {}", "")
	require.NoError(t, err)
	require.Equal(t, 2, f.backend.Calls("security/scan"))
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	before, err := f.creds.AccessToken()
	require.NoError(t, err)

	f.backend.ExpireAccessTokens()
	_, err = f.svc.Deployments.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.Calls("auth/refresh"))

	after, err := f.creds.AccessToken()
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestParseProvider(t *testing.T) {
	p, err := services.ParseProvider(" GCP ")
	require.NoError(t, err)
	require.Equal(t, services.ProviderGCP, p)
	require.Equal(t, "us-central1", services.DefaultRegion(p))

	_, err = services.ParseProvider("oracle")
	require.Error(t, err)
}

func TestSecurityGrade(t *testing.T) {
	require.Equal(t, "excellent", services.SecurityScan{SecurityScore: 8}.Grade())
	require.Equal(t, "good", services.SecurityScan{SecurityScore: 6.5}.Grade())
	require.Equal(t, "fair", services.SecurityScan{SecurityScore: 4}.Grade())
	require.Equal(t, "poor", services.SecurityScan{SecurityScore: 3.9}.Grade())
}
