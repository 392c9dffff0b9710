package cmds

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/infravoice/pkg/mockbackend"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type cliHarness struct {
	t       *testing.T
	url     string
	profile string
	backend *mockbackend.Server
}

func newCLI(t *testing.T) *cliHarness {
	t.Helper()
	backend := mockbackend.New(mockbackend.Options{})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("INFRAVOICE_API_URL", "")
	t.Setenv("INFRAVOICE_CONFIG", "")
	return &cliHarness{t: t, url: srv.URL, profile: t.TempDir(), backend: backend}
}

func (c *cliHarness) root() *cobra.Command {
	root := &cobra.Command{Use: "infravoice", SilenceUsage: true, SilenceErrors: true}
	AddRootFlags(root)
	require.NoError(c.t, AddCommands(root))
	return root
}

func (c *cliHarness) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := c.root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api-url", c.url, "--profile-dir", c.profile}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cliHarness) login() {
	c.t.Helper()
	out, err := c.run(mockbackend.DefaultPassword+"\n", "login", "--email", mockbackend.DefaultEmail)
	require.NoError(c.t, err)
	require.Contains(c.t, out, "Logged in as demo")
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "whoami")
	require.Error(t, err)
	require.Contains(t, err.Error(), "infravoice login")

	_, err = c.run("", "login", "--email", mockbackend.DefaultEmail, "--password", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Incorrect email or password")

	c.login()
	out, err := c.run("", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, mockbackend.DefaultEmail)
	require.Contains(t, out, `"scope": "session"`)

	out, err = c.run("", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")
	_, err = c.run("", "whoami")
	require.Error(t, err)
}

func TestRememberMeUsesProfileDir(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "login", "--email", mockbackend.DefaultEmail, "--password", mockbackend.DefaultPassword, "--remember-me")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(c.profile, "credentials.json"))
	require.NoError(t, err)
}

func TestEphemeralLoginWritesNothing(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "--ephemeral", "login", "--email", mockbackend.DefaultEmail, "--password", mockbackend.DefaultPassword, "--remember-me")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as demo")

	_, err = os.Stat(filepath.Join(c.profile, "credentials.json"))
	require.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(os.Getenv("XDG_RUNTIME_DIR"))
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = c.run("", "whoami")
	require.Error(t, err)
	require.Contains(t, err.Error(), "infravoice login")
}

func TestGenerateWritesFiles(t *testing.T) {
	c := newCLI(t)
	c.login()

	_, err := c.run("", "generate", "--description", "   ")
	require.Error(t, err)
	require.Equal(t, 0, c.backend.Calls("code/generate"))

	dir := t.TempDir()
	out, err := c.run("", "generate", "-d", "a web server with a postgres database", "--provider", "gcp", "--out-dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote main.tf")
	for _, name := range []string{"main.tf", "variables.tf", "outputs.tf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	out, err = c.run("", "scan", filepath.Join(dir, "main.tf"))
	require.NoError(t, err)
	require.Contains(t, out, "Security score")

	out, err = c.run("", "estimate", filepath.Join(dir, "main.tf"))
	require.NoError(t, err)
	require.Contains(t, out, "/month")
}

func TestRefresh(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "refresh")
	require.Error(t, err)
	require.Contains(t, err.Error(), "infravoice login")

	c.login()
	out, err := c.run("", "refresh")
	require.NoError(t, err)
	require.Contains(t, out, "Refreshed access token")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, `"scope": "session"`)
}

func TestUpdateCode(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, err := c.run("", "generate", "-d", "an s3 bucket", "--json")
	require.NoError(t, err)
	id := jsonField(t, out, "deployment_id")

	code := "resource \"aws_s3_bucket\" \"logs\" {}\n"
	out, err = c.run(code, "deployments", "update-code", id, "-")
	require.NoError(t, err)
	require.Contains(t, out, "Updated "+id)
	require.Equal(t, 1, c.backend.Calls("code/update"))

	out, err = c.run("", "deployments", "get", id, "--code")
	require.NoError(t, err)
	require.Contains(t, out, `aws_s3_bucket" "logs"`)

	_, err = c.run("  ", "deployments", "update-code", id, "-")
	require.Error(t, err)
}

func TestTranscribeFile(t *testing.T) {
	c := newCLI(t)
	c.login()

	_, err := c.run("", "transcribe", "notes.txt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported audio format")

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	out, err := c.run("", "transcribe", path)
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))
}

func TestDeployAndDestroy(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, err := c.run("", "generate", "-d", "an s3 bucket", "--json")
	require.NoError(t, err)
	id := jsonField(t, out, "deployment_id")

	_, err = c.run("", "deployments", "destroy", id, "--yes")
	require.Error(t, err)
	require.Contains(t, err.Error(), "only deployed infrastructure")

	out, err = c.run("", "deployments", "deploy", id)
	require.NoError(t, err)
	require.Contains(t, out, "Deployment started")

	_, err = c.run("no\n", "deployments", "destroy", id)
	require.Error(t, err)
	require.Equal(t, 0, c.backend.Calls("deployment/destroy"))

	out, err = c.run("yes\n", "deployments", "destroy", id)
	require.NoError(t, err)
	require.Contains(t, out, "Destruction started")

	out, err = c.run("", "deployments", "get", id)
	require.NoError(t, err)
	require.Contains(t, out, `"status": "destroyed"`)

	_, err = c.run("", "deployments", "cost", id)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no cost estimate")

	out, err = c.run("", "dashboard", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"total_deployments": 1`)
}

func TestDeploymentsTable(t *testing.T) {
	out := deploymentsTable([]services.Deployment{
		{ID: "a1", Name: "web", Status: services.StatusDeployed, CloudProvider: services.ProviderAWS, Region: "us-east-1", Resources: []string{"x", "y"}},
	})
	require.Contains(t, out, "web")
	require.Contains(t, out, "AWS")
	require.Contains(t, out, "STATUS")
}

func TestListOptionsValidation(t *testing.T) {
	c := &DeploymentsListCommand{}
	_, err := c.listOptions(&DeploymentsListSettings{Limit: 0})
	require.Error(t, err)
	_, err = c.listOptions(&DeploymentsListSettings{Limit: 10, Provider: "ibm"})
	require.Error(t, err)
	opts, err := c.listOptions(&DeploymentsListSettings{Limit: 10, Status: "deployed", Provider: "AWS"})
	require.NoError(t, err)
	require.Equal(t, services.ProviderAWS, opts.Provider)
	require.Equal(t, services.StatusDeployed, opts.Status)
}

func jsonField(t *testing.T, out, field string) string {
	t.Helper()
	key := `"` + field + `": "`
	i := strings.Index(out, key)
	require.GreaterOrEqual(t, i, 0, out)
	rest := out[i+len(key):]
	return rest[:strings.Index(rest, `"`)]
}
