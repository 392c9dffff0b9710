package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/config"
	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	ConfigPath string
	Config     *config.File
	Timeout    time.Duration
	Ephemeral  bool
}

func AddRootFlags(root *cobra.Command) {
	addRootFlags(root)
}

func addRootFlags(root *cobra.Command) {
	addConnectionFlags(root.PersistentFlags())
}

func addConnectionFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (defaults to $XDG_CONFIG_HOME/infravoice/config.yaml)")
	fs.String("api-url", "", "Backend base URL (overrides config and INFRAVOICE_API_URL)")
	fs.String("profile-dir", "", "Directory for persistent credentials")
	fs.Duration("timeout", 0, "HTTP timeout for backend calls (defaults to config timeout)")
	fs.Bool("ephemeral", false, "Keep credentials in memory only; nothing is read from or written to disk")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	flags := cmd.Root().PersistentFlags()
	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return rootOptions{}, err
	}

	apiURL, err := flags.GetString("api-url")
	if err != nil {
		return rootOptions{}, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	profileDir, err := flags.GetString("profile-dir")
	if err != nil {
		return rootOptions{}, err
	}
	if profileDir != "" {
		cfg.ProfileDir = profileDir
	}
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout < 0 {
		return rootOptions{}, errors.New("timeout must be >= 0")
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	ephemeral, err := flags.GetBool("ephemeral")
	if err != nil {
		return rootOptions{}, err
	}
	if err := cfg.Validate(); err != nil {
		return rootOptions{}, errors.Wrap(err, "invalid configuration")
	}
	if _, err := cfg.ResolveProfileDir(); err != nil {
		return rootOptions{}, err
	}

	return rootOptions{ConfigPath: cfgPath, Config: cfg, Timeout: cfg.Timeout, Ephemeral: ephemeral}, nil
}

// app is the wiring every backend command shares.
type app struct {
	Config   *config.File
	Creds    *credentials.ScopedStore
	Client   *api.Client
	Services *services.Services
	Auth     *store.AuthStore
}

func newApp(opts rootOptions) (*app, error) {
	creds := credentials.NewScopedStore(
		credentials.NewPersistentStorage(opts.Config.ProfileDir),
		credentials.NewSessionStorage(opts.Config.ProfileDir),
	)
	if opts.Ephemeral {
		creds = credentials.NewScopedStore(credentials.NewMemoryStorage(), credentials.NewMemoryStorage())
	}
	client, err := api.New(api.Options{
		BaseURL:     opts.Config.APIURL,
		Timeout:     opts.Timeout,
		Credentials: creds,
	})
	if err != nil {
		return nil, err
	}
	svc := services.New(client)
	return &app{
		Config:   opts.Config,
		Creds:    creds,
		Client:   client,
		Services: svc,
		Auth:     store.NewAuthStore(svc.Auth, creds),
	}, nil
}

func appFromCmd(cmd *cobra.Command) (*app, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(opts)
}

// requireLogin fails early when no access token is stored.
func (a *app) requireLogin() error {
	tok, err := a.Creds.AccessToken()
	if err != nil {
		return errors.Wrap(err, "read credentials")
	}
	if tok == "" {
		return errors.Wrap(api.ErrLoginRequired, "run `infravoice login` first")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	_, _ = fmt.Fprintln(w, string(b))
	return nil
}

// commandError turns backend errors into the message the backend sent.
func commandError(err error, what string) error {
	if err == nil {
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return errors.Errorf("%s: %s", what, apiErr.Detail)
	}
	return errors.Wrap(err, what)
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(b), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
