package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = "config.yaml"
	AppDir                = "infravoice"

	EnvAPIURL     = "INFRAVOICE_API_URL"
	EnvProfileDir = "INFRAVOICE_PROFILE_DIR"
	EnvConfig     = "INFRAVOICE_CONFIG"
)

type File struct {
	APIURL        string        `yaml:"api_url"`
	ProfileDir    string        `yaml:"profile_dir,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	RedirectDelay time.Duration `yaml:"redirect_delay,omitempty"`
	Defaults      Defaults      `yaml:"defaults"`
	Recorder      Recorder      `yaml:"recorder,omitempty"`
}

type Defaults struct {
	Provider string `yaml:"provider,omitempty"`
	Region   string `yaml:"region,omitempty"`
}

type Recorder struct {
	// Command is the capture command line; "{file}" is replaced by the
	// output path.
	Command []string `yaml:"command,omitempty"`
}

func Default() *File {
	return &File{
		APIURL:        "http://localhost:8000",
		Timeout:       30 * time.Second,
		RedirectDelay: 3 * time.Second,
		Defaults: Defaults{
			Provider: string(services.ProviderAWS),
			Region:   "us-east-1",
		},
	}
}

func userDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate user config dir")
	}
	return filepath.Join(base, AppDir), nil
}

// DefaultPath is $XDG_CONFIG_HOME/infravoice/config.yaml.
func DefaultPath() (string, error) {
	dir, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFilename), nil
}

// DefaultProfileDir holds persistent credentials.
func DefaultProfileDir() (string, error) {
	return userDir()
}

// LoadFromFile reads path on top of the defaults.
func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "stat %s", p)
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load %s", p)
		}
	}
	return nil
}

// ApplyEnv overrides fields from INFRAVOICE_* variables.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		f.APIURL = v
	}
	if v, ok := lookup(EnvProfileDir); ok && v != "" {
		f.ProfileDir = v
	}
}

func (f *File) Validate() error {
	u, err := url.Parse(f.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("api_url %q must be an http(s) url", f.APIURL)
	}
	if f.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if f.RedirectDelay < 0 {
		return errors.New("redirect_delay must not be negative")
	}
	if _, err := services.ParseProvider(f.Defaults.Provider); err != nil {
		return errors.Wrap(err, "defaults.provider")
	}
	if f.Defaults.Region == "" {
		return errors.New("defaults.region is empty")
	}
	return nil
}

// ResolveProfileDir fills ProfileDir with the per-user default when unset.
func (f *File) ResolveProfileDir() (string, error) {
	if f.ProfileDir != "" {
		return f.ProfileDir, nil
	}
	dir, err := DefaultProfileDir()
	if err != nil {
		return "", err
	}
	f.ProfileDir = dir
	return dir, nil
}

// Load runs the whole chain: .env, the YAML file (path, or the default
// location when empty), then the environment.
func Load(path string) (*File, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		if v := os.Getenv(EnvConfig); v != "" {
			path = v
		}
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *File) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write config")
}
