package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/osgiliath/console/internal/auth"
)

// DefaultBackendURL is used when neither the profile nor a flag names one.
const DefaultBackendURL = "http://localhost:8080/api"

// Profile is what invoicectl remembers between runs.
type Profile struct {
	BackendURL string `yaml:"backend_url,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Token      string `yaml:"token,omitempty"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/invoicectl/config.yaml or the
// platform equivalent.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "invoicectl", "config.yaml"), nil
}

// LoadProfile reads the profile at path. A missing file is an empty profile.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &p, nil
}

// Save writes the profile readable by the owner only, replacing any
// previous file atomically.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// profileCredentials keeps auth.Credentials and the profile file in step.
type profileCredentials struct {
	*auth.Credentials

	mu      sync.Mutex
	profile *Profile
	path    string
	saveErr error
}

func newProfileCredentials(p *Profile, path string) *profileCredentials {
	creds := auth.NewCredentials()
	if p.Token != "" {
		creds.Set(p.Token, p.Username)
	}
	return &profileCredentials{Credentials: creds, profile: p, path: path}
}

func (c *profileCredentials) Set(token, username string) {
	c.Credentials.Set(token, username)
	c.persist(token, username)
}

func (c *profileCredentials) Invalidate() {
	c.Credentials.Invalidate()
	c.persist("", "")
}

func (c *profileCredentials) persist(token, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile.Token = token
	c.profile.Username = username
	c.saveErr = c.profile.Save(c.path)
}

// Err reports the last failure to write the profile.
func (c *profileCredentials) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveErr
}
