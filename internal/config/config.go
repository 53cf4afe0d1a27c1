// Package config resolves the settings both binaries need. Loaders are pure:
// they read from the supplied getenv and return an error instead of exiting,
// leaving the abort decision to main.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey    = "SQUASHFEATURE_API_KEY"
	EnvBaseURL   = "SQUASHFEATURE_BASE_URL"
	EnvProjectID = "SQUASHFEATURE_PROJECT_ID"
	EnvMode      = "SQUASHFEATURE_MODE"
	EnvOrigin    = "SQUASHFEATURE_ORIGIN"
	EnvLedgerDir = "SQUASHFEATURE_LEDGER_DIR"
)

const (
	ModeSelfHosted = "self-hosted"
	ModeHosted     = "hosted"
)

var (
	ErrMissing     = errors.New("missing required configuration")
	ErrInvalidMode = errors.New("invalid deployment mode")
)

// Client is the configuration of the widget and dashboard clients.
type Client struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	ProjectID string `yaml:"project_id"`
	Mode      string `yaml:"mode"`
	Origin    string `yaml:"origin"`
	LedgerDir string `yaml:"ledger_dir"`
}

// Load reads the client configuration from the environment.
func Load(getenv func(string) string) (Client, error) {
	var cfg Client
	applyEnv(&cfg, getenv)
	return cfg, cfg.validate()
}

// LoadFile reads a YAML configuration file and lets environment variables
// override any value it sets.
func LoadFile(path string, getenv func(string) string) (Client, error) {
	var cfg Client

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg, getenv)
	return cfg, cfg.validate()
}

func applyEnv(cfg *Client, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.APIKey, EnvAPIKey)
	set(&cfg.BaseURL, EnvBaseURL)
	set(&cfg.ProjectID, EnvProjectID)
	set(&cfg.Mode, EnvMode)
	set(&cfg.Origin, EnvOrigin)
	set(&cfg.LedgerDir, EnvLedgerDir)
}

func (c *Client) validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.BaseURL == "" {
		missing = append(missing, EnvBaseURL)
	}
	if c.ProjectID == "" {
		missing = append(missing, EnvProjectID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	switch c.Mode {
	case "":
		c.Mode = ModeSelfHosted
	case ModeSelfHosted, ModeHosted:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	return nil
}
