package stytch

import (
	"fmt"
	"strings"

	"github.com/graphberry/graphberry/internal/platform/config"
)

// Environments supported by Stytch projects.
const (
	EnvTest = "test"
	EnvLive = "live"
)

// Config holds Stytch project credentials and login-flow settings.
type Config struct {
	ProjectID      string `env:"STYTCH_PROJECT_ID"`
	Secret         string `env:"STYTCH_SECRET"`
	PublicToken    string `env:"STYTCH_PUBLIC_TOKEN"`
	Environment    string `env:"STYTCH_ENV"                 envDefault:"test"`
	RedirectURL    string `env:"REDIRECT_URL"               envDefault:"http://localhost:36016/auth/callback"`
	SessionMinutes int    `env:"GRAPHBERRY_SESSION_MINUTES" envDefault:"60"`
}

// LoadConfigFromEnv reads and validates Stytch configuration.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	cfg.PublicToken = strings.TrimSpace(cfg.PublicToken)
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.RedirectURL = strings.TrimSpace(cfg.RedirectURL)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("STYTCH_PROJECT_ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("STYTCH_SECRET is required")
	}
	if c.PublicToken == "" {
		return fmt.Errorf("STYTCH_PUBLIC_TOKEN is required")
	}
	if c.Environment != EnvTest && c.Environment != EnvLive {
		return fmt.Errorf("STYTCH_ENV must be %q or %q", EnvTest, EnvLive)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("REDIRECT_URL is required")
	}
	if c.SessionMinutes <= 0 {
		return fmt.Errorf("session duration must be positive")
	}
	return nil
}

// BaseURL returns the Stytch API origin for the configured environment.
// Live projects are served from api.stytch.com; everything else from the
// test origin.
func (c Config) BaseURL() string {
	if c.Environment == EnvLive {
		return "https://api.stytch.com"
	}
	return "https://test.stytch.com"
}
