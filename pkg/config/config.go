// Package config assembles porter's runtime configuration from the
// environment (with optional .env loading) and an optional YAML site
// profile. The ranked marker, phrase and selector lists consumed by the
// authentication predicate and the extraction pipeline are configuration
// data, not code; the profile replaces them wholesale per target site.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/porter/pkg/auth"
	"github.com/entrhq/porter/pkg/browser"
	"github.com/entrhq/porter/pkg/extract"
)

// Config is the environment-driven part of the configuration.
type Config struct {
	// Account identity the magic link is sent to.
	Email string `envconfig:"PORTER_EMAIL" required:"true"`

	// Protected page used as the empirical session probe, and the login
	// entry point carrying the email form.
	ProtectedURL string `envconfig:"PORTER_PROTECTED_URL" required:"true"`
	LoginURL     string `envconfig:"PORTER_LOGIN_URL" required:"true"`

	// Durable slots. Empty means the ~/.porter defaults.
	SessionPath   string `envconfig:"PORTER_SESSION_PATH"`
	MagicLinkPath string `envconfig:"PORTER_MAGIC_LINK_PATH"`

	// Browser behavior.
	Headless     bool          `envconfig:"PORTER_HEADLESS" default:"true"`
	NavTimeout   time.Duration `envconfig:"PORTER_NAV_TIMEOUT" default:"30s"`
	NavRetries   int           `envconfig:"PORTER_NAV_RETRIES" default:"2"`
	RetryBackoff time.Duration `envconfig:"PORTER_NAV_RETRY_BACKOFF" default:"2s"`

	// Hand-off wait. The timeout is a ceiling on human response time.
	LinkPollInterval time.Duration `envconfig:"PORTER_LINK_POLL_INTERVAL" default:"5s"`
	LinkTimeout      time.Duration `envconfig:"PORTER_LINK_TIMEOUT" default:"5m"`

	// Submit-enablement poll.
	SubmitPollInterval time.Duration `envconfig:"PORTER_SUBMIT_POLL_INTERVAL" default:"500ms"`
	SubmitPollAttempts int           `envconfig:"PORTER_SUBMIT_POLL_ATTEMPTS" default:"20"`

	// Interpreter. The API key itself stays in OPENAI_API_KEY.
	Model           string `envconfig:"PORTER_INTERPRETER_MODEL"`
	MaxPromptTokens int    `envconfig:"PORTER_MAX_PROMPT_TOKENS"`

	// Profile holds the YAML-provided ranked lists, zero-valued when no
	// profile file is given.
	Profile Profile `ignored:"true"`
}

// Profile is the per-site YAML tuning file. Every list left empty falls back
// to the package defaults of the consuming component.
type Profile struct {
	PositiveMarkers []string `yaml:"positive_markers"`
	NegativeMarkers []string `yaml:"negative_markers"`
	LoginPathHints  []string `yaml:"login_path_hints"`

	EmailSelectors  []string `yaml:"email_selectors"`
	SubmitSelectors []string `yaml:"submit_selectors"`

	Phrases          []string `yaml:"phrases"`
	ContentSelectors []string `yaml:"content_selectors"`
	MainSelectors    []string `yaml:"main_selectors"`
	MinContentSize   int      `yaml:"min_content_size"`
	MinMainSize      int      `yaml:"min_main_size"`
}

// Load reads the environment into a Config. envFile, when non-empty, is
// loaded into the environment first; a missing default .env is not an error.
// profilePath, when non-empty, must parse.
func Load(envFile, profilePath string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// Best-effort default .env in the working directory.
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if profilePath != "" {
		profile, err := LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		cfg.Profile = *profile
	}

	return &cfg, nil
}

// LoadProfile parses a YAML site profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &profile, nil
}

// Detector builds the authenticated-page detector from the profile lists.
func (c *Config) Detector() auth.Detector {
	return auth.NewDetector(c.Profile.PositiveMarkers, c.Profile.NegativeMarkers, c.Profile.LoginPathHints)
}

// AuthConfig builds the authentication controller configuration.
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		Email:              c.Email,
		ProtectedURL:       c.ProtectedURL,
		LoginURL:           c.LoginURL,
		EmailSelectors:     c.Profile.EmailSelectors,
		SubmitSelectors:    c.Profile.SubmitSelectors,
		LinkPollInterval:   c.LinkPollInterval,
		LinkTimeout:        c.LinkTimeout,
		SubmitPollInterval: c.SubmitPollInterval,
		SubmitPollAttempts: c.SubmitPollAttempts,
	}
}

// ExtractConfig builds the extraction pipeline configuration.
func (c *Config) ExtractConfig() extract.Config {
	return extract.Config{
		Phrases:          c.Profile.Phrases,
		ContentSelectors: c.Profile.ContentSelectors,
		MainSelectors:    c.Profile.MainSelectors,
		MinContentSize:   c.Profile.MinContentSize,
		MinMainSize:      c.Profile.MinMainSize,
	}
}

// BrowserOptions builds the browser engine options.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:     c.Headless,
		NavTimeout:   c.NavTimeout,
		NavRetries:   c.NavRetries,
		RetryBackoff: c.RetryBackoff,
	}
}
