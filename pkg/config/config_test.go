package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORTER_EMAIL", "user@example.com")
	t.Setenv("PORTER_PROTECTED_URL", "https://example.com/account/bookings")
	t.Setenv("PORTER_LOGIN_URL", "https://example.com/welcome")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.Email)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavTimeout)
	assert.Equal(t, 2, cfg.NavRetries)
	assert.Equal(t, 5*time.Second, cfg.LinkPollInterval)
	assert.Equal(t, 5*time.Minute, cfg.LinkTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.SubmitPollInterval)
	assert.Equal(t, 20, cfg.SubmitPollAttempts)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("PORTER_EMAIL", "")
	t.Setenv("PORTER_PROTECTED_URL", "")
	t.Setenv("PORTER_LOGIN_URL", "")

	_, err := Load("", "")
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "porter.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"PORTER_EMAIL=file@example.com\n"+
			"PORTER_PROTECTED_URL=https://example.com/account\n"+
			"PORTER_LOGIN_URL=https://example.com/welcome\n"+
			"PORTER_LINK_TIMEOUT=10m\n"), 0600))

	cfg, err := Load(envFile, "")
	require.NoError(t, err)
	assert.Equal(t, "file@example.com", cfg.Email)
	assert.Equal(t, 10*time.Minute, cfg.LinkTimeout)
}

func TestLoad_MissingEnvFileFails(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), "")
	assert.Error(t, err)
}

const profileYAML = `
positive_markers:
  - mes réservations
negative_markers:
  - connexion
phrases:
  - réservations à venir
content_selectors:
  - '[class*="reservation"]'
min_content_size: 300
`

func TestLoad_Profile(t *testing.T) {
	setRequiredEnv(t)

	profilePath := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(profileYAML), 0600))

	cfg, err := Load("", profilePath)
	require.NoError(t, err)

	assert.Equal(t, []string{"mes réservations"}, cfg.Profile.PositiveMarkers)
	assert.Equal(t, []string{"réservations à venir"}, cfg.Profile.Phrases)
	assert.Equal(t, 300, cfg.Profile.MinContentSize)

	// Profile lists flow into the component configs.
	detector := cfg.Detector()
	assert.Equal(t, []string{"mes réservations"}, detector.Positive)

	extractCfg := cfg.ExtractConfig()
	assert.Equal(t, []string{`[class*="reservation"]`}, extractCfg.ContentSelectors)
	assert.Equal(t, 300, extractCfg.MinContentSize)
}

func TestLoad_BadProfileFails(t *testing.T) {
	setRequiredEnv(t)

	profilePath := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte("positive_markers: {not: [a, list"), 0600))

	_, err := Load("", profilePath)
	assert.Error(t, err)
}

func TestConfig_ComponentBuilders(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORTER_HEADLESS", "false")
	t.Setenv("PORTER_NAV_RETRIES", "4")

	cfg, err := Load("", "")
	require.NoError(t, err)

	authCfg := cfg.AuthConfig()
	assert.Equal(t, "user@example.com", authCfg.Email)
	assert.Equal(t, "https://example.com/account/bookings", authCfg.ProtectedURL)

	opts := cfg.BrowserOptions()
	assert.False(t, opts.Headless)
	assert.Equal(t, 4, opts.NavRetries)
}
