package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))

	require.NoError(t, err)
	assert.Equal(t, "2.0.0", cfg.SchemaVersion)
	assert.Equal(t, "https://discord.com/api/v9", cfg.BaseURL)
	assert.Equal(t, "tokens.txt", cfg.TokenFile)
	assert.Equal(t, "valid.txt", cfg.ValidFile)
	assert.True(t, cfg.SaveValid)
	assert.Equal(t, 50, cfg.MinTokenLength)
	assert.False(t, cfg.StrictFormat)
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, 8*time.Second, cfg.Timeout())
	assert.Equal(t, 800*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, 200*time.Millisecond, cfg.MinRequestGap())
	assert.Equal(t, 5*time.Second, cfg.RetryAfter())
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffBase())
	assert.Equal(t, 300*time.Millisecond, cfg.JitterMax())
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `schema_version: "2.1.0"
base_url: "http://localhost:8080"
token_file: "checkme.txt"
min_token_length: 32
retry_limit: 5
timeout_seconds: 3
request_delay_ms: 250
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "2.1.0", cfg.SchemaVersion)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "checkme.txt", cfg.TokenFile)
	assert.Equal(t, 32, cfg.MinTokenLength)
	assert.Equal(t, 5, cfg.RetryLimit)
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay())
	// Untouched keys keep their defaults.
	assert.Equal(t, "valid.txt", cfg.ValidFile)
}

func TestLoadRejectsOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("schema_version: \"1.0.0\"\n"), 0o600))

	_, err := Load(path)

	assert.ErrorContains(t, err, "older than supported")
}

func TestValidate(t *testing.T) {
	base := Config{
		SchemaVersion:  "2.0.0",
		BaseURL:        "http://localhost",
		RetryLimit:     1,
		MinTokenLength: 1,
	}
	assert.NoError(t, base.Validate())

	noURL := base
	noURL.BaseURL = ""
	assert.ErrorContains(t, noURL.Validate(), "base_url")

	noRetries := base
	noRetries.RetryLimit = 0
	assert.ErrorContains(t, noRetries.Validate(), "retry_limit")

	noLength := base
	noLength.MinTokenLength = 0
	assert.ErrorContains(t, noLength.Validate(), "min_token_length")

	newer := base
	newer.SchemaVersion = "3.0.0"
	assert.NoError(t, newer.Validate())
}
