package config

import (
	"os"
	"time"

	"github.com/jinzhu/configor"
	version "github.com/mcuadros/go-version"
	"github.com/pkg/errors"
)

// MinSchemaVersion is the oldest config.yml schema this binary understands.
const MinSchemaVersion = "2.0.0"

// Config holds every tunable of the checker. Values come from config.yml
// when present, otherwise from the `default` tags.
type Config struct {
	SchemaVersion string `yaml:"schema_version" default:"2.0.0"`

	BaseURL   string `yaml:"base_url" default:"https://discord.com/api/v9"`
	UserAgent string `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`

	TokenFile string `yaml:"token_file" default:"tokens.txt"`
	ValidFile string `yaml:"valid_file" default:"valid.txt"`
	SaveValid bool   `yaml:"save_valid" default:"true"`

	MinTokenLength int  `yaml:"min_token_length" default:"50"`
	StrictFormat   bool `yaml:"strict_format" default:"false"`

	RetryLimit        int `yaml:"retry_limit" default:"3"`
	TimeoutSeconds    int `yaml:"timeout_seconds" default:"8"`
	RequestDelayMs    int `yaml:"request_delay_ms" default:"800"`
	MinRequestGapMs   int `yaml:"min_request_gap_ms" default:"200"`
	RetryAfterDefault int `yaml:"retry_after_default" default:"5"`
	BackoffBaseMs     int `yaml:"backoff_base_ms" default:"500"`
	JitterMaxMs       int `yaml:"jitter_max_ms" default:"300"`
}

func (c Config) Timeout() time.Duration       { return time.Duration(c.TimeoutSeconds) * time.Second }
func (c Config) RequestDelay() time.Duration  { return time.Duration(c.RequestDelayMs) * time.Millisecond }
func (c Config) MinRequestGap() time.Duration { return time.Duration(c.MinRequestGapMs) * time.Millisecond }
func (c Config) RetryAfter() time.Duration    { return time.Duration(c.RetryAfterDefault) * time.Second }
func (c Config) BackoffBase() time.Duration   { return time.Duration(c.BackoffBaseMs) * time.Millisecond }
func (c Config) JitterMax() time.Duration     { return time.Duration(c.JitterMaxMs) * time.Millisecond }

// Load reads path when it exists and falls back to defaults otherwise.
func Load(path string) (Config, error) {
	var cfg Config

	loader := configor.New(&configor.Config{Silent: true})

	if _, err := os.Stat(path); err == nil {
		if err := loader.Load(&cfg, path); err != nil {
			return Config{}, errors.Wrapf(err, "load config %q", path)
		}
	} else {
		if err := loader.Load(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "load default config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configs this binary cannot honor.
func (c Config) Validate() error {
	if version.Compare(version.Normalize(c.SchemaVersion), MinSchemaVersion, "<") {
		return errors.Errorf("config schema %s is older than supported %s", c.SchemaVersion, MinSchemaVersion)
	}
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if c.RetryLimit < 1 {
		return errors.New("retry_limit must be at least 1")
	}
	if c.MinTokenLength < 1 {
		return errors.New("min_token_length must be at least 1")
	}
	return nil
}
