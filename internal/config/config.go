package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the demo configuration.
type Config struct {
	LogLevel string `env:"TASKFLOW_LOG_LEVEL" envDefault:"info"`

	// Summary step retry policy
	MaxAttempts int           `env:"TASKFLOW_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay  time.Duration `env:"TASKFLOW_RETRY_DELAY" envDefault:"200ms"`

	// SectionSize is the number of paragraphs grouped in one section.
	SectionSize int    `env:"TASKFLOW_SECTION_SIZE" envDefault:"2"`
	Title       string `env:"TASKFLOW_TITLE" envDefault:"Summary"`

	// Optional outputs, disabled when empty
	DotFile     string `env:"TASKFLOW_DOT_FILE"`
	MetricsFile string `env:"TASKFLOW_METRICS_FILE"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse config")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return errors.Wrapf(ErrInvalidConfig, "log level %q must be debug, info, warn or error", c.LogLevel)
	}

	if c.MaxAttempts < 1 {
		return errors.Wrapf(ErrInvalidConfig, "max attempts must be at least 1, got %d", c.MaxAttempts)
	}

	if c.RetryDelay < 0 {
		return errors.Wrapf(ErrInvalidConfig, "retry delay must not be negative, got %s", c.RetryDelay)
	}

	if c.SectionSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "section size must be at least 1, got %d", c.SectionSize)
	}

	return nil
}
