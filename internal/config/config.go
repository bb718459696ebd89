// Package config defines service configuration and its loading from
// defaults, a YAML file and MUGIC_ environment variables.
package config

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" yaml:"addr"`

	// QueueSize bounds the asynchronous evaluation queue.
	QueueSize int `koanf:"queue_size" yaml:"queue_size"`
	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count" yaml:"worker_count"`
	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size" yaml:"dedupe_size"`

	// AlignmentWindowMS is the onset tolerance used to pair notes.
	AlignmentWindowMS int `koanf:"alignment_window_ms" yaml:"alignment_window_ms"`
	// DisableDynamics drops the dynamics dimension from every evaluation.
	DisableDynamics bool `koanf:"disable_dynamics" yaml:"disable_dynamics"`

	StoreDriver string `koanf:"store_driver" yaml:"store_driver"`
	StoreDSN    string `koanf:"store_dsn" yaml:"store_dsn"`

	LLMProvider  string `koanf:"llm_provider" yaml:"llm_provider"`
	LLMModel     string `koanf:"llm_model" yaml:"llm_model"`
	LLMTimeoutMS int    `koanf:"llm_timeout_ms" yaml:"llm_timeout_ms"`
	OpenAIAPIKey string `koanf:"openai_api_key" yaml:"openai_api_key"`
	GeminiAPIKey string `koanf:"gemini_api_key" yaml:"gemini_api_key"`

	SentryDSN   string `koanf:"sentry_dsn" yaml:"sentry_dsn"`
	Environment string `koanf:"environment" yaml:"environment"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		AlignmentWindowMS: 500,
		StoreDriver:       "memory",
		LLMProvider:       "none",
		LLMTimeoutMS:      8000,
		Environment:       "development",
	}
}

// AlignmentWindow returns the alignment window in seconds.
func (c *Config) AlignmentWindow() float64 {
	return float64(c.AlignmentWindowMS) / 1000
}

// LLMTimeout returns the generative backend timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"text", "json"}
	storeDrivers = []string{"memory", "sqlite", "postgres"}
	llmProviders = []string{"none", "openai", "gemini"}
)

// Validate checks c and returns an ErrInvalidConfig wrapped error naming the
// first bad key.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !oneOf(c.LogLevel, logLevels):
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case !oneOf(c.LogFormat, logFormats):
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.AlignmentWindowMS <= 0:
		return fmt.Errorf("%w: alignment_window_ms must be positive", ErrInvalidConfig)
	case !oneOf(c.StoreDriver, storeDrivers):
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == "postgres" && c.StoreDSN == "":
		return fmt.Errorf("%w: store_dsn is required for postgres", ErrInvalidConfig)
	case !oneOf(c.LLMProvider, llmProviders):
		return fmt.Errorf("%w: llm_provider %q", ErrInvalidConfig, c.LLMProvider)
	case c.LLMTimeoutMS <= 0:
		return fmt.Errorf("%w: llm_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

const redacted = "REDACTED"

// WriteYAML writes the effective configuration to w with secrets redacted.
func (c *Config) WriteYAML(w io.Writer) error {
	out := *c
	for _, s := range []*string{&out.OpenAIAPIKey, &out.GeminiAPIKey, &out.SentryDSN, &out.StoreDSN} {
		if *s != "" {
			*s = redacted
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return enc.Close()
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
