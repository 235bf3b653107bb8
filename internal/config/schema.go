package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds pdftoc configuration.
// Stored at: ./config.yaml or ~/.pdftoc/config.yaml
type Config struct {
	Recognizer RecognizerCfg `mapstructure:"recognizer" yaml:"recognizer"`
	Pipeline   PipelineCfg   `mapstructure:"pipeline" yaml:"pipeline"`
	LogLevel   string        `mapstructure:"log_level" yaml:"log_level"`
}

// RecognizerCfg configures the vision/completion service.
type RecognizerCfg struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"` // "openrouter", "openai"
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute, 0 = unlimited
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	PromptsDir  string        `mapstructure:"prompts_dir" yaml:"prompts_dir"`
}

// PipelineCfg configures rendering and scheduling.
type PipelineCfg struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	DPI         int    `mapstructure:"dpi" yaml:"dpi"`
	Workspace   string `mapstructure:"workspace" yaml:"workspace"` // default: ~/.pdftoc/work
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Recognizer: RecognizerCfg{
			Provider:    "openrouter",
			APIKey:      "${OPENROUTER_API_KEY}",
			Model:       "google/gemini-2.5-flash",
			Temperature: 0.1,
			MaxTokens:   16384,
			Timeout:     30 * time.Second,
			RateLimit:   60,
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
		},
		Pipeline: PipelineCfg{
			Concurrency: 3,
			DPI:         150,
		},
		LogLevel: "info",
	}
}

// ResolveAPIKey returns the recognizer API key with ${ENV_VAR} references expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.Recognizer.APIKey)
}

var knownProviders = []string{"openrouter", "openai", "mock"}

// Validate checks value ranges. It does not check credentials; a missing
// API key is reported when the recognizer is built.
func (c *Config) Validate() error {
	var problems []string

	r := c.Recognizer
	if !contains(knownProviders, r.Provider) {
		problems = append(problems, fmt.Sprintf("recognizer.provider %q is not one of %s", r.Provider, strings.Join(knownProviders, ", ")))
	}
	if r.Model == "" {
		problems = append(problems, "recognizer.model is required")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("recognizer.temperature %.2f is outside [0,2]", r.Temperature))
	}
	if r.MaxTokens < 1 {
		problems = append(problems, "recognizer.max_tokens must be positive")
	}
	if r.Timeout < 0 {
		problems = append(problems, "recognizer.timeout must not be negative")
	}
	if r.RateLimit < 0 {
		problems = append(problems, "recognizer.rate_limit must not be negative")
	}
	if r.MaxRetries < 1 {
		problems = append(problems, "recognizer.max_retries must be at least 1")
	}
	if r.RetryDelay < 0 {
		problems = append(problems, "recognizer.retry_delay must not be negative")
	}

	p := c.Pipeline
	if p.Concurrency < 1 {
		problems = append(problems, "pipeline.concurrency must be at least 1")
	}
	if p.DPI < 50 || p.DPI > 1200 {
		problems = append(problems, fmt.Sprintf("pipeline.dpi %d is outside [50,1200]", p.DPI))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not debug, info, warn or error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
