package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v2"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned for well-formed keys that have no default.
var ErrUnknownKey = errors.New("unknown config key")

// Entry documents a single configuration key and its default.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every configuration key with its default value.
// Durations are rendered as strings ("30s") so they read back through viper.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// Recognizer
		{
			Key:         "recognizer.provider",
			Value:       d.Recognizer.Provider,
			Description: "Completion service: openrouter or openai",
		},
		{
			Key:         "recognizer.base_url",
			Value:       d.Recognizer.BaseURL,
			Description: "Override the service endpoint (empty uses the provider default)",
		},
		{
			Key:         "recognizer.api_key",
			Value:       d.Recognizer.APIKey,
			Description: "API key (uses environment variable)",
		},
		{
			Key:         "recognizer.model",
			Value:       d.Recognizer.Model,
			Description: "Vision-capable model used for every stage",
		},
		{
			Key:         "recognizer.temperature",
			Value:       d.Recognizer.Temperature,
			Description: "Sampling temperature",
		},
		{
			Key:         "recognizer.max_tokens",
			Value:       d.Recognizer.MaxTokens,
			Description: "Maximum tokens per completion",
		},
		{
			Key:         "recognizer.timeout",
			Value:       d.Recognizer.Timeout.String(),
			Description: "Timeout for a single recognition call",
		},
		{
			Key:         "recognizer.rate_limit",
			Value:       d.Recognizer.RateLimit,
			Description: "Rate limit in requests per minute (0 disables)",
		},
		{
			Key:         "recognizer.max_retries",
			Value:       d.Recognizer.MaxRetries,
			Description: "Attempts per page before a transient failure is final",
		},
		{
			Key:         "recognizer.retry_delay",
			Value:       d.Recognizer.RetryDelay.String(),
			Description: "Base backoff; each further retry doubles it",
		},
		{
			Key:         "recognizer.prompts_dir",
			Value:       d.Recognizer.PromptsDir,
			Description: "Directory of <prompt>.txt overrides (empty uses built-in prompts)",
		},

		// Pipeline
		{
			Key:         "pipeline.concurrency",
			Value:       d.Pipeline.Concurrency,
			Description: "Pages recognized at once",
		},
		{
			Key:         "pipeline.dpi",
			Value:       d.Pipeline.DPI,
			Description: "Render resolution for table-of-contents pages",
		},
		{
			Key:         "pipeline.workspace",
			Value:       d.Pipeline.Workspace,
			Description: "Directory for images and intermediate files (empty uses ~/.pdftoc/work)",
		},

		// Logging
		{
			Key:         "log_level",
			Value:       d.LogLevel,
			Description: "debug, info, warn or error",
		},
	}
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// LookupEntry returns the documented entry for key.
func LookupEntry(key string) (Entry, error) {
	if err := ValidateKey(key); err != nil {
		return Entry{}, err
	}
	for _, e := range DefaultEntries() {
		if e.Key == key {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// defaultYAML nests the dotted default keys into an ordered YAML document.
func defaultYAML() yaml.MapSlice {
	var root yaml.MapSlice
	for _, e := range DefaultEntries() {
		root = insertKey(root, strings.Split(e.Key, "."), e.Value)
	}
	return root
}

func insertKey(m yaml.MapSlice, path []string, value any) yaml.MapSlice {
	if len(path) == 1 {
		return append(m, yaml.MapItem{Key: path[0], Value: value})
	}
	for i := range m {
		if m[i].Key == path[0] {
			child, _ := m[i].Value.(yaml.MapSlice)
			m[i].Value = insertKey(child, path[1:], value)
			return m
		}
	}
	return append(m, yaml.MapItem{Key: path[0], Value: insertKey(nil, path[1:], value)})
}
