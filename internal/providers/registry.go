package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrMissingAPIKey is returned when a remote provider is selected without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// ClientConfig selects and configures a recognition service client.
type ClientConfig struct {
	Provider string // "openrouter", "openai", "mock"
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// ClientFactory builds an LLMClient from configuration.
type ClientFactory func(cfg ClientConfig) (LLMClient, error)

// Registry maps provider names to client factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
	logger    *slog.Logger
}

// NewRegistry creates a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]ClientFactory),
		logger:    slog.Default(),
	}
	r.Register(OpenRouterName, func(cfg ClientConfig) (LLMClient, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", OpenRouterName, ErrMissingAPIKey)
		}
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}), nil
	})
	r.Register(OpenAIName, func(cfg ClientConfig) (LLMClient, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", OpenAIName, ErrMissingAPIKey)
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}), nil
	})
	r.Register(MockClientName, func(ClientConfig) (LLMClient, error) {
		return NewMockClient(), nil
	})
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, factory ClientFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a client for cfg.Provider.
func (r *Registry) New(cfg ClientConfig) (LLMClient, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider]
	logger := r.logger
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", cfg.Provider, r.Names())
	}
	client, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("created recognition client", "provider", cfg.Provider, "model", cfg.Model)
	}
	return client, nil
}
