package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Pipeline.Concurrency)
	}
	if cfg.Recognizer.MaxRetries != 3 || cfg.Recognizer.RetryDelay != 2*time.Second {
		t.Errorf("retry defaults = %d, %s", cfg.Recognizer.MaxRetries, cfg.Recognizer.RetryDelay)
	}
	if cfg.Recognizer.APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if got := ResolveEnvVars("${TEST_API_KEY}"); got != "secret123" {
			t.Errorf("ResolveEnvVars() = %s, want secret123", got)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); got != "" {
			t.Errorf("ResolveEnvVars() = %s, want empty", got)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if got := ResolveEnvVars("literal-value"); got != "literal-value" {
			t.Errorf("ResolveEnvVars() = %s, want literal-value", got)
		}
	})

	t.Run("expands inside text", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.com")
		if got := ResolveEnvVars("https://${TEST_HOST}/v1"); got != "https://example.com/v1" {
			t.Errorf("ResolveEnvVars() = %s", got)
		}
	})
}

func TestConfig_ResolveAPIKey(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := DefaultConfig()
	cfg.Recognizer.APIKey = "${TEST_OPENROUTER_KEY}"
	if got := cfg.ResolveAPIKey(); got != "or-key-123" {
		t.Errorf("ResolveAPIKey() = %s, want or-key-123", got)
	}

	cfg.Recognizer.APIKey = "direct-key"
	if got := cfg.ResolveAPIKey(); got != "direct-key" {
		t.Errorf("ResolveAPIKey() = %s, want direct-key", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.Recognizer.Provider = "acme" }, "recognizer.provider"},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		{"dpi too low", func(c *Config) { c.Pipeline.DPI = 10 }, "pipeline.dpi"},
		{"temperature", func(c *Config) { c.Recognizer.Temperature = 3 }, "recognizer.temperature"},
		{"no retries", func(c *Config) { c.Recognizer.MaxRetries = 0 }, "recognizer.max_retries"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty model", func(c *Config) { c.Recognizer.Model = "" }, "recognizer.model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
recognizer:
  model: "openai/gpt-4o"
  timeout: 45s
pipeline:
  concurrency: 5
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Recognizer.Model != "openai/gpt-4o" {
			t.Errorf("Model = %s, want openai/gpt-4o", cfg.Recognizer.Model)
		}
		if cfg.Recognizer.Timeout != 45*time.Second {
			t.Errorf("Timeout = %s, want 45s", cfg.Recognizer.Timeout)
		}
		if cfg.Pipeline.Concurrency != 5 {
			t.Errorf("Concurrency = %d, want 5", cfg.Pipeline.Concurrency)
		}
		// Untouched keys keep defaults.
		if cfg.Pipeline.DPI != 150 || cfg.Recognizer.RetryDelay != 2*time.Second {
			t.Errorf("defaults lost: dpi=%d retry_delay=%s", cfg.Pipeline.DPI, cfg.Recognizer.RetryDelay)
		}
		if mgr.ConfigFileUsed() != path {
			t.Errorf("ConfigFileUsed() = %s, want %s", mgr.ConfigFileUsed(), path)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("PDFTOC_PIPELINE_DPI", "300")
		t.Setenv("PDFTOC_RECOGNIZER_MAX_RETRIES", "5")
		path := writeConfig(t, "pipeline:\n  dpi: 200\n")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Pipeline.DPI != 300 {
			t.Errorf("DPI = %d, want 300", cfg.Pipeline.DPI)
		}
		if cfg.Recognizer.MaxRetries != 5 {
			t.Errorf("MaxRetries = %d, want 5", cfg.Recognizer.MaxRetries)
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := writeConfig(t, "pipeline:\n  concurrency: 0\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("malformed file rejected", func(t *testing.T) {
		path := writeConfig(t, "pipeline: [unclosed\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestManager_Value(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log_level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}

	v, err := mgr.Value("log_level")
	if err != nil || v != "debug" {
		t.Errorf("Value(log_level) = %v, %v", v, err)
	}
	if _, err := mgr.Value("nope.key"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Value(nope.key) error = %v, want ErrUnknownKey", err)
	}
	if _, err := mgr.Value("bad key!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Value(bad key!) error = %v, want ErrInvalidKey", err)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log_level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log_level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Pipeline.Concurrency
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "recognizer:\n  model: initial/model\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Recognizer.Model; got != "initial/model" {
		t.Errorf("initial model = %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Recognizer.Model)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("recognizer:\n  model: updated/model\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Recognizer.Model; got != "updated/model" {
		t.Errorf("config not updated: got %s", got)
	}
	if v := lastValue.Load(); v != "updated/model" {
		t.Errorf("callback received %v, want updated/model", v)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PDFTOC_TEST_DOTENV=from-file\nPDFTOC_TEST_PRESET=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFTOC_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("PDFTOC_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("PDFTOC_TEST_DOTENV"); got != "from-file" {
		t.Errorf("PDFTOC_TEST_DOTENV = %q, want from-file", got)
	}
	if got := os.Getenv("PDFTOC_TEST_PRESET"); got != "from-env" {
		t.Errorf("PDFTOC_TEST_PRESET = %q, existing env should win", got)
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	data, _ := os.ReadFile(path)
	for _, want := range []string{"recognizer:", "  timeout: 30s", "pipeline:", "  concurrency: 3", "${OPENROUTER_API_KEY}"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("default config missing %q:\n%s", want, data)
		}
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	if got, want := *mgr.Get(), *DefaultConfig(); got != want {
		t.Errorf("loaded defaults = %+v, want %+v", got, want)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"recognizer.model", false},
		{"log_level", false},
		{"pipeline.dpi-x", false},
		{"", true},
		{".leading", true},
		{"trailing.", true},
		{"has space", true},
		{"semi;colon", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultEntries_CoverConfig(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range DefaultEntries() {
		if seen[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		seen[e.Key] = true
		if e.Description == "" {
			t.Errorf("%s has no description", e.Key)
		}
	}
	for _, key := range []string{"recognizer.provider", "recognizer.rate_limit", "pipeline.workspace", "log_level"} {
		if !seen[key] {
			t.Errorf("missing documented key %s", key)
		}
	}
}
