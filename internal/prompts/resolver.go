package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned for unknown prompt keys.
var ErrNotFound = errors.New("prompt not found")

// Resolver resolves prompts with directory overrides.
// Resolution order: <dir>/<key>.txt > embedded default
type Resolver struct {
	dir      string
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a resolver. dir may be empty to disable overrides.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if one exists, otherwise the
// embedded default.
func (r *Resolver) Resolve(key string) (*Prompt, error) {
	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if r.dir != "" {
		path := filepath.Join(r.dir, key+".txt")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := strings.TrimSpace(string(data))
			if text != "" {
				return &Prompt{
					Key:        key,
					Text:       text,
					Variables:  ExtractVariables(text),
					Hash:       HashText(text),
					IsOverride: true,
					Source:     path,
				}, nil
			}
			r.logger.Warn("ignoring empty prompt override", "path", path)
		case errors.Is(err, fs.ErrNotExist):
			// No override
		default:
			return nil, fmt.Errorf("failed to read prompt override %s: %w", path, err)
		}
	}

	return &Prompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
		Source:    "embedded",
	}, nil
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Export writes every embedded default into dir as <key>.txt so it can be
// edited and used as an override directory. Existing files are kept unless
// overwrite is set. Returns the paths written.
func (r *Resolver) Export(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create prompt directory: %w", err)
	}

	var written []string
	for _, p := range r.AllEmbedded() {
		path := filepath.Join(dir, p.Key+".txt")
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				r.logger.Info("prompt file exists, skipping", "path", path)
				continue
			}
		}
		if err := os.WriteFile(path, []byte(p.Text+"\n"), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
