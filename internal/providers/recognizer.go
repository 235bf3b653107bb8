package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// CallInfo describes the page and stage a recognition call serves.
// The page workflow attaches it to the context; observers read it back.
type CallInfo struct {
	PageIndex int
	Stage     string
	Attempt   int
}

type callInfoKey struct{}

// WithCallInfo returns a context carrying info.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext extracts the CallInfo set by WithCallInfo.
func CallInfoFromContext(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}

// CallObserver is notified after every recognition call, successful or not.
type CallObserver interface {
	ObserveCall(ctx context.Context, prompt string, result *ChatResult, err error)
}

// ChatRecognizerConfig configures a ChatRecognizer.
type ChatRecognizerConfig struct {
	Client      LLMClient
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // Per call (default: 30s)
	Limiter     *RateLimiter  // Optional
	Observer    CallObserver  // Optional
	Logger      *slog.Logger
}

// ChatRecognizer adapts an LLMClient to the Recognizer contract: one chat
// call per request, a per-call timeout, shared rate limiting, and error
// classification for the workflow's retry policy.
type ChatRecognizer struct {
	client      LLMClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	limiter     *RateLimiter
	observer    CallObserver
	logger      *slog.Logger
}

// NewChatRecognizer creates a recognizer over cfg.Client.
func NewChatRecognizer(cfg ChatRecognizerConfig) *ChatRecognizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ChatRecognizer{
		client:      cfg.Client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		limiter:     cfg.Limiter,
		observer:    cfg.Observer,
		logger:      logger.With("provider", cfg.Client.Name()),
	}
}

// Model returns the configured model identifier.
func (r *ChatRecognizer) Model() string {
	return r.model
}

// CompleteImage sends a page image with a prompt.
func (r *ChatRecognizer) CompleteImage(ctx context.Context, image []byte, prompt string) (string, error) {
	if len(image) == 0 {
		return "", outline.Fatal(errors.New("empty image"))
	}
	return r.complete(ctx, prompt, Message{Role: "user", Content: prompt, Images: [][]byte{image}})
}

// CompleteText sends text followed by a prompt. The prompt may contain a
// {raw_text} placeholder; otherwise the text is appended after it.
func (r *ChatRecognizer) CompleteText(ctx context.Context, text, prompt string) (string, error) {
	content := prompt
	if strings.Contains(prompt, "{raw_text}") {
		content = strings.ReplaceAll(prompt, "{raw_text}", text)
	} else {
		content = prompt + "\n\n" + text
	}
	return r.complete(ctx, prompt, Message{Role: "user", Content: content})
}

func (r *ChatRecognizer) complete(ctx context.Context, prompt string, msg Message) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.client.Chat(callCtx, &ChatRequest{
		Messages:    []Message{msg},
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})

	if err == nil && strings.TrimSpace(result.Content) == "" {
		err = outline.Transient(errors.New("empty completion"))
	}
	if err != nil {
		err = r.classify(ctx, callCtx, err)
	}

	if r.observer != nil {
		r.observer.ObserveCall(ctx, prompt, result, err)
	}
	if err != nil {
		return "", err
	}

	r.logger.Debug("recognition call complete",
		"model", result.ModelUsed,
		"tokens", result.TotalTokens,
		"latency_ms", result.ExecutionTime.Milliseconds())
	return result.Content, nil
}

func (r *ChatRecognizer) classify(ctx, callCtx context.Context, err error) error {
	// Caller cancellation passes through untouched
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) && r.limiter != nil {
		r.limiter.Record429(rlErr.RetryAfter)
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, outline.ErrTransient) {
		return outline.Transient(fmt.Errorf("recognition call timed out after %s: %w", r.timeout, err))
	}
	if errors.Is(err, outline.ErrTransient) || errors.Is(err, outline.ErrFatal) {
		return err
	}
	// Unclassified client errors are treated as service hiccups.
	return outline.Transient(err)
}

var _ Recognizer = (*ChatRecognizer)(nil)
