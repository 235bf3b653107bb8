package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// Respond, when set, overrides ResponseText and the failure knobs.
	Respond func(n int64, req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	fail := func(errType string, err error) (*ChatResult, error) {
		result.ErrorType = errType
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return fail("context_cancelled", ctx.Err())
	}

	content := c.ResponseText
	if c.Respond != nil {
		text, err := c.Respond(count, req)
		if err != nil {
			return fail("mock_failure", err)
		}
		content = text
	} else {
		if c.ShouldFail {
			return fail("mock_failure", outline.Fatal(errors.New("mock client configured to fail")))
		}
		if c.FailAfter > 0 && int(count) > c.FailAfter {
			return fail("mock_failure", outline.Fatal(fmt.Errorf("mock client failed after %d requests", c.FailAfter)))
		}
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.Success = true
	result.Content = content
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

var _ LLMClient = (*MockClient)(nil)

// MockCall records one call made to a MockRecognizer.
type MockCall struct {
	Kind   string // "image" or "text"
	Input  string // Text input, or the image size for image calls
	Prompt string
}

// MockRecognizer is a scripted Recognizer for workflow tests.
type MockRecognizer struct {
	// ImageFunc and TextFunc answer calls; n counts calls of that kind from 1.
	ImageFunc func(ctx context.Context, n int, image []byte, prompt string) (string, error)
	TextFunc  func(ctx context.Context, n int, text, prompt string) (string, error)

	mu         sync.Mutex
	calls      []MockCall
	imageCalls int
	textCalls  int
}

// CompleteImage answers from ImageFunc.
func (m *MockRecognizer) CompleteImage(ctx context.Context, image []byte, prompt string) (string, error) {
	m.mu.Lock()
	m.imageCalls++
	n := m.imageCalls
	m.calls = append(m.calls, MockCall{Kind: "image", Input: fmt.Sprintf("%d bytes", len(image)), Prompt: prompt})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.ImageFunc == nil {
		return "", outline.Fatal(errors.New("no image response scripted"))
	}
	return m.ImageFunc(ctx, n, image, prompt)
}

// CompleteText answers from TextFunc.
func (m *MockRecognizer) CompleteText(ctx context.Context, text, prompt string) (string, error) {
	m.mu.Lock()
	m.textCalls++
	n := m.textCalls
	m.calls = append(m.calls, MockCall{Kind: "text", Input: text, Prompt: prompt})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.TextFunc == nil {
		return "", outline.Fatal(errors.New("no text response scripted"))
	}
	return m.TextFunc(ctx, n, text, prompt)
}

// Calls returns a copy of the recorded calls.
func (m *MockRecognizer) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

var _ Recognizer = (*MockRecognizer)(nil)
