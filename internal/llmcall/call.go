// Package llmcall records recognition calls for traceability. Every call is
// written as one JSON line with its page, stage, prompt hash, response and
// metrics, so a wrong entry can be traced back to the exact reply.
package llmcall

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pdftoc/internal/prompts"
	"github.com/jackzampolin/pdftoc/internal/providers"
)

// Call represents a recorded recognition call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	PageIndex int    `json:"page_index,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`

	// Prompt traceability: hash of the exact prompt text sent
	PromptHash string `json:"prompt_hash"`

	// Model info
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response,omitempty"`

	// Status
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// FromObservation builds a Call from what a recognizer observed. result may
// be nil when the call failed before a response arrived.
func FromObservation(ctx context.Context, prompt string, result *providers.ChatResult, err error) *Call {
	call := &Call{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		PromptHash: prompts.HashText(prompt),
		Success:    err == nil,
	}

	if info, ok := providers.CallInfoFromContext(ctx); ok {
		call.PageIndex = info.PageIndex
		call.Stage = info.Stage
		call.Attempt = info.Attempt
	}

	if result != nil {
		call.LatencyMs = int(result.ExecutionTime.Milliseconds())
		call.Provider = result.Provider
		call.Model = result.ModelUsed
		call.RequestID = result.RequestID
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.Response = result.Content
		if !result.Success && result.ErrorMessage != "" {
			call.Success = false
			call.Error = result.ErrorMessage
		}
	}

	if err != nil {
		call.Error = err.Error()
		call.Cancelled = errors.Is(err, context.Canceled)
	}
	return call
}
