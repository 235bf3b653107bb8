package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// doRequest makes a single HTTP request to OpenRouter and classifies any
// failure as transient or fatal.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, error) {
	bodyBytes, err := json.Marshal(orReq)
	if err != nil {
		return nil, outline.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, outline.Fatal(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/pdftoc")
	req.Header.Set("X-Title", "pdftoc")

	resp, err := c.client.Do(req)
	if err != nil {
		// Caller cancellation is not a service failure.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, outline.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outline.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited: %s", string(respBody)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "OpenRouter", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		// Truncated bodies from a proxy are worth another attempt.
		return nil, outline.Transient(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if err := checkResponse(&orResp); err != nil {
		return nil, err
	}
	return &orResp, nil
}

// checkResponse inspects a 200 OK response for API-level problems.
func checkResponse(resp *openRouterResponse) error {
	if resp.Error != nil {
		code := fmt.Sprintf("%v", resp.Error.Code)
		switch code {
		case "overloaded", "rate_limit_exceeded", "503", "502", "500":
			return outline.Transient(fmt.Errorf("OpenRouter API error: %s", resp.Error.Message))
		}
		// content_filter, invalid_request and friends will not improve on retry
		return outline.Fatal(fmt.Errorf("OpenRouter API error (%s): %s", code, resp.Error.Message))
	}

	// Empty choices are usually an upstream hiccup
	if len(resp.Choices) == 0 {
		return outline.Transient(fmt.Errorf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID))
	}
	return nil
}
