package providers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// APIError is a non-2xx reply from a recognition service.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if len(msg) > 500 {
		msg = msg[:500] + "...[truncated]"
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, msg)
}

// Unwrap classifies the error for the retry policy.
func (e *APIError) Unwrap() error {
	if isRetryableStatus(e.StatusCode) {
		return outline.ErrTransient
	}
	return outline.ErrFatal
}

// RateLimitError is returned for 429 replies. It is always transient.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return outline.ErrTransient
}

// isRetryableStatus returns true for status codes worth another attempt.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusConflict:
		return true
	case http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		// OpenRouter returns these for transient upstream cache/format issues.
		return true
	case http.StatusTooManyRequests:
		return true
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return true
	default:
		return statusCode >= 500
	}
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
