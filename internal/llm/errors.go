package llm

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
	// RetryAfter is the server-suggested wait in seconds, 0 when absent.
	RetryAfter int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may be retried. Rate limits and
// server errors are transient; auth and validation failures are not.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRateLimit reports a 429.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsModelNotFound reports a 404, which triggers the fallback model without
// consuming a retry attempt.
func (e *APIError) IsModelNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// TruncatedError means the model stopped because it hit the token limit. The
// partial output cannot be repaired by retrying, so the run aborts.
type TruncatedError struct {
	Model string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("model %s response truncated at the token limit", e.Model)
}

// ExhaustedError means the retry budget ran out. It wraps the final cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
