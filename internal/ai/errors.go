package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable marks transient provider failures: network errors,
	// timeouts, 5xx and 429 responses. Callers retry these with backoff.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrInvalidInput marks caller errors. Never retried.
	ErrInvalidInput = errors.New("invalid ai input")
	// ErrDimensionMismatch marks embeddings of different dimensionality
	// reaching a comparison. Config error, fatal, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrContentPolicy marks a provider-side content rejection. Never retried.
	ErrContentPolicy = errors.New("content rejected by provider policy")
	// ErrEmptyReply marks a blank completion, distinct from success so the
	// caller can offer regeneration.
	ErrEmptyReply = errors.New("provider returned empty reply")
)

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

var policyMarkers = []string{
	"content_filter",
	"content_policy",
	"safety",
	"moderation",
}

// classifyHTTPError maps a non-2xx provider response onto the error taxonomy.
func classifyHTTPError(provider string, status int, body string) error {
	body = strings.TrimSpace(body)
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return fmt.Errorf("%s request failed: %d: %s: %w", provider, status, body, ErrUnavailable)
	}
	if status == http.StatusBadRequest || status == http.StatusForbidden {
		lower := strings.ToLower(body)
		for _, marker := range policyMarkers {
			if strings.Contains(lower, marker) {
				return fmt.Errorf("%s rejected content: %s: %w", provider, body, ErrContentPolicy)
			}
		}
	}
	return fmt.Errorf("%s request failed: %d: %s", provider, status, body)
}

// classifyTransportError wraps a failed round-trip. Timeouts and connection
// failures are all retryable from the caller's perspective.
func classifyTransportError(provider string, err error) error {
	return fmt.Errorf("%s request failed: %v: %w", provider, err, ErrUnavailable)
}
