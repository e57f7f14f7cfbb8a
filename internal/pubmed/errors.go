package pubmed

import (
	"errors"
	"fmt"
)

// Common errors returned by the PubMed client.
var (
	// ErrRateLimited indicates the E-utilities rate limit has been exceeded.
	ErrRateLimited = errors.New("PubMed rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with PubMed")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from PubMed")
)

// APIError represents an HTTP error status from E-utilities.
type APIError struct {
	StatusCode int
	Endpoint   string // "esearch" or "efetch"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("PubMed %s error (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// IsNetworkError returns true if the request never got an HTTP response.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetworkError)
}
