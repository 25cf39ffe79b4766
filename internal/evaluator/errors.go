package evaluator

import "fmt"

// APIError represents an error returned by an LLM provider's API.
type APIError struct {
	// Provider is the name of the LLM provider (e.g., "gemini").
	Provider string
	// StatusCode is the HTTP status code returned by the API.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the provider-specific error type, if available.
	Type string
	// Code is the provider-specific error code, if available.
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (status %d, code %s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient returns true if the error is likely temporary and the caller
// may retry the paper on a later run.
func (e *APIError) IsTransient() bool {
	// 429 (rate limit) and 5xx (server errors) are transient.
	// Status code 0 indicates a network-level error.
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
