package searchproxy

import "fmt"

// APIError is a failure reported by the proxy in its response body.
type APIError struct {
	Message string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("searchproxy: %s (%s)", e.Message, e.Kind)
	}
	return "searchproxy: " + e.Message
}
