package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration signals a mandatory setting missing for the requested operation.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation signals a malformed or missing required request field.
	ErrValidation = errors.New("validation error")
	// ErrUpstream signals a transport-level failure of a backend call.
	ErrUpstream = errors.New("upstream error")
	// ErrSerialization signals an upstream response that did not match the expected shape.
	ErrSerialization = errors.New("serialization error")
	// ErrUnsupportedOperation signals an unknown operation tag.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// ErrThrottled signals an upstream throttling response. It is the only
// retryable error kind and matches ErrUpstream via errors.Is.
var ErrThrottled = fmt.Errorf("throttled: %w", ErrUpstream)

// ConfigError wraps ErrConfiguration with the full list of missing fields.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError creates a configuration error naming every missing field.
func NewConfigError(missing ...string) error {
	return &ConfigError{Missing: missing}
}

// ErrorKind returns the taxonomy discriminant for an error, for callers that
// want to distinguish error classes without parsing message text.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedOperation):
		return "validation"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	default:
		return "internal"
	}
}
