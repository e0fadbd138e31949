package providers

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures
type ErrorKind string

const (
	// ErrorKindTimeout - the request exceeded the client timeout
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindNetwork - transport-level failure before a response arrived
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindHTTPStatus - the provider answered with a non-2xx status
	ErrorKindHTTPStatus ErrorKind = "http_status"
	// ErrorKindMalformed - the response body could not be interpreted
	ErrorKindMalformed ErrorKind = "malformed"
	// ErrorKindConfiguration - the provider cannot be called at all (missing key)
	ErrorKindConfiguration ErrorKind = "configuration"
)

// ProviderError is the single error type surfaced by provider clients. The
// pipeline treats every kind identically (transition to failed); the kind and
// status exist for error_details and diagnostics.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int // set for ErrorKindHTTPStatus, zero otherwise
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a missing-key style failure,
// which the pipeline surfaces without attempting a provider call
func IsConfigurationError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ErrorKindConfiguration
	}
	return false
}
