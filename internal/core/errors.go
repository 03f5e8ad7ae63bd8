// Package core provides core types and interfaces for the ask bridge.
package core

import (
	"errors"
	"fmt"
)

// ErrorKind represents the class of a provider failure.
// The taxonomy is deliberately coarse: callers only distinguish a slow
// upstream from everything else.
type ErrorKind string

const (
	// ErrorKindTimeout indicates the upstream did not answer within the configured deadline
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindProvider indicates any other upstream failure (non-2xx, transport, bad payload)
	ErrorKindProvider ErrorKind = "provider_error"
)

// ProviderError is the error type returned by every Provider
type ProviderError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (never shown to chat users)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates an error for an upstream that exceeded its deadline
func NewTimeoutError(provider string, err error) *ProviderError {
	return &ProviderError{
		Kind:     ErrorKindTimeout,
		Message:  "upstream did not respond in time",
		Provider: provider,
		Err:      err,
	}
}

// NewProviderError creates a generic provider error
func NewProviderError(provider string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Kind:       ErrorKindProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// KindOf returns the ErrorKind carried by err.
// Errors that are not a *ProviderError count as provider errors.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ErrorKindProvider
}

// IsTimeout reports whether err is a timeout-kind provider error
func IsTimeout(err error) bool {
	return err != nil && KindOf(err) == ErrorKindTimeout
}
