package models

import (
	"errors"
	"fmt"
)

var (
	// ErrToolProviderUnavailable indicates a registry or tool provider could not be reached
	ErrToolProviderUnavailable = errors.New("tool provider unavailable")

	// ErrMalformedToolRequest indicates a tagged block that matches no known signature
	ErrMalformedToolRequest = errors.New("malformed tool request")

	// ErrModelBackend indicates the language-model call itself failed
	ErrModelBackend = errors.New("model backend failure")

	// ErrValidation indicates a caller-level input problem
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a fact key that does not exist
	ErrNotFound = errors.New("not found")
)

// ProviderError wraps failures talking to the tool registry or a tool provider
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider error during %s", e.Operation)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is maps a 404 to ErrNotFound and everything else to ErrToolProviderUnavailable.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrToolProviderUnavailable:
		return e.StatusCode != 404
	}
	return false
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ModelError wraps language-model backend failures
type ModelError struct {
	Backend   string
	Operation string
	Message   string
	Err       error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model error (%s) during %s: %s: %v", e.Backend, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("model error (%s) during %s: %s", e.Backend, e.Operation, e.Message)
}

func (e *ModelError) Is(target error) bool {
	return target == ErrModelBackend
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ValidationError wraps input rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
