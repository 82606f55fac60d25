// Package models defines the data structures for the loan matchmaker.
package models

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrValidation                  = errors.New("invalid parameter value")
	ErrUnknownParameter            = errors.New("unknown parameter")
	ErrSessionEnded                = errors.New("session has ended")
	ErrSessionNotFound             = errors.New("session not found")
	ErrIncompleteProfile           = errors.New("loan profile is incomplete")
	ErrLenderNotFound              = errors.New("lender not found")
	ErrCollaboratorUnavailable     = errors.New("collaborator unavailable")
	ErrMalformedCollaboratorOutput = errors.New("malformed collaborator output")
)

// ValidationError reports a parameter value that failed its bound check.
type ValidationError struct {
	Parameter ParameterName
	Value     any
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Parameter, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for the given parameter.
func NewValidationError(name ParameterName, value any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Parameter: name,
		Value:     value,
		Reason:    fmt.Sprintf(format, args...),
	}
}
