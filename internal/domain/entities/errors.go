package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the core so callers can
// distinguish "never started" from "started and failed remotely".
type ErrorKind string

const (
	ErrAccessDenied         ErrorKind = "access_denied"
	ErrNotFound             ErrorKind = "not_found"
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrDispatchRejected     ErrorKind = "dispatch_rejected"
	ErrPollingTransient     ErrorKind = "polling_transient"
	ErrRunFailed            ErrorKind = "run_failed"
	ErrAlreadyRunning       ErrorKind = "already_running"
	ErrConfirmationRequired ErrorKind = "confirmation_required"
)

// DomainError carries an ErrorKind alongside the underlying cause.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewError creates a DomainError without an underlying cause.
func NewError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// WrapError creates a DomainError wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Errors that carry no
// DomainError are reported as ErrPollingTransient, which is the safe
// assumption for raw network failures.
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ErrPollingTransient
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind == kind
	}
	return false
}
