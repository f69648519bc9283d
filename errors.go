package authorization

import (
	"errors"
	"fmt"
)

var (
	ErrRouteForbidden     = errors.New("route forbidden")
	ErrSelfMismatch       = errors.New("caller does not own the resource")
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNotFound is returned by collaborator lookups.
	ErrNotFound = errors.New("not found")
	// ErrTransport marks collaborator I/O failures. They are never retried.
	ErrTransport          = errors.New("transport failure")
	ErrConflict           = errors.New("conflict")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DecisionError carries a denying Decision through an error return.
type DecisionError struct {
	Decision Decision
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Decision.Reason, e.Decision.Message)
}

func (e *DecisionError) Unwrap() error {
	switch e.Decision.Reason {
	case ReasonRouteForbidden:
		return ErrRouteForbidden
	case ReasonSelfMismatch:
		return ErrSelfMismatch
	case ReasonInvariantViolation:
		return ErrInvariantViolation
	}
	return nil
}

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
