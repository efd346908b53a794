// Package domain defines core types, interfaces, and errors for datashelf.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found, or exists but is not
// visible to the caller. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// UnauthenticatedError indicates that no principal is bound to the request.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// ValidationError indicates invalid input. Validation is performed before
// any mutation, so a ValidationError never implies a partial write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (duplicate unique field, duplicate
// grant pair, or a failed optimistic-concurrency check).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StoreUnavailableError indicates the backing store or blob store is
// unreachable. Retryable.
type StoreUnavailableError struct {
	Message string
	Cause   error
}

func (e *StoreUnavailableError) Error() string { return e.Message }

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

// PartialFailureError reports a cascade delete that completed some steps
// and failed others. The target entity is left in place so the caller can
// retry; completed steps are safe to re-run.
type PartialFailureError struct {
	Completed []CascadeStep
	Failed    []StepFailure
}

// StepFailure records one failed sub-step of a cascade, e.g. a single
// blob key that could not be deleted.
type StepFailure struct {
	Step   CascadeStep
	Key    string
	Reason string
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		if f.Key != "" {
			parts[i] = fmt.Sprintf("%s[%s]: %s", f.Step, f.Key, f.Reason)
		} else {
			parts[i] = fmt.Sprintf("%s: %s", f.Step, f.Reason)
		}
	}
	return fmt.Sprintf("cascade partially failed (%d of %d+%d steps): %s",
		len(e.Failed), len(e.Completed), len(e.Failed), strings.Join(parts, "; "))
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an UnauthenticatedError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrStoreUnavailable wraps a transport-level store error.
func ErrStoreUnavailable(cause error, format string, args ...interface{}) *StoreUnavailableError {
	return &StoreUnavailableError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
