package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrInvalidState indicates the project's state does not permit the operation.
	ErrInvalidState = errors.New("invalid project state")
	// ErrAxisMissingIndicators indicates an axis without indicators blocks approval.
	ErrAxisMissingIndicators = errors.New("axis has no indicators")
	// ErrPaymentDeclined indicates the payment provider refused the payment.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrProjectHasReports indicates the project cannot be deleted.
	ErrProjectHasReports = errors.New("project has reports")
	// ErrConflict indicates the project was changed by another caller in between.
	ErrConflict = errors.New("project modified concurrently")
)

// InputError names the offending field of a create or update request.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// InvalidStateError reports a lifecycle operation invoked in the wrong state.
type InvalidStateError struct {
	Op       string
	Current  State
	Expected State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s project in state %s (requires %s)", ErrInvalidState, e.Op, e.Current, e.Expected)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// AxisMissingIndicatorsError lists every axis that has no indicators.
type AxisMissingIndicatorsError struct {
	Axes []string
}

func (e *AxisMissingIndicatorsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAxisMissingIndicators, strings.Join(e.Axes, ", "))
}

func (e *AxisMissingIndicatorsError) Unwrap() error { return ErrAxisMissingIndicators }

// PaymentDeclinedError carries the provider's refusal reason.
type PaymentDeclinedError struct {
	ProjectID string
	Reason    string
}

func (e *PaymentDeclinedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s for project %s", ErrPaymentDeclined, e.ProjectID)
	}
	return fmt.Sprintf("%s for project %s: %s", ErrPaymentDeclined, e.ProjectID, e.Reason)
}

func (e *PaymentDeclinedError) Unwrap() error { return ErrPaymentDeclined }

// ConflictError reports a lost compare-and-swap on a project whose state
// still permits the operation. Revision is the one now stored.
type ConflictError struct {
	Op        string
	ProjectID string
	Revision  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: cannot %s project %s, now at revision %d", ErrConflict, e.Op, e.ProjectID, e.Revision)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
