package report

import (
	"errors"
	"fmt"
)

var (
	// ErrReportNotFound indicates the report doesn't exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrAxisNotFound indicates the project has no axis with that name.
	ErrAxisNotFound = errors.New("axis not found")
	// ErrDuplicatePeriod indicates the period was already reported.
	ErrDuplicatePeriod = errors.New("period already reported")
	// ErrInvalidInput indicates invalid report input.
	ErrInvalidInput = errors.New("invalid report input")
)

// AxisNotFoundError names the missing axis.
type AxisNotFoundError struct {
	ProjectID string
	Axis      string
}

func (e *AxisNotFoundError) Error() string {
	return fmt.Sprintf("%s: project %s has no axis %q", ErrAxisNotFound, e.ProjectID, e.Axis)
}

func (e *AxisNotFoundError) Unwrap() error { return ErrAxisNotFound }

// DuplicatePeriodError names the period that already has a report.
type DuplicatePeriodError struct {
	ProjectID string
	Axis      string
	Period    Period
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("%s: project %s axis %q period %s", ErrDuplicatePeriod, e.ProjectID, e.Axis, e.Period)
}

func (e *DuplicatePeriodError) Unwrap() error { return ErrDuplicatePeriod }

// InputError names the offending field of a submission.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }
