package indicator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("indicator validation failed")

// IssueReason classifies a single indicator problem.
type IssueReason string

const (
	ReasonMissing     IssueReason = "missing"
	ReasonEmpty       IssueReason = "empty"
	ReasonUndeclared  IssueReason = "undeclared"
	ReasonNotANumber  IssueReason = "not_a_number"
	ReasonUnknownType IssueReason = "unknown_type"
	ReasonDuplicate   IssueReason = "duplicate"
	ReasonBlankName   IssueReason = "blank_name"
)

// Issue names one offending indicator.
type Issue struct {
	Indicator string      `json:"indicator"`
	Reason    IssueReason `json:"reason"`
	Detail    string      `json:"detail,omitempty"`
}

// ValidationError enumerates every offending indicator of a submission.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Indicator, issue.Reason))
	}
	return fmt.Sprintf("%s (%s)", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
