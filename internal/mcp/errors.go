package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
)

// Error codes returned to clients.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidState          = "INVALID_STATE"
	CodeAxisMissingIndicators = "AXIS_MISSING_INDICATORS"
	CodeDuplicatePeriod       = "DUPLICATE_PERIOD"
	CodePaymentDeclined       = "PAYMENT_DECLINED"
	CodeNotFound              = "NOT_FOUND"
	CodeProjectHasReports     = "PROJECT_HAS_REPORTS"
	CodeForbidden             = "FORBIDDEN"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeConflict              = "CONFLICT"
)

// ErrUnknownMethod indicates a method that is not in the tool catalog.
var ErrUnknownMethod = errors.New("unknown method")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

// MapError maps domain errors to MCP error codes. It returns nil for errors
// that have no client-facing code.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *indicator.ValidationError
	if errors.As(err, &validationErr) {
		return &APIError{
			Code:         CodeValidation,
			Message:      err.Error(),
			Details:      map[string]any{"issues": validationErr.Issues},
			RecoveryHint: "Submit exactly the declared indicators with parsable values",
		}
	}

	var projectInput *project.InputError
	if errors.As(err, &projectInput) {
		return &APIError{Code: CodeValidation, Message: err.Error(), Details: fieldDetails(projectInput.Field, projectInput.Reason)}
	}
	var reportInput *report.InputError
	if errors.As(err, &reportInput) {
		return &APIError{Code: CodeValidation, Message: err.Error(), Details: fieldDetails(reportInput.Field, reportInput.Reason)}
	}

	var stateErr *project.InvalidStateError
	if errors.As(err, &stateErr) {
		return &APIError{
			Code:    CodeInvalidState,
			Message: err.Error(),
			Details: map[string]any{
				"operation": stateErr.Op,
				"current":   stateErr.Current,
				"expected":  stateErr.Expected,
			},
			RecoveryHint: "Fetch the project to see its current state",
		}
	}

	var conflictErr *project.ConflictError
	if errors.As(err, &conflictErr) {
		return &APIError{
			Code:         CodeConflict,
			Message:      err.Error(),
			Details:      map[string]any{"operation": conflictErr.Op, "project_id": conflictErr.ProjectID, "revision": conflictErr.Revision},
			RecoveryHint: "The project was edited meanwhile; fetch it and retry",
		}
	}

	var axisErr *project.AxisMissingIndicatorsError
	if errors.As(err, &axisErr) {
		return &APIError{
			Code:         CodeAxisMissingIndicators,
			Message:      err.Error(),
			Details:      map[string]any{"axes": axisErr.Axes},
			RecoveryHint: "Add at least one indicator to each listed axis with update_project",
		}
	}

	var dupErr *report.DuplicatePeriodError
	if errors.As(err, &dupErr) {
		return &APIError{
			Code:         CodeDuplicatePeriod,
			Message:      err.Error(),
			Details:      map[string]any{"project_id": dupErr.ProjectID, "axis": dupErr.Axis, "period": dupErr.Period},
			RecoveryHint: "Reports are locked once submitted; use get_report to read it",
		}
	}

	var declined *project.PaymentDeclinedError
	if errors.As(err, &declined) {
		return &APIError{
			Code:         CodePaymentDeclined,
			Message:      err.Error(),
			Details:      map[string]any{"reason": declined.Reason},
			RecoveryHint: "The project is still pending payment; retry with a new payment",
		}
	}

	var axisMissing *report.AxisNotFoundError
	if errors.As(err, &axisMissing) {
		return &APIError{Code: CodeNotFound, Message: err.Error(), Details: map[string]any{"axis": axisMissing.Axis}}
	}

	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: CodeNotFound, Message: "project not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, report.ErrReportNotFound):
		return &APIError{Code: CodeNotFound, Message: "report not found"}
	case errors.Is(err, project.ErrProjectHasReports):
		return &APIError{Code: CodeProjectHasReports, Message: "project has reports and cannot be deleted"}
	case errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return &APIError{Code: CodeForbidden, Message: err.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return &APIError{Code: CodeUnauthorized, Message: err.Error()}
	default:
		return nil
	}
}

func fieldDetails(field, reason string) map[string]any {
	return map[string]any{"field": field, "reason": reason}
}

func invalidParams(err error) *APIError {
	return &APIError{Code: CodeValidation, Message: fmt.Sprintf("invalid params: %v", err)}
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", auth.ErrForbidden, fmt.Sprintf(format, args...))
}
