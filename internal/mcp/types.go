package mcp

import (
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/shopspring/decimal"
)

type CreateProjectParams struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Duration       int             `json:"duration"`
	Cadence        project.Cadence `json:"cadence"`
	OrganizationID string          `json:"organization_id"`
	Axes           []project.Axis  `json:"axes"`
}

type UpdateProjectParams struct {
	ProjectID   string           `json:"project_id"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Duration    *int             `json:"duration,omitempty"`
	Cadence     *project.Cadence `json:"cadence,omitempty"`
	Axes        []project.Axis   `json:"axes,omitempty"`
}

type ProjectParams struct {
	ProjectID string `json:"project_id"`
}

type ListProjectsParams struct {
	States         []project.State `json:"states,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
}

type SearchProjectsParams struct {
	Query  string          `json:"query"`
	States []project.State `json:"states,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// AuthorizePaymentParams carries an outcome already decided by the payment
// provider.
type AuthorizePaymentParams struct {
	ProjectID     string `json:"project_id"`
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// PayProjectParams asks the server to charge through its configured
// provider.
type PayProjectParams struct {
	ProjectID   string          `json:"project_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description"`
}

type SubmitReportParams struct {
	ProjectID string              `json:"project_id"`
	Axis      string              `json:"axis"`
	Period    report.Period       `json:"period"`
	Values    indicator.RawValues `json:"values"`
}

type GetReportParams struct {
	ProjectID string        `json:"project_id"`
	Axis      string        `json:"axis"`
	Period    report.Period `json:"period"`
}

type ListReportsParams struct {
	ProjectID string `json:"project_id"`
	Axis      string `json:"axis,omitempty"`
	Year      int    `json:"year,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type GetRecentActivityParams struct {
	ProjectID string                 `json:"project_id,omitempty"`
	ReportID  *string                `json:"report_id,omitempty"`
	Type      *activity.ActivityType `json:"type,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// ReportedPeriodResponse is one reported slot with a readable period label.
type ReportedPeriodResponse struct {
	Axis   string        `json:"axis"`
	Period report.Period `json:"period"`
	Label  string        `json:"label"`
}

type ListReportedPeriodsResponse struct {
	ProjectID string                   `json:"project_id"`
	Periods   []ReportedPeriodResponse `json:"periods"`
}

type DeleteProjectResponse struct {
	ProjectID string `json:"project_id"`
	Deleted   bool   `json:"deleted"`
}
