package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/payment"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	Update(ctx context.Context, req project.UpdateRequest) (*project.Project, error)
	Approve(ctx context.Context, id, actor string) (*project.Project, error)
	AuthorizePayment(ctx context.Context, id string, outcome payment.Outcome, actor string) (*project.Project, error)
	Pay(ctx context.Context, id string, charge payment.Charge, actor string) (*project.Project, error)
	Delete(ctx context.Context, id, actor string) error
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context, opts project.ListOptions) ([]project.Project, error)
	Search(ctx context.Context, query string, opts project.ListOptions) ([]project.Project, error)
	PaymentHistory(ctx context.Context, id string) ([]project.PaymentAttempt, error)
}

// ReportService defines report operations needed by MCP.
type ReportService interface {
	Submit(ctx context.Context, req report.SubmitRequest) (*report.Report, error)
	Get(ctx context.Context, projectID, axis string, period report.Period) (*report.Report, error)
	ListReportedPeriods(ctx context.Context, projectID string) ([]report.PeriodKey, error)
	List(ctx context.Context, projectID string, opts report.ListOptions) ([]report.Report, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler dispatches tool calls to domain services. The same handler serves
// MCP tool calls and the plain JSON-RPC endpoint.
type Handler struct {
	projects ProjectService
	reports  ReportService
	activity ActivityService
}

// NewHandler creates a new MCP handler.
func NewHandler(projects ProjectService, reports ReportService, activitySvc ActivityService) *Handler {
	return &Handler{
		projects: projects,
		reports:  reports,
		activity: activitySvc,
	}
}

// Handle runs method on behalf of id. Domain errors are returned as
// *APIError when they have a client-facing code.
func (h *Handler) Handle(ctx context.Context, id auth.Identity, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, id, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, id auth.Identity, method string, params json.RawMessage) (any, error) {
	if adminOnly[method] && !id.IsAdmin() {
		return nil, forbidden("%s requires the admin role", method)
	}

	switch method {
	case "create_project":
		var req CreateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Create(ctx, project.CreateRequest{
			ID:             req.ID,
			Name:           req.Name,
			Description:    req.Description,
			Duration:       req.Duration,
			Cadence:        req.Cadence,
			OrganizationID: req.OrganizationID,
			Axes:           req.Axes,
			Actor:          id.Actor(),
		})
	case "update_project":
		var req UpdateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Update(ctx, project.UpdateRequest{
			ID:          req.ProjectID,
			Name:        req.Name,
			Description: req.Description,
			Duration:    req.Duration,
			Cadence:     req.Cadence,
			Axes:        req.Axes,
			Actor:       id.Actor(),
		})
	case "delete_project":
		var req ProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.projects.Delete(ctx, req.ProjectID, id.Actor()); err != nil {
			return nil, err
		}
		return DeleteProjectResponse{ProjectID: req.ProjectID, Deleted: true}, nil
	case "approve_project":
		var req ProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Approve(ctx, req.ProjectID, id.Actor())
	case "authorize_payment":
		var req AuthorizePaymentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		outcome := payment.Declined(req.Reason)
		if req.Success {
			outcome = payment.Approved(req.TransactionID)
		}
		return h.projects.AuthorizePayment(ctx, req.ProjectID, outcome, id.Actor())
	case "pay_project":
		var req PayProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Pay(ctx, req.ProjectID, payment.Charge{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
		}, id.Actor())
	case "get_project":
		var req ProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Get(ctx, req.ProjectID)
	case "list_projects":
		var req ListProjectsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		projects, err := h.projects.List(ctx, project.ListOptions{
			States:         req.States,
			OrganizationID: req.OrganizationID,
			Limit:          req.Limit,
			Offset:         req.Offset,
		})
		if err != nil {
			return nil, err
		}
		return nonNil(projects), nil
	case "search_projects":
		var req SearchProjectsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		projects, err := h.projects.Search(ctx, req.Query, project.ListOptions{
			States: req.States,
			Limit:  req.Limit,
			Offset: req.Offset,
		})
		if err != nil {
			return nil, err
		}
		return nonNil(projects), nil
	case "get_payment_history":
		var req ProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		attempts, err := h.projects.PaymentHistory(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		return nonNil(attempts), nil
	case "submit_report":
		var req SubmitReportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.authorizeReporter(ctx, id, req.ProjectID); err != nil {
			return nil, err
		}
		return h.reports.Submit(ctx, report.SubmitRequest{
			ProjectID:   req.ProjectID,
			Axis:        req.Axis,
			Period:      req.Period,
			Values:      req.Values,
			SubmittedBy: id.Actor(),
		})
	case "get_report":
		var req GetReportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.reports.Get(ctx, req.ProjectID, req.Axis, req.Period)
	case "list_reported_periods":
		var req ProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, err := h.projects.Get(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		keys, err := h.reports.ListReportedPeriods(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		resp := ListReportedPeriodsResponse{ProjectID: proj.ID, Periods: make([]ReportedPeriodResponse, 0, len(keys))}
		for _, key := range keys {
			resp.Periods = append(resp.Periods, ReportedPeriodResponse{
				Axis:   key.Axis,
				Period: key.Period,
				Label:  fmt.Sprintf("%s %d", proj.Cadence.Label(key.Period.Index), key.Period.Year),
			})
		}
		return resp, nil
	case "list_reports":
		var req ListReportsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		reports, err := h.reports.List(ctx, req.ProjectID, report.ListOptions{
			Axis:   req.Axis,
			Year:   req.Year,
			Limit:  req.Limit,
			Offset: req.Offset,
		})
		if err != nil {
			return nil, err
		}
		return nonNil(reports), nil
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{
			ProjectID:    req.ProjectID,
			ReportID:     req.ReportID,
			ActivityType: req.Type,
			Limit:        req.Limit,
		})
		if err != nil {
			return nil, err
		}
		return nonNil(entries), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// adminOnly lists the methods reserved for administrators.
var adminOnly = map[string]bool{
	"create_project":    true,
	"update_project":    true,
	"delete_project":    true,
	"approve_project":   true,
	"authorize_payment": true,
	"pay_project":       true,
}

// authorizeReporter lets admins report on any project and organizations only
// on their own.
func (h *Handler) authorizeReporter(ctx context.Context, id auth.Identity, projectID string) error {
	if id.IsAdmin() {
		return nil
	}
	if id.Role != auth.RoleOrganization || id.OrgID == "" {
		return forbidden("submitting reports requires an organization identity")
	}
	proj, err := h.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if proj.OrganizationID != id.OrgID {
		return forbidden("organization %s does not own project %s", id.OrgID, proj.ID)
	}
	return nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || strings.TrimSpace(string(params)) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return invalidParams(err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

// nonNil keeps empty lists encoded as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
