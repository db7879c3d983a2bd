package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/payment"
	"github.com/stretchr/testify/require"
)

type projectStub struct {
	createFn    func(context.Context, project.CreateRequest) (*project.Project, error)
	updateFn    func(context.Context, project.UpdateRequest) (*project.Project, error)
	approveFn   func(context.Context, string, string) (*project.Project, error)
	authorizeFn func(context.Context, string, payment.Outcome, string) (*project.Project, error)
	payFn       func(context.Context, string, payment.Charge, string) (*project.Project, error)
	deleteFn    func(context.Context, string, string) error
	getFn       func(context.Context, string) (*project.Project, error)
	listFn      func(context.Context, project.ListOptions) ([]project.Project, error)
	searchFn    func(context.Context, string, project.ListOptions) ([]project.Project, error)
	historyFn   func(context.Context, string) ([]project.PaymentAttempt, error)
}

func (p projectStub) Create(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	return p.createFn(ctx, req)
}
func (p projectStub) Update(ctx context.Context, req project.UpdateRequest) (*project.Project, error) {
	return p.updateFn(ctx, req)
}
func (p projectStub) Approve(ctx context.Context, id, actor string) (*project.Project, error) {
	return p.approveFn(ctx, id, actor)
}
func (p projectStub) AuthorizePayment(ctx context.Context, id string, outcome payment.Outcome, actor string) (*project.Project, error) {
	return p.authorizeFn(ctx, id, outcome, actor)
}
func (p projectStub) Pay(ctx context.Context, id string, charge payment.Charge, actor string) (*project.Project, error) {
	return p.payFn(ctx, id, charge, actor)
}
func (p projectStub) Delete(ctx context.Context, id, actor string) error {
	return p.deleteFn(ctx, id, actor)
}
func (p projectStub) Get(ctx context.Context, id string) (*project.Project, error) {
	return p.getFn(ctx, id)
}
func (p projectStub) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	return p.listFn(ctx, opts)
}
func (p projectStub) Search(ctx context.Context, query string, opts project.ListOptions) ([]project.Project, error) {
	return p.searchFn(ctx, query, opts)
}
func (p projectStub) PaymentHistory(ctx context.Context, id string) ([]project.PaymentAttempt, error) {
	return p.historyFn(ctx, id)
}

type reportStub struct {
	submitFn  func(context.Context, report.SubmitRequest) (*report.Report, error)
	getFn     func(context.Context, string, string, report.Period) (*report.Report, error)
	periodsFn func(context.Context, string) ([]report.PeriodKey, error)
	listFn    func(context.Context, string, report.ListOptions) ([]report.Report, error)
}

func (r reportStub) Submit(ctx context.Context, req report.SubmitRequest) (*report.Report, error) {
	return r.submitFn(ctx, req)
}
func (r reportStub) Get(ctx context.Context, projectID, axis string, period report.Period) (*report.Report, error) {
	return r.getFn(ctx, projectID, axis, period)
}
func (r reportStub) ListReportedPeriods(ctx context.Context, projectID string) ([]report.PeriodKey, error) {
	return r.periodsFn(ctx, projectID)
}
func (r reportStub) List(ctx context.Context, projectID string, opts report.ListOptions) ([]report.Report, error) {
	return r.listFn(ctx, projectID, opts)
}

type activityStub struct {
	listFn func(context.Context, activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return a.listFn(ctx, opts)
}

var (
	admin = auth.Identity{Role: auth.RoleAdmin}
	org1  = auth.Identity{OrgID: "org1", Role: auth.RoleOrganization}
	org2  = auth.Identity{OrgID: "org2", Role: auth.RoleOrganization}
)

func ownedProject(_ context.Context, id string) (*project.Project, error) {
	if id != "p1" {
		return nil, project.ErrProjectNotFound
	}
	return &project.Project{ID: "p1", OrganizationID: "org1", Cadence: project.CadenceQuarterly, State: project.StatePendingPayment}, nil
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func requireCode(t *testing.T, err error, code string) *APIError {
	t.Helper()
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestHandler_ProjectCommands(t *testing.T) {
	ctx := context.Background()

	handler := NewHandler(projectStub{
		createFn: func(_ context.Context, req project.CreateRequest) (*project.Project, error) {
			return &project.Project{ID: "p1", Name: req.Name, Cadence: req.Cadence, OrganizationID: req.OrganizationID, State: project.StatePendingApproval}, nil
		},
		listFn: func(_ context.Context, opts project.ListOptions) ([]project.Project, error) {
			require.Equal(t, []project.State{project.StateHistorical}, opts.States)
			return nil, nil
		},
		searchFn: func(_ context.Context, query string, _ project.ListOptions) ([]project.Project, error) {
			return []project.Project{{ID: "p1", Name: query}}, nil
		},
		getFn: ownedProject,
		deleteFn: func(_ context.Context, id, actor string) error {
			require.Equal(t, "admin", actor)
			return nil
		},
	}, reportStub{}, activityStub{})

	result, err := handler.Handle(ctx, admin, "create_project", raw(t, map[string]any{
		"name":            "Feeding",
		"duration":        12,
		"cadence":         "monthly",
		"organization_id": "org1",
	}))
	require.NoError(t, err)
	created := result.(*project.Project)
	require.Equal(t, project.CadenceMonthly, created.Cadence)
	require.Equal(t, "org1", created.OrganizationID)

	result, err = handler.Handle(ctx, org1, "list_projects", raw(t, map[string]any{"states": []string{"HISTORICAL"}}))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result)

	result, err = handler.Handle(ctx, org1, "search_projects", raw(t, map[string]any{"query": "feeding"}))
	require.NoError(t, err)
	require.Len(t, result, 1)

	result, err = handler.Handle(ctx, admin, "delete_project", raw(t, map[string]any{"project_id": "p1"}))
	require.NoError(t, err)
	require.Equal(t, DeleteProjectResponse{ProjectID: "p1", Deleted: true}, result)

	_, err = handler.Handle(ctx, org1, "get_project", raw(t, map[string]any{"project_id": "missing"}))
	requireCode(t, err, CodeNotFound)
}

func TestHandler_AdminOnlyMethods(t *testing.T) {
	handler := NewHandler(projectStub{}, reportStub{}, activityStub{})

	for method := range adminOnly {
		_, err := handler.Handle(context.Background(), org1, method, raw(t, map[string]any{"project_id": "p1"}))
		requireCode(t, err, CodeForbidden)
	}
}

func TestHandler_LifecycleCommands(t *testing.T) {
	ctx := context.Background()

	var gotOutcome payment.Outcome
	var gotCharge payment.Charge
	handler := NewHandler(projectStub{
		approveFn: func(_ context.Context, _, _ string) (*project.Project, error) {
			return nil, &project.AxisMissingIndicatorsError{Axes: []string{"Water"}}
		},
		authorizeFn: func(_ context.Context, id string, outcome payment.Outcome, _ string) (*project.Project, error) {
			gotOutcome = outcome
			return nil, &project.PaymentDeclinedError{ProjectID: id, Reason: outcome.Reason}
		},
		payFn: func(_ context.Context, id string, charge payment.Charge, _ string) (*project.Project, error) {
			gotCharge = charge
			return &project.Project{ID: id, State: project.StateHistorical}, nil
		},
	}, reportStub{}, activityStub{})

	_, err := handler.Handle(ctx, admin, "approve_project", raw(t, map[string]any{"project_id": "p1"}))
	apiErr := requireCode(t, err, CodeAxisMissingIndicators)
	require.Equal(t, map[string]any{"axes": []string{"Water"}}, apiErr.Details)

	_, err = handler.Handle(ctx, admin, "authorize_payment", raw(t, map[string]any{
		"project_id": "p1",
		"success":    false,
		"reason":     "insufficient funds",
	}))
	requireCode(t, err, CodePaymentDeclined)
	require.Equal(t, payment.Declined("insufficient funds"), gotOutcome)

	result, err := handler.Handle(ctx, admin, "pay_project", json.RawMessage(`{"project_id":"p1","amount":"250.50","description":"Q1 grant"}`))
	require.NoError(t, err)
	require.Equal(t, project.StateHistorical, result.(*project.Project).State)
	require.Equal(t, "250.5", gotCharge.Amount.String())
	require.Equal(t, "Q1 grant", gotCharge.Description)
}

func TestHandler_InvalidStateDetails(t *testing.T) {
	handler := NewHandler(projectStub{
		approveFn: func(_ context.Context, _, _ string) (*project.Project, error) {
			return nil, &project.InvalidStateError{Op: "approve", Current: project.StatePendingPayment, Expected: project.StatePendingApproval}
		},
	}, reportStub{}, activityStub{})

	_, err := handler.Handle(context.Background(), admin, "approve_project", raw(t, map[string]any{"project_id": "p1"}))
	apiErr := requireCode(t, err, CodeInvalidState)
	details := apiErr.Details.(map[string]any)
	require.Equal(t, project.StatePendingPayment, details["current"])
}

func TestHandler_ConflictDetails(t *testing.T) {
	handler := NewHandler(projectStub{
		approveFn: func(_ context.Context, id, _ string) (*project.Project, error) {
			return nil, &project.ConflictError{Op: "approve", ProjectID: id, Revision: 4}
		},
	}, reportStub{}, activityStub{})

	_, err := handler.Handle(context.Background(), admin, "approve_project", raw(t, map[string]any{"project_id": "p1"}))
	apiErr := requireCode(t, err, CodeConflict)
	details := apiErr.Details.(map[string]any)
	require.Equal(t, int64(4), details["revision"])
	require.Equal(t, "p1", details["project_id"])
}

func TestHandler_SubmitReportOwnership(t *testing.T) {
	ctx := context.Background()

	var submitted report.SubmitRequest
	handler := NewHandler(projectStub{getFn: ownedProject}, reportStub{
		submitFn: func(_ context.Context, req report.SubmitRequest) (*report.Report, error) {
			submitted = req
			return &report.Report{ID: "r1", ProjectID: req.ProjectID, Axis: req.Axis, Period: req.Period, Locked: true}, nil
		},
	}, activityStub{})

	params := json.RawMessage(`{"project_id":"p1","axis":"Nutrition","period":{"index":2,"year":2024},"values":{"A":10,"B":"5"}}`)

	result, err := handler.Handle(ctx, org1, "submit_report", params)
	require.NoError(t, err)
	require.True(t, result.(*report.Report).Locked)
	require.Equal(t, "org1", submitted.SubmittedBy)
	require.Equal(t, report.Period{Index: 2, Year: 2024}, submitted.Period)
	require.Equal(t, indicator.RawValues{"A": "10", "B": "5"}, submitted.Values)

	_, err = handler.Handle(ctx, org2, "submit_report", params)
	requireCode(t, err, CodeForbidden)

	_, err = handler.Handle(ctx, auth.Identity{Role: auth.RoleOrganization}, "submit_report", params)
	requireCode(t, err, CodeForbidden)

	_, err = handler.Handle(ctx, admin, "submit_report", params)
	require.NoError(t, err)
	require.Equal(t, "admin", submitted.SubmittedBy)
}

func TestHandler_SubmitReportErrors(t *testing.T) {
	ctx := context.Background()
	params := json.RawMessage(`{"project_id":"p1","axis":"Nutrition","period":{"index":2,"year":2024},"values":{}}`)

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"duplicate", &report.DuplicatePeriodError{ProjectID: "p1", Axis: "Nutrition", Period: report.Period{Index: 2, Year: 2024}}, CodeDuplicatePeriod},
		{"validation", &indicator.ValidationError{Issues: []indicator.Issue{{Indicator: "A", Reason: indicator.ReasonMissing}}}, CodeValidation},
		{"axis", &report.AxisNotFoundError{ProjectID: "p1", Axis: "Nutrition"}, CodeNotFound},
		{"input", &report.InputError{Field: "period", Reason: "out of range"}, CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(projectStub{getFn: ownedProject}, reportStub{
				submitFn: func(context.Context, report.SubmitRequest) (*report.Report, error) {
					return nil, tc.err
				},
			}, activityStub{})
			_, err := handler.Handle(ctx, org1, "submit_report", params)
			requireCode(t, err, tc.code)
		})
	}
}

func TestHandler_ListReportedPeriodsLabels(t *testing.T) {
	handler := NewHandler(projectStub{getFn: ownedProject}, reportStub{
		periodsFn: func(context.Context, string) ([]report.PeriodKey, error) {
			return []report.PeriodKey{{Axis: "Water", Period: report.Period{Index: 3, Year: 2024}}}, nil
		},
	}, activityStub{})

	result, err := handler.Handle(context.Background(), org1, "list_reported_periods", raw(t, map[string]any{"project_id": "p1"}))
	require.NoError(t, err)
	resp := result.(ListReportedPeriodsResponse)
	require.Len(t, resp.Periods, 1)
	require.Equal(t, "Q3 2024", resp.Periods[0].Label)
}

func TestHandler_ActivityFilters(t *testing.T) {
	handler := NewHandler(projectStub{}, reportStub{}, activityStub{
		listFn: func(_ context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
			require.Equal(t, "p1", opts.ProjectID)
			require.NotNil(t, opts.ActivityType)
			require.Equal(t, activity.TypeReportSubmitted, *opts.ActivityType)
			return nil, nil
		},
	})

	result, err := handler.Handle(context.Background(), org1, "get_recent_activity", raw(t, map[string]any{
		"project_id": "p1",
		"type":       string(activity.TypeReportSubmitted),
	}))
	require.NoError(t, err)
	require.Equal(t, []activity.ActivityEntry{}, result)
}

func TestHandler_BadInput(t *testing.T) {
	handler := NewHandler(projectStub{}, reportStub{}, activityStub{})

	_, err := handler.Handle(context.Background(), admin, "approve_project", json.RawMessage(`{"project_id": 7}`))
	requireCode(t, err, CodeValidation)

	_, err = handler.Handle(context.Background(), admin, "frobnicate", nil)
	require.ErrorIs(t, err, ErrUnknownMethod)
	require.Nil(t, MapError(err))
}

func TestMapError_PassesThroughUnknownErrors(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("disk on fire")))

	apiErr := MapError(project.ErrProjectHasReports)
	require.Equal(t, CodeProjectHasReports, apiErr.Code)
}

func TestToolCatalogMatchesHandler(t *testing.T) {
	handler := NewHandler(projectStub{}, reportStub{}, activityStub{})
	seen := map[string]bool{}
	for _, tool := range Tools() {
		require.False(t, seen[tool.Name], "duplicate tool %s", tool.Name)
		seen[tool.Name] = true
		require.Equal(t, "object", tool.InputSchema["type"], tool.Name)

		// Every catalog entry must be dispatched; bad params fail before any service call.
		_, err := handler.Handle(context.Background(), admin, tool.Name, json.RawMessage(`[]`))
		require.NotErrorIs(t, err, ErrUnknownMethod, tool.Name)
	}
	require.Len(t, seen, 15)
}
