package report_test

import (
	"context"
	"testing"

	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/repository"
	"github.com/rpggio/ngoboard/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var january2024 = report.Period{Index: 1, Year: 2024}

func nutritionProject(state project.State) *project.Project {
	return &project.Project{
		ID:             "p1",
		Name:           "Feeding programme",
		Duration:       12,
		Cadence:        project.CadenceMonthly,
		OrganizationID: "org1",
		State:          state,
		Axes: []project.Axis{{
			Name: "Nutrition",
			Indicators: []indicator.Indicator{
				{Name: "A", Type: indicator.TypeCount},
				{Name: "B", Type: indicator.TypeCount},
				{Name: "C", Type: indicator.TypeCount},
				{Name: "D", Type: indicator.TypeCount},
			},
		}},
	}
}

type fixture struct {
	reports    *mocks.ReportRepository
	projects   *mocks.ProjectRepository
	activities *mocks.ActivityRepository
}

func newFixture(t *testing.T, state project.State) *fixture {
	t.Helper()
	f := &fixture{
		reports:    &mocks.ReportRepository{},
		projects:   &mocks.ProjectRepository{},
		activities: &mocks.ActivityRepository{},
	}
	f.projects.On("Get", mock.Anything, "p1").Return(nutritionProject(state), nil)
	f.projects.On("Get", mock.Anything, mock.Anything).Return(nil, project.ErrProjectNotFound)
	return f
}

func (f *fixture) service(policy report.ReportingPolicy) *report.Service {
	return report.NewService(f.reports, f.projects, f.activities, report.DefaultDerivedCatalog(), policy, nil)
}

func TestReportService_SubmitComputesDerivedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)
	f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(nil, repository.ErrNotFound)
	f.reports.On("Create", ctx, mock.MatchedBy(func(r *report.Report) bool {
		return r.Locked && r.Period == january2024 && len(r.Values) == 4
	})).Return(nil)
	f.activities.On("Log", ctx, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeReportSubmitted && e.ReportID != nil
	})).Return(nil)

	rep, err := f.service("").Submit(ctx, report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Nutrition",
		Period:      january2024,
		Values:      indicator.RawValues{"A": "10", "B": "5", "C": "3", "D": "20"},
		SubmittedBy: "org1",
	})
	require.NoError(t, err)
	require.True(t, rep.Locked)
	require.Len(t, rep.Derived, 1)
	require.Equal(t, "recovery_rate", rep.Derived[0].Name)
	require.Equal(t, "90.00", rep.Derived[0].Value.StringFixed(2))

	a, ok := rep.Value("A")
	require.True(t, ok)
	require.Equal(t, "10", a.Number.String())

	f.reports.AssertExpectations(t)
	f.activities.AssertExpectations(t)
}

func TestReportService_SubmitDuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingPayment)
	f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(&report.Report{ID: "r1"}, nil)

	_, err := f.service("").Submit(ctx, report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Nutrition",
		Period:      january2024,
		Values:      indicator.RawValues{"A": "1", "B": "1", "C": "1", "D": "1"},
		SubmittedBy: "org1",
	})
	require.ErrorIs(t, err, report.ErrDuplicatePeriod)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReportService_SubmitLosesRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)
	f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(nil, repository.ErrNotFound)
	f.reports.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	_, err := f.service("").Submit(ctx, report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Nutrition",
		Period:      january2024,
		Values:      indicator.RawValues{"A": "1", "B": "1", "C": "1", "D": "1"},
		SubmittedBy: "org1",
	})
	var dup *report.DuplicatePeriodError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "Nutrition", dup.Axis)
	f.activities.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}

func TestReportService_SubmitRejectsIndicatorMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)
	f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(nil, repository.ErrNotFound)

	_, err := f.service("").Submit(ctx, report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Nutrition",
		Period:      january2024,
		Values:      indicator.RawValues{"A": "1", "B": "x", "C": "1", "E": "4"},
		SubmittedBy: "org1",
	})
	require.ErrorIs(t, err, indicator.ErrValidation)

	var verr *indicator.ValidationError
	require.ErrorAs(t, err, &verr)
	got := make(map[string]indicator.IssueReason, len(verr.Issues))
	for _, issue := range verr.Issues {
		got[issue.Indicator] = issue.Reason
	}
	require.Equal(t, map[string]indicator.IssueReason{
		"B": indicator.ReasonNotANumber,
		"D": indicator.ReasonMissing,
		"E": indicator.ReasonUndeclared,
	}, got)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReportService_SubmitUnknownAxis(t *testing.T) {
	f := newFixture(t, project.StatePendingApproval)

	_, err := f.service("").Submit(context.Background(), report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Shelter",
		Period:      january2024,
		SubmittedBy: "org1",
	})
	require.ErrorIs(t, err, report.ErrAxisNotFound)
}

func TestReportService_SubmitUnknownProject(t *testing.T) {
	f := newFixture(t, project.StatePendingApproval)

	_, err := f.service("").Submit(context.Background(), report.SubmitRequest{
		ProjectID:   "nope",
		Axis:        "Nutrition",
		Period:      january2024,
		SubmittedBy: "org1",
	})
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestReportService_SubmitPeriodOutOfRange(t *testing.T) {
	f := newFixture(t, project.StatePendingApproval)
	svc := f.service("")

	for _, period := range []report.Period{{Index: 0, Year: 2024}, {Index: 13, Year: 2024}, {Index: 1, Year: 12}} {
		_, err := svc.Submit(context.Background(), report.SubmitRequest{
			ProjectID:   "p1",
			Axis:        "Nutrition",
			Period:      period,
			SubmittedBy: "org1",
		})
		require.ErrorIs(t, err, report.ErrInvalidInput, "period %v", period)
	}
}

func TestReportService_SubmitRequiresSubmitter(t *testing.T) {
	svc := newFixture(t, project.StatePendingApproval).service("")
	_, err := svc.Submit(context.Background(), report.SubmitRequest{ProjectID: "p1", Axis: "Nutrition", Period: january2024})

	var inputErr *report.InputError
	require.ErrorAs(t, err, &inputErr)
	require.Equal(t, "submitted_by", inputErr.Field)
}

func TestReportService_AfterApprovalPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)

	_, err := f.service(report.PolicyAfterApproval).Submit(ctx, report.SubmitRequest{
		ProjectID:   "p1",
		Axis:        "Nutrition",
		Period:      january2024,
		Values:      indicator.RawValues{"A": "1", "B": "1", "C": "1", "D": "1"},
		SubmittedBy: "org1",
	})
	require.ErrorIs(t, err, project.ErrInvalidState)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReportService_ReportsAcceptedInEveryStateByDefault(t *testing.T) {
	for _, state := range []project.State{project.StatePendingApproval, project.StatePendingPayment, project.StateHistorical} {
		ctx := context.Background()
		f := newFixture(t, state)
		f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(nil, repository.ErrNotFound)
		f.reports.On("Create", ctx, mock.Anything).Return(nil)
		f.activities.On("Log", ctx, mock.Anything).Return(nil)

		_, err := f.service(report.PolicyIndependent).Submit(ctx, report.SubmitRequest{
			ProjectID:   "p1",
			Axis:        "Nutrition",
			Period:      january2024,
			Values:      indicator.RawValues{"A": "1", "B": "1", "C": "1", "D": "1"},
			SubmittedBy: "org1",
		})
		require.NoError(t, err, "state %s", state)
	}
}

func TestReportService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)
	f.reports.On("Get", ctx, "p1", "Nutrition", january2024).Return(nil, repository.ErrNotFound)

	_, err := f.service("").Get(ctx, "p1", "Nutrition", january2024)
	require.ErrorIs(t, err, report.ErrReportNotFound)
}

func TestReportService_ListReportedPeriods(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, project.StatePendingApproval)
	keys := []report.PeriodKey{{Axis: "Nutrition", Period: january2024}}
	f.reports.On("ListPeriods", ctx, "p1").Return(keys, nil)

	got, err := f.service("").ListReportedPeriods(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, keys, got)

	_, err = f.service("").ListReportedPeriods(ctx, "nope")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}
