package mocks

import (
	"context"

	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/payment"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Search(ctx context.Context, query string, opts project.ListOptions) ([]project.Project, error) {
	args := m.Called(ctx, query, opts)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, proj *project.Project, expectedState project.State, expectedRevision int64) error {
	args := m.Called(ctx, proj, expectedState, expectedRevision)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) RecordPaymentAttempt(ctx context.Context, attempt *project.PaymentAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *ProjectRepository) ListPaymentAttempts(ctx context.Context, projectID string) ([]project.PaymentAttempt, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]project.PaymentAttempt); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ReportRepository is a mock for report.Repository.
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	args := m.Called(ctx, rep)
	return args.Error(0)
}

func (m *ReportRepository) Get(ctx context.Context, projectID, axis string, period report.Period) (*report.Report, error) {
	args := m.Called(ctx, projectID, axis, period)
	if rep, ok := args.Get(0).(*report.Report); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) GetByID(ctx context.Context, id string) (*report.Report, error) {
	args := m.Called(ctx, id)
	if rep, ok := args.Get(0).(*report.Report); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) List(ctx context.Context, projectID string, opts report.ListOptions) ([]report.Report, error) {
	args := m.Called(ctx, projectID, opts)
	if list, ok := args.Get(0).([]report.Report); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) ListPeriods(ctx context.Context, projectID string) ([]report.PeriodKey, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]report.PeriodKey); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PaymentProvider is a mock for payment.Provider.
type PaymentProvider struct {
	mock.Mock
}

func (m *PaymentProvider) Authorize(ctx context.Context, charge payment.Charge) (payment.Outcome, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(payment.Outcome), args.Error(1)
}
