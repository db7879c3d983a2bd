package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/repository"
)

const (
	minYear = 1900
	maxYear = 9999
)

// Service handles report submission and lookup.
type Service struct {
	reports    Repository
	projects   ProjectReader
	activities ActivityRepository
	derived    *DerivedCatalog
	policy     ReportingPolicy
	logger     *slog.Logger
}

// NewService creates a new report service. An empty policy means
// PolicyIndependent.
func NewService(
	reports Repository,
	projects ProjectReader,
	activities ActivityRepository,
	derived *DerivedCatalog,
	policy ReportingPolicy,
	logger *slog.Logger,
) *Service {
	if policy == "" {
		policy = PolicyIndependent
	}
	return &Service{
		reports:    reports,
		projects:   projects,
		activities: activities,
		derived:    derived,
		policy:     policy,
		logger:     logger,
	}
}

// SubmitRequest describes a report submission.
type SubmitRequest struct {
	ProjectID   string
	Axis        string
	Period      Period
	Values      indicator.RawValues
	SubmittedBy string
}

// Submit validates and stores a report. The stored report is locked from
// the moment it is created.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Report, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, &InputError{Field: "project_id", Reason: "is required"}
	}
	if strings.TrimSpace(req.SubmittedBy) == "" {
		return nil, &InputError{Field: "submitted_by", Reason: "is required"}
	}

	proj, err := s.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if s.policy == PolicyAfterApproval && proj.State == project.StatePendingApproval {
		return nil, &project.InvalidStateError{Op: "report on", Current: proj.State, Expected: project.StatePendingPayment}
	}

	axis, ok := proj.Axis(req.Axis)
	if !ok {
		return nil, &AxisNotFoundError{ProjectID: proj.ID, Axis: req.Axis}
	}

	if err := validatePeriod(proj.Cadence, req.Period); err != nil {
		return nil, err
	}

	// Fast path only; the store's unique index decides concurrent submissions.
	if _, err := s.reports.Get(ctx, proj.ID, axis.Name, req.Period); err == nil {
		return nil, &DuplicatePeriodError{ProjectID: proj.ID, Axis: axis.Name, Period: req.Period}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking existing report: %w", err)
	}

	values, err := indicator.Validate(axis.Indicators, req.Values)
	if err != nil {
		return nil, err
	}

	derived, skipped := s.derived.Compute(axis.Name, values)
	for _, skip := range skipped {
		if s.logger != nil {
			s.logger.Warn("derived field skipped", "project_id", proj.ID, "axis", axis.Name, "error", skip)
		}
	}

	rep := &Report{
		ID:          uuid.NewString(),
		ProjectID:   proj.ID,
		Axis:        axis.Name,
		Period:      req.Period,
		Values:      values,
		Derived:     derived,
		SubmittedAt: time.Now(),
		SubmittedBy: req.SubmittedBy,
		Locked:      true,
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &DuplicatePeriodError{ProjectID: proj.ID, Axis: axis.Name, Period: req.Period}
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("creating report: %w", err)
	}

	if s.activities != nil {
		err := s.activities.Log(ctx, &activity.ActivityEntry{
			ProjectID:    rep.ProjectID,
			ReportID:     &rep.ID,
			ActivityType: activity.TypeReportSubmitted,
			Actor:        rep.SubmittedBy,
			Summary:      fmt.Sprintf("submitted %s report for %s", rep.Axis, rep.Period),
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("failed to log activity", "report_id", rep.ID, "error", err)
		}
	}

	return rep, nil
}

// Get returns the report filed for a project axis and period.
func (s *Service) Get(ctx context.Context, projectID, axis string, period Period) (*Report, error) {
	rep, err := s.reports.Get(ctx, projectID, axis, period)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return rep, nil
}

// GetByID returns a report by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Report, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return rep, nil
}

// ListReportedPeriods returns every (axis, period) already reported for a
// project.
func (s *Service) ListReportedPeriods(ctx context.Context, projectID string) ([]PeriodKey, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	keys, err := s.reports.ListPeriods(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing reported periods: %w", err)
	}
	return keys, nil
}

// List returns the reports of a project.
func (s *Service) List(ctx context.Context, projectID string, opts ListOptions) ([]Report, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.reports.List(ctx, projectID, opts)
}

// Policy returns the configured reporting policy.
func (s *Service) Policy() ReportingPolicy {
	return s.policy
}

func validatePeriod(cadence project.Cadence, period Period) error {
	if period.Index < 1 || period.Index > cadence.PeriodsPerYear() {
		return &InputError{
			Field:  "period.index",
			Reason: fmt.Sprintf("must be between 1 and %d for %s reporting", cadence.PeriodsPerYear(), cadence),
		}
	}
	if period.Year < minYear || period.Year > maxYear {
		return &InputError{Field: "period.year", Reason: fmt.Sprintf("must be between %d and %d", minYear, maxYear)}
	}
	return nil
}
