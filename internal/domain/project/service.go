package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/payment"
	"github.com/rpggio/ngoboard/internal/repository"
)

// Service handles project operations and lifecycle transitions.
type Service struct {
	repo       Repository
	reports    ReportCounter
	activities ActivityRepository
	payments   PaymentProvider
	logger     *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, reports ReportCounter, activities ActivityRepository, payments PaymentProvider, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		reports:    reports,
		activities: activities,
		payments:   payments,
		logger:     logger,
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	ID             string
	Name           string
	Description    string
	Duration       int
	Cadence        Cadence
	OrganizationID string
	Axes           []Axis
	Actor          string
}

// UpdateRequest describes an administrative edit. Nil fields are unchanged.
type UpdateRequest struct {
	ID          string
	Name        *string
	Description *string
	Duration    *int
	Cadence     *Cadence
	Axes        []Axis
	Actor       string
}

// Create creates a new project in PENDING_APPROVAL.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	proj := &Project{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Duration:       req.Duration,
		Cadence:        req.Cadence,
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Axes:           normalizeAxes(req.Axes),
		State:          StatePendingApproval,
		Revision:       1,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if err := ValidateProject(proj); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &InputError{Field: "id", Reason: "already exists"}
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logActivity(ctx, proj.ID, activity.TypeProjectCreated, req.Actor, fmt.Sprintf("created project %s", proj.Name))
	return proj, nil
}

// Update edits a project that has not yet been approved.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Project, error) {
	current, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if current.State != StatePendingApproval {
		return nil, &InvalidStateError{Op: "edit", Current: current.State, Expected: StatePendingApproval}
	}

	updated := *current
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Duration != nil {
		updated.Duration = *req.Duration
	}
	if req.Cadence != nil {
		updated.Cadence = *req.Cadence
	}
	if req.Axes != nil {
		updated.Axes = normalizeAxes(req.Axes)
	}
	if err := ValidateProject(&updated); err != nil {
		return nil, err
	}
	updated.ModifiedAt = time.Now()
	updated.Revision = current.Revision + 1

	if err := s.repo.Update(ctx, &updated, current.State, current.Revision); err != nil {
		return nil, s.translateUpdateError(ctx, err, "edit", current.ID, StatePendingApproval)
	}

	s.logActivity(ctx, updated.ID, activity.TypeProjectUpdated, req.Actor, fmt.Sprintf("updated project %s", updated.Name))
	return &updated, nil
}

// Approve moves a project from PENDING_APPROVAL to PENDING_PAYMENT.
func (s *Service) Approve(ctx context.Context, id, actor string) (*Project, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition("approve", current.State, StatePendingPayment); err != nil {
		return nil, err
	}
	if empty := current.EmptyAxes(); len(empty) > 0 {
		return nil, &AxisMissingIndicatorsError{Axes: empty}
	}

	now := time.Now()
	updated := *current
	updated.State = StatePendingPayment
	updated.ApprovedAt = &now
	updated.ModifiedAt = now
	updated.Revision = current.Revision + 1

	if err := s.repo.Update(ctx, &updated, current.State, current.Revision); err != nil {
		return nil, s.translateUpdateError(ctx, err, "approve", id, StatePendingApproval)
	}

	s.logActivity(ctx, id, activity.TypeProjectApproved, actor, fmt.Sprintf("approved project %s", updated.Name))
	return &updated, nil
}

// AuthorizePayment applies an outcome reported by the payment provider.
// Every attempt is recorded, including those that are rejected.
func (s *Service) AuthorizePayment(ctx context.Context, id string, outcome payment.Outcome, actor string) (*Project, error) {
	return s.authorize(ctx, id, outcome, nil, actor)
}

// Pay charges the project through the payment provider and applies the
// outcome. The provider is called once; retrying is left to the caller.
func (s *Service) Pay(ctx context.Context, id string, charge payment.Charge, actor string) (*Project, error) {
	if s.payments == nil {
		return nil, fmt.Errorf("payment provider not configured")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition("authorize payment", current.State, StateHistorical); err != nil {
		return nil, err
	}

	outcome, err := s.payments.Authorize(ctx, charge)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidCharge) {
			return nil, &InputError{Field: "charge", Reason: err.Error()}
		}
		if auditErr := s.recordAttempt(ctx, current, payment.Declined("provider error: "+err.Error()), &charge, actor); auditErr != nil && s.logger != nil {
			s.logger.Warn("failed to record payment attempt", "project_id", id, "error", auditErr)
		}
		return nil, fmt.Errorf("authorizing payment: %w", err)
	}

	return s.authorize(ctx, id, outcome, &charge, actor)
}

func (s *Service) authorize(ctx context.Context, id string, outcome payment.Outcome, charge *payment.Charge, actor string) (*Project, error) {
	if outcome.Success && strings.TrimSpace(outcome.TransactionID) == "" {
		return nil, &InputError{Field: "transaction_id", Reason: "required for a successful payment"}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.recordAttempt(ctx, current, outcome, charge, actor); err != nil {
		return nil, err
	}

	if err := ValidateTransition("authorize payment", current.State, StateHistorical); err != nil {
		return nil, err
	}

	if !outcome.Success {
		s.logActivity(ctx, id, activity.TypePaymentDeclined, actor, fmt.Sprintf("payment declined: %s", outcome.Reason))
		return nil, &PaymentDeclinedError{ProjectID: id, Reason: outcome.Reason}
	}

	now := time.Now()
	updated := *current
	updated.State = StateHistorical
	updated.PaidAt = &now
	updated.ModifiedAt = now
	updated.Revision = current.Revision + 1

	if err := s.repo.Update(ctx, &updated, current.State, current.Revision); err != nil {
		return nil, s.translateUpdateError(ctx, err, "authorize payment", id, StatePendingPayment)
	}

	s.logActivity(ctx, id, activity.TypeProjectPaid, actor, fmt.Sprintf("payment %s authorized", outcome.TransactionID))
	return &updated, nil
}

func (s *Service) recordAttempt(ctx context.Context, current *Project, outcome payment.Outcome, charge *payment.Charge, actor string) error {
	attempt := &PaymentAttempt{
		ID:            uuid.NewString(),
		ProjectID:     current.ID,
		Success:       outcome.Success,
		TransactionID: outcome.TransactionID,
		Reason:        outcome.Reason,
		StateAtCall:   current.State,
		Actor:         actor,
		CreatedAt:     time.Now(),
	}
	if charge != nil {
		attempt.Amount = charge.Amount.String()
		attempt.Currency = charge.Currency
	}
	if err := s.repo.RecordPaymentAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("recording payment attempt: %w", err)
	}
	s.logActivity(ctx, current.ID, activity.TypePaymentAttempted, actor, fmt.Sprintf("payment attempt %s (success=%t)", attempt.ID, outcome.Success))
	return nil
}

// Delete removes a project that no report references.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.reports.CountByProject(ctx, id)
	if err != nil {
		return fmt.Errorf("counting reports: %w", err)
	}
	if count > 0 {
		return ErrProjectHasReports
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrProjectNotFound
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return ErrProjectHasReports
		}
		return fmt.Errorf("deleting project: %w", err)
	}

	s.logActivity(ctx, id, activity.TypeProjectDeleted, actor, fmt.Sprintf("deleted project %s", id))
	return nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns projects filtered by state and organization.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Project, error) {
	for _, state := range opts.States {
		if !state.Valid() {
			return nil, &InputError{Field: "states", Reason: fmt.Sprintf("unknown state %q", state)}
		}
	}
	return s.repo.List(ctx, opts)
}

// Search runs a full-text search over project names and descriptions.
func (s *Service) Search(ctx context.Context, query string, opts ListOptions) ([]Project, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &InputError{Field: "query", Reason: "is required"}
	}
	return s.repo.Search(ctx, query, opts)
}

// PaymentHistory returns the recorded payment attempts of a project.
func (s *Service) PaymentHistory(ctx context.Context, id string) ([]PaymentAttempt, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentAttempts(ctx, id)
}

// translateUpdateError maps a failed compare-and-swap to a lifecycle error
// describing the state the project is in now, or to a *ConflictError when
// only the revision moved.
func (s *Service) translateUpdateError(ctx context.Context, err error, op, id string, expected State) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrProjectNotFound
	case errors.Is(err, repository.ErrConflict):
		latest, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if latest.State == expected {
			return &ConflictError{Op: op, ProjectID: id, Revision: latest.Revision}
		}
		return &InvalidStateError{Op: op, Current: latest.State, Expected: expected}
	}
	return fmt.Errorf("updating project: %w", err)
}

func (s *Service) logActivity(ctx context.Context, projectID string, typ activity.ActivityType, actor, summary string) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, &activity.ActivityEntry{
		ProjectID:    projectID,
		ActivityType: typ,
		Actor:        actor,
		Summary:      summary,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("failed to log activity", "project_id", projectID, "type", typ, "error", err)
	}
}
