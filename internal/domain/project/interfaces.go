package project

import (
	"context"

	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/payment"
)

// Repository provides persistence for projects.
type Repository interface {
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, opts ListOptions) ([]Project, error)
	Search(ctx context.Context, query string, opts ListOptions) ([]Project, error)
	// Update persists proj only if the stored row still has expectedState and
	// expectedRevision, returning repository.ErrConflict otherwise.
	Update(ctx context.Context, proj *Project, expectedState State, expectedRevision int64) error
	Delete(ctx context.Context, id string) error
	RecordPaymentAttempt(ctx context.Context, attempt *PaymentAttempt) error
	ListPaymentAttempts(ctx context.Context, projectID string) ([]PaymentAttempt, error)
}

// ReportCounter reports how many reports reference a project.
type ReportCounter interface {
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// ActivityRepository logs lifecycle activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}

// PaymentProvider authorizes charges with the external payment service.
type PaymentProvider interface {
	Authorize(ctx context.Context, charge payment.Charge) (payment.Outcome, error)
}
