package report

import (
	"context"

	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
)

// Repository provides persistence for reports. Create must reject a second
// report for the same (project, axis, period) with repository.ErrDuplicate.
type Repository interface {
	Create(ctx context.Context, rep *Report) error
	Get(ctx context.Context, projectID, axis string, period Period) (*Report, error)
	GetByID(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, projectID string, opts ListOptions) ([]Report, error)
	ListPeriods(ctx context.Context, projectID string) ([]PeriodKey, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// ProjectReader loads the project a report is filed against.
type ProjectReader interface {
	Get(ctx context.Context, id string) (*project.Project, error)
}

// ActivityRepository logs report activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
