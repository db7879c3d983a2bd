package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
	p.id, p.name, p.description, p.duration, p.cadence, p.organization_id,
	p.state, p.revision, p.created_at, p.modified_at, p.approved_at, p.paid_at`

// Create inserts a project together with its axes and indicators.
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (
			id, name, description, duration, cadence, organization_id,
			state, revision, created_at, modified_at, approved_at, paid_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		proj.ID,
		proj.Name,
		proj.Description,
		proj.Duration,
		proj.Cadence,
		proj.OrganizationID,
		proj.State,
		proj.Revision,
		proj.CreatedAt,
		proj.ModifiedAt,
		nullTime(proj.ApprovedAt),
		nullTime(proj.PaidAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := insertAxes(ctx, tx, proj.ID, proj.Axes); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
	proj, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if proj.Axes, err = loadAxes(ctx, r.db, proj.ID); err != nil {
		return nil, err
	}
	return proj, nil
}

// List returns projects matching the filters, newest first.
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE 1=1`
	query, args := applyProjectFilters(query, nil, opts)
	query += " ORDER BY p.created_at DESC, p.id"
	query, args = applyPaging(query, args, opts.Limit, opts.Offset)
	return r.query(ctx, query, args...)
}

// Search performs a full-text search over project names and descriptions.
func (r *ProjectRepository) Search(ctx context.Context, text string, opts project.ListOptions) ([]project.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects_fts
		JOIN projects p ON p.rowid = projects_fts.rowid
		WHERE projects_fts MATCH ?`
	query, args := applyProjectFilters(query, []any{ftsQuery(text)}, opts)
	query += " ORDER BY bm25(projects_fts), p.id"
	query, args = applyPaging(query, args, opts.Limit, opts.Offset)
	return r.query(ctx, query, args...)
}

// Update replaces the stored project if it still has expectedState and
// expectedRevision. Axes are rewritten in the same transaction.
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project, expectedState project.State, expectedRevision int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, duration = ?, cadence = ?, organization_id = ?,
			state = ?, revision = ?, modified_at = ?, approved_at = ?, paid_at = ?
		WHERE id = ? AND state = ? AND revision = ?
	`,
		proj.Name,
		proj.Description,
		proj.Duration,
		proj.Cadence,
		proj.OrganizationID,
		proj.State,
		proj.Revision,
		proj.ModifiedAt,
		nullTime(proj.ApprovedAt),
		nullTime(proj.PaidAt),
		proj.ID,
		expectedState,
		expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, proj.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		if exists == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_axes WHERE project_id = ?`, proj.ID); err != nil {
		return fmt.Errorf("failed to clear axes: %w", err)
	}
	if err := insertAxes(ctx, tx, proj.ID, proj.Axes); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a project. Reports keep a non-cascading reference, so a
// project with reports fails with repository.ErrForeignKeyViolation.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecordPaymentAttempt appends an attempt to the payment audit trail.
func (r *ProjectRepository) RecordPaymentAttempt(ctx context.Context, attempt *project.PaymentAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_attempts (
			id, project_id, success, transaction_id, reason,
			amount, currency, state_at_call, actor, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		attempt.ID,
		attempt.ProjectID,
		boolToInt(attempt.Success),
		attempt.TransactionID,
		attempt.Reason,
		attempt.Amount,
		attempt.Currency,
		attempt.StateAtCall,
		attempt.Actor,
		attempt.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to record payment attempt: %w", err)
	}
	return nil
}

// ListPaymentAttempts returns the attempts of a project, oldest first.
func (r *ProjectRepository) ListPaymentAttempts(ctx context.Context, projectID string) ([]project.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, success, transaction_id, reason,
			amount, currency, state_at_call, actor, created_at
		FROM payment_attempts
		WHERE project_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []project.PaymentAttempt
	for rows.Next() {
		var a project.PaymentAttempt
		var success int
		if err := rows.Scan(
			&a.ID,
			&a.ProjectID,
			&success,
			&a.TransactionID,
			&a.Reason,
			&a.Amount,
			&a.Currency,
			&a.StateAtCall,
			&a.Actor,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		a.Success = success == 1
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment attempt rows: %w", err)
	}
	return attempts, nil
}

func (r *ProjectRepository) query(ctx context.Context, query string, args ...any) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []project.Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	rows.Close()

	// Axes are loaded after the cursor is closed; the pool has one connection.
	for i := range projects {
		if projects[i].Axes, err = loadAxes(ctx, r.db, projects[i].ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var proj project.Project
	var approvedAt, paidAt sql.NullTime
	err := row.Scan(
		&proj.ID,
		&proj.Name,
		&proj.Description,
		&proj.Duration,
		&proj.Cadence,
		&proj.OrganizationID,
		&proj.State,
		&proj.Revision,
		&proj.CreatedAt,
		&proj.ModifiedAt,
		&approvedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		proj.ApprovedAt = &approvedAt.Time
	}
	if paidAt.Valid {
		proj.PaidAt = &paidAt.Time
	}
	return &proj, nil
}

func insertAxes(ctx context.Context, q queryer, projectID string, axes []project.Axis) error {
	for i, axis := range axes {
		_, err := q.ExecContext(ctx,
			`INSERT INTO project_axes (project_id, position, name) VALUES (?, ?, ?)`,
			projectID, i, axis.Name)
		if err != nil {
			return fmt.Errorf("failed to insert axis %q: %w", axis.Name, err)
		}
		for j, ind := range axis.Indicators {
			_, err := q.ExecContext(ctx, `
				INSERT INTO axis_indicators (project_id, axis_name, position, name, data_type, custom)
				VALUES (?, ?, ?, ?, ?, ?)
			`, projectID, axis.Name, j, ind.Name, ind.Type, boolToInt(ind.Custom))
			if err != nil {
				return fmt.Errorf("failed to insert indicator %q: %w", ind.Name, err)
			}
		}
	}
	return nil
}

func loadAxes(ctx context.Context, q queryer, projectID string) ([]project.Axis, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.name, i.name, i.data_type, i.custom
		FROM project_axes a
		LEFT JOIN axis_indicators i ON i.project_id = a.project_id AND i.axis_name = a.name
		WHERE a.project_id = ?
		ORDER BY a.position, i.position
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load axes: %w", err)
	}
	defer rows.Close()

	var axes []project.Axis
	for rows.Next() {
		var axisName string
		var name, dataType sql.NullString
		var custom sql.NullInt64
		if err := rows.Scan(&axisName, &name, &dataType, &custom); err != nil {
			return nil, fmt.Errorf("failed to scan axis: %w", err)
		}
		if len(axes) == 0 || axes[len(axes)-1].Name != axisName {
			axes = append(axes, project.Axis{Name: axisName, Indicators: []indicator.Indicator{}})
		}
		if name.Valid {
			last := &axes[len(axes)-1]
			last.Indicators = append(last.Indicators, indicator.Indicator{
				Name:   name.String,
				Type:   indicator.DataType(dataType.String),
				Custom: custom.Int64 == 1,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating axis rows: %w", err)
	}
	return axes, nil
}

func applyProjectFilters(query string, args []any, opts project.ListOptions) (string, []any) {
	if len(opts.States) > 0 {
		placeholders := make([]string, len(opts.States))
		for i, state := range opts.States {
			placeholders[i] = "?"
			args = append(args, state)
		}
		query += fmt.Sprintf(" AND p.state IN (%s)", strings.Join(placeholders, ","))
	}
	if opts.OrganizationID != "" {
		query += " AND p.organization_id = ?"
		args = append(args, opts.OrganizationID)
	}
	return query, args
}

func applyPaging(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	} else if offset > 0 {
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

// ftsQuery quotes each term so user input is never parsed as FTS5 syntax.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
