package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/repository"
	"github.com/shopspring/decimal"
)

// ReportRepository implements report.Repository for SQLite. Reports are
// insert-only; triggers reject any UPDATE of a stored report.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, project_id, axis, period_index, year, submitted_at, submitted_by, locked`

// Create stores a report with its values and derived fields. A second report
// for the same (project, axis, period) fails with repository.ErrDuplicate.
func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, v := range rep.Values {
		var number decimal.NullDecimal
		if v.Type.Numeric() {
			number = decimal.NewNullDecimal(v.Number)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO report_values (report_id, position, name, data_type, custom, number, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rep.ID, i, v.Name, v.Type, boolToInt(v.Custom), number, v.Text)
		if err != nil {
			return fmt.Errorf("failed to insert value %q: %w", v.Name, err)
		}
	}

	for _, d := range rep.Derived {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO report_derived (report_id, name, value) VALUES (?, ?, ?)`,
			rep.ID, d.Name, d.Value.StringFixed(2))
		if err != nil {
			return fmt.Errorf("failed to insert derived field %q: %w", d.Name, err)
		}
	}

	// The report row goes last: the schema refuses contents for a report that
	// already exists.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, project_id, axis, period_index, year, submitted_at, submitted_by, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`,
		rep.ID,
		rep.ProjectID,
		rep.Axis,
		rep.Period.Index,
		rep.Period.Year,
		rep.SubmittedAt,
		rep.SubmittedBy,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return repository.ErrDuplicate
		case isForeignKeyViolation(err):
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	rep.Locked = true
	return nil
}

// Get retrieves the report of a project axis and period
func (r *ReportRepository) Get(ctx context.Context, projectID, axis string, period report.Period) (*report.Report, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE project_id = ? AND axis = ? AND period_index = ? AND year = ?
	`, projectID, axis, period.Index, period.Year)
	return r.getOne(ctx, row)
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*report.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	return r.getOne(ctx, row)
}

// List returns the reports of a project ordered by axis and period.
func (r *ReportRepository) List(ctx context.Context, projectID string, opts report.ListOptions) ([]report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE project_id = ?`
	args := []any{projectID}
	if opts.Axis != "" {
		query += " AND axis = ?"
		args = append(args, opts.Axis)
	}
	if opts.Year > 0 {
		query += " AND year = ?"
		args = append(args, opts.Year)
	}
	query += " ORDER BY axis, year, period_index"
	query, args = applyPaging(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var reports []report.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	rows.Close()

	for i := range reports {
		if err := r.loadContents(ctx, &reports[i]); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// ListPeriods returns every reported (axis, period) of a project.
func (r *ReportRepository) ListPeriods(ctx context.Context, projectID string) ([]report.PeriodKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT axis, period_index, year
		FROM reports
		WHERE project_id = ?
		ORDER BY axis, year, period_index
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reported periods: %w", err)
	}
	defer rows.Close()

	keys := []report.PeriodKey{}
	for rows.Next() {
		var key report.PeriodKey
		if err := rows.Scan(&key.Axis, &key.Period.Index, &key.Period.Year); err != nil {
			return nil, fmt.Errorf("failed to scan reported period: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reported periods: %w", err)
	}
	return keys, nil
}

// CountByProject returns the number of reports filed against a project.
func (r *ReportRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func (r *ReportRepository) getOne(ctx context.Context, row *sql.Row) (*report.Report, error) {
	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if err := r.loadContents(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func scanReport(row rowScanner) (*report.Report, error) {
	var rep report.Report
	var locked int
	if err := row.Scan(
		&rep.ID,
		&rep.ProjectID,
		&rep.Axis,
		&rep.Period.Index,
		&rep.Period.Year,
		&rep.SubmittedAt,
		&rep.SubmittedBy,
		&locked,
	); err != nil {
		return nil, err
	}
	rep.Locked = locked == 1
	return &rep, nil
}

func (r *ReportRepository) loadContents(ctx context.Context, rep *report.Report) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, data_type, custom, number, text
		FROM report_values
		WHERE report_id = ?
		ORDER BY position
	`, rep.ID)
	if err != nil {
		return fmt.Errorf("failed to load report values: %w", err)
	}
	for rows.Next() {
		var v indicator.Value
		var custom int
		var number decimal.NullDecimal
		if err := rows.Scan(&v.Name, &v.Type, &custom, &number, &v.Text); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan report value: %w", err)
		}
		v.Custom = custom == 1
		if number.Valid {
			v.Number = number.Decimal
		}
		rep.Values = append(rep.Values, v)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("error iterating report values: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT name, value FROM report_derived WHERE report_id = ? ORDER BY name
	`, rep.ID)
	if err != nil {
		return fmt.Errorf("failed to load derived fields: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d report.DerivedField
		if err := rows.Scan(&d.Name, &d.Value); err != nil {
			return fmt.Errorf("failed to scan derived field: %w", err)
		}
		rep.Derived = append(rep.Derived, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating derived fields: %w", err)
	}
	return nil
}
