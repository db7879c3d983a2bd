package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// insertProject stores a monthly project with a four-indicator Nutrition axis.
func insertProject(t *testing.T, db *DB, id string) *project.Project {
	t.Helper()

	now := time.Now()
	proj := &project.Project{
		ID:             id,
		Name:           "Project " + id,
		Description:    "School feeding in the northern district",
		Duration:       12,
		Cadence:        project.CadenceMonthly,
		OrganizationID: "org1",
		State:          project.StatePendingApproval,
		Revision:       1,
		CreatedAt:      now,
		ModifiedAt:     now,
		Axes: []project.Axis{
			{
				Name: "Nutrition",
				Indicators: []indicator.Indicator{
					{Name: "A", Type: indicator.TypeCount},
					{Name: "B", Type: indicator.TypeCount},
					{Name: "C", Type: indicator.TypeCount},
					{Name: "D", Type: indicator.TypeCount},
				},
			},
			{Name: "Water", Indicators: []indicator.Indicator{}},
		},
	}
	require.NoError(t, NewProjectRepository(db).Create(context.Background(), proj))
	return proj
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"projects",
		"project_axes",
		"axis_indicators",
		"reports",
		"report_values",
		"report_derived",
		"payment_attempts",
		"activity_log",
		"projects_fts",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Idempotent
	require.NoError(t, db.RunMigrations())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

func TestProjectsTable_Constraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := db.ExecContext(ctx,
		`INSERT INTO projects (id, name, duration, cadence, organization_id, state, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"p1", "Test", 12, "monthly", "org1", "DRAFT", now, now)
	require.Error(t, err, "should fail with invalid state")

	_, err = db.ExecContext(ctx,
		`INSERT INTO projects (id, name, duration, cadence, organization_id, state, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"p1", "Test", 12, "weekly", "org1", "PENDING_APPROVAL", now, now)
	require.Error(t, err, "should fail with invalid cadence")
}

func TestReportsTable_Locked(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertProject(t, db, "p1")

	_, err := db.ExecContext(ctx,
		`INSERT INTO reports (id, project_id, axis, period_index, year, submitted_at, submitted_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"r1", "p1", "Nutrition", 1, 2024, time.Now(), "org1")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE reports SET submitted_by = ? WHERE id = ?`, "someone", "r1")
	require.ErrorContains(t, err, "report is locked")

	_, err = db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, "r1")
	require.ErrorContains(t, err, "report is locked")

	_, err = db.ExecContext(ctx,
		`INSERT INTO reports (id, project_id, axis, period_index, year, submitted_at, submitted_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"r2", "p1", "Nutrition", 1, 2024, time.Now(), "org1")
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	_, err = db.ExecContext(ctx,
		`INSERT INTO reports (id, project_id, axis, period_index, year, submitted_at, submitted_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"r3", "missing", "Nutrition", 1, 2024, time.Now(), "org1")
	require.Error(t, err)
	require.True(t, isForeignKeyViolation(err))
}

// TestFTSIndex verifies the full-text search index is synchronized
func TestFTSIndex(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertProject(t, db, "p1")

	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects_fts WHERE projects_fts MATCH ?`, "northern").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = db.ExecContext(ctx, `UPDATE projects SET description = ? WHERE id = ?`, "Wells in the south", "p1")
	require.NoError(t, err)

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects_fts WHERE projects_fts MATCH ?`, "northern").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects_fts WHERE projects_fts MATCH ?`, "wells").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
