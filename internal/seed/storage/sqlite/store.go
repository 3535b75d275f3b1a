// Package sqlite stores seed runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paygate/seedforge/internal/platform/storage/sqlitemigrate"
	"github.com/paygate/seedforge/internal/seed/storage"
	"github.com/paygate/seedforge/internal/seed/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the run store at path, creating parent directories, and
// applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun persists one run. Saving the same run id twice fails.
func (s *Store) SaveRun(ctx context.Context, record storage.RunRecord) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.RunID = strings.TrimSpace(record.RunID)
	record.Scenario = strings.TrimSpace(record.Scenario)
	if record.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if record.Scenario == "" {
		return fmt.Errorf("scenario is required")
	}
	if len(record.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO seed_runs (
	run_id,
	scenario,
	started_at,
	finished_at,
	planned_total,
	created_total,
	failed_total,
	payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.RunID,
		record.Scenario,
		record.StartedAt.UTC().UnixMilli(),
		record.FinishedAt.UTC().UnixMilli(),
		record.Planned,
		record.Created,
		record.Failed,
		record.Payload,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", record.RunID, err)
	}
	return nil
}

const selectRuns = `
SELECT
	id,
	run_id,
	scenario,
	started_at,
	finished_at,
	planned_total,
	created_total,
	failed_total,
	payload
FROM seed_runs
`

// LatestRun returns the most recently started run of scenario.
func (s *Store) LatestRun(ctx context.Context, scenario string) (storage.RunRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.RunRecord{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, selectRuns+`
WHERE scenario = ?
ORDER BY started_at DESC, id DESC
LIMIT 1
`, strings.TrimSpace(scenario))
	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RunRecord{}, fmt.Errorf("scenario %s: %w", scenario, storage.ErrNotFound)
	}
	if err != nil {
		return storage.RunRecord{}, fmt.Errorf("latest run: %w", err)
	}
	return record, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectRuns+`
ORDER BY started_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RunRecord, 0, limit)
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (storage.RunRecord, error) {
	var record storage.RunRecord
	var startedAt, finishedAt int64
	if err := row.Scan(
		&record.ID,
		&record.RunID,
		&record.Scenario,
		&startedAt,
		&finishedAt,
		&record.Planned,
		&record.Created,
		&record.Failed,
		&record.Payload,
	); err != nil {
		return storage.RunRecord{}, err
	}
	record.StartedAt = time.UnixMilli(startedAt).UTC()
	record.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return record, nil
}

var _ storage.RunStore = (*Store)(nil)
