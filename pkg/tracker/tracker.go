// Package tracker keeps a local history of dispatched requests in SQLite.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eva-app/evaclient/pkg/models"
)

// Tracker records and queries dispatched requests.
type Tracker interface {
	// Record stores a dispatch record.
	Record(ctx context.Context, rec models.DispatchRecord) error
	// Recent returns the newest records first, at most limit of them.
	Recent(ctx context.Context, limit int) ([]models.DispatchRecord, error)
	// CountByOutcome returns how many dispatches settled with outcome since a given time.
	CountByOutcome(ctx context.Context, outcome models.Outcome, since time.Time) (int64, error)
	// Summary returns aggregates per method, path and outcome, optionally filtered by path.
	Summary(ctx context.Context, path string) ([]models.DispatchSummary, error)
	// Prune deletes records created before a given time.
	Prune(ctx context.Context, before time.Time) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS dispatch_records (
	id TEXT PRIMARY KEY,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	outcome TEXT NOT NULL,
	code INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dispatch_time ON dispatch_records(created_at);
CREATE INDEX IF NOT EXISTS idx_dispatch_path ON dispatch_records(path, outcome);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	// Concurrent dispatches record through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}
	return &SQLiteTracker{db: db}, nil
}

// Record stores a dispatch record. Records without a CreatedAt are stamped now.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.DispatchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO dispatch_records (id, method, path, outcome, code, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Method, rec.Path, string(rec.Outcome), rec.Code, rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// Recent returns the newest records first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.DispatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, method, path, outcome, code, latency_ms, created_at
		 FROM dispatch_records ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent dispatches: %w", err)
	}
	defer rows.Close()

	var records []models.DispatchRecord
	for rows.Next() {
		var r models.DispatchRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.Method, &r.Path, &outcome, &r.Code, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		r.Outcome = models.Outcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByOutcome returns how many dispatches settled with outcome since a given time.
func (t *SQLiteTracker) CountByOutcome(ctx context.Context, outcome models.Outcome, since time.Time) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dispatch_records WHERE outcome = ? AND created_at >= ?`,
		string(outcome), since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

// Summary returns aggregated dispatches grouped by method, path and outcome.
func (t *SQLiteTracker) Summary(ctx context.Context, path string) ([]models.DispatchSummary, error) {
	query := `SELECT method, path, outcome, COUNT(*), AVG(latency_ms) FROM dispatch_records`
	var args []any
	if path != "" {
		query += ` WHERE path = ?`
		args = append(args, path)
	}
	query += ` GROUP BY method, path, outcome ORDER BY path, method, outcome`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.DispatchSummary
	for rows.Next() {
		var s models.DispatchSummary
		var outcome string
		if err := rows.Scan(&s.Method, &s.Path, &outcome, &s.RequestCount, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Outcome = models.Outcome(outcome)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Prune deletes records created before a given time and returns how many went.
func (t *SQLiteTracker) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM dispatch_records WHERE created_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune dispatches: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
