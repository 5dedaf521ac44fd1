// Package cache persists per-test durations between runs.
//
// Durations are stored in a SQLite database under the cache directory,
// keyed by test identity and overwritten each run. A missing database
// is not an error: the planner simply gets no history.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "durations.db"

const schema = `
CREATE TABLE IF NOT EXISTS durations (
	test_id     TEXT PRIMARY KEY,
	duration_ns INTEGER NOT NULL,
	run_id      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Cache is a duration store for one run. Every write in a run carries
// the same run identifier so stale entries can be traced to the run
// that produced them.
type Cache struct {
	db    *sql.DB
	runID string
}

// Open creates the cache directory if needed and opens the duration
// database inside it.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("opening duration cache: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to duration cache: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing duration cache: %w", err)
	}

	return &Cache{db: db, runID: uuid.NewString()}, nil
}

// RunID returns this run's identifier.
func (c *Cache) RunID() string { return c.runID }

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Load reads every stored duration. Called once at planning time,
// before workers start.
func (c *Cache) Load(ctx context.Context) (map[string]time.Duration, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT test_id, duration_ns FROM durations`)
	if err != nil {
		return nil, fmt.Errorf("loading durations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Duration)
	for rows.Next() {
		var id string
		var ns int64
		if err := rows.Scan(&id, &ns); err != nil {
			return nil, fmt.Errorf("scanning duration row: %w", err)
		}
		out[id] = time.Duration(ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duration rows: %w", err)
	}
	return out, nil
}

// Save upserts the observed durations. Called once at run end by the
// coordinator after all results are collected, so there is never a
// concurrent writer.
func (c *Cache) Save(ctx context.Context, durations map[string]time.Duration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting cache transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO durations (test_id, duration_ns, run_id, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(test_id) DO UPDATE SET
			duration_ns = excluded.duration_ns,
			run_id      = excluded.run_id,
			updated_at  = excluded.updated_at`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing cache upsert: %w", err)
	}
	defer stmt.Close()

	for id, d := range durations {
		if _, err := stmt.ExecContext(ctx, id, int64(d), c.runID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("saving duration for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing duration cache: %w", err)
	}
	return nil
}
