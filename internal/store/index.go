package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Index is a SQLite table of every stored screenshot.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (or creates) the index database at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS shots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts_ms INTEGER NOT NULL,
			sent_ms INTEGER NOT NULL,
			path TEXT NOT NULL,
			hash TEXT NOT NULL,
			event TEXT NOT NULL,
			frame_id TEXT NOT NULL,
			bytes INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS shots_run_ts ON shots(run_id, ts_ms);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init screenshot index: %w", err)
		}
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error { return x.db.Close() }

// Record inserts one shot.
func (x *Index) Record(ctx context.Context, ev Event) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO shots (run_id, ts_ms, sent_ms, path, hash, event, frame_id, bytes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.TsMs, ev.SentMs, ev.Path, ev.Hash, ev.VMEvent, ev.FrameID, ev.Bytes,
	)
	if err != nil {
		return fmt.Errorf("index shot %s: %w", ev.FrameID, err)
	}
	return nil
}

// Recent returns up to limit shots of runID, newest first.
func (x *Index) Recent(ctx context.Context, runID string, limit int) ([]Event, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT run_id, ts_ms, sent_ms, path, hash, event, frame_id, bytes FROM shots WHERE run_id = ? ORDER BY ts_ms DESC LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.RunID, &ev.TsMs, &ev.SentMs, &ev.Path, &ev.Hash, &ev.VMEvent, &ev.FrameID, &ev.Bytes); err != nil {
			return nil, fmt.Errorf("scan shot row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Count returns how many shots of runID carry the given vm event; an empty
// event counts all of them.
func (x *Index) Count(ctx context.Context, runID, event string) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shots WHERE run_id = ? AND (? = '' OR event = ?)`,
		runID, event, event,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count shots: %w", err)
	}
	return n, nil
}
