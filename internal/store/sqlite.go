package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"posync/internal/state"
	"posync/internal/util"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SnapshotStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at INTEGER NOT NULL,
	body     TEXT    NOT NULL
)`

// Write retry policy for transient SQLITE_BUSY errors.
const (
	writeAttempts = 3
	writeBackoff  = 50 * time.Millisecond
)

// SQLiteStore implements SnapshotStore backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	keep int
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore. Only the newest keep snapshots are retained;
// keep <= 0 retains 10.
func NewSQLiteStore(dbPath string, keep int) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}
	if keep <= 0 {
		keep = 10
	}
	return &SQLiteStore{db: db, keep: keep}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts snap and prunes snapshots beyond the retention count.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap state.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	takenAt := snap.UpdatedAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	return util.Retry(ctx, writeAttempts, writeBackoff, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (taken_at, body) VALUES (?, ?)`,
			takenAt.UnixMilli(), string(body)); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
			s.keep); err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		return tx.Commit()
	})
}

// LoadSnapshot returns the newest snapshot, or ErrNoSnapshot.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (state.Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return state.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Count returns the number of retained snapshots.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return n, nil
}
