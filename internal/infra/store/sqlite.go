// Package store provides the SQLite-backed persistent queue store.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// SQLiteStore persists the play-next and user-queue segments.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
// If path is empty, the default location is used.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve queue db path")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create state dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open queue db")
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DefaultPath returns <user config dir>/playqueue/state/queue.db.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "playqueue", "state", "queue.db"), nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS play_next (
			position INTEGER PRIMARY KEY,
			track_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_queue (
			position INTEGER PRIMARY KEY,
			track_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_main_index INTEGER NOT NULL DEFAULT 0,
			play_next_counter INTEGER NOT NULL DEFAULT 0,
			saved_at INTEGER NOT NULL DEFAULT 0
		);`,
		`INSERT OR IGNORE INTO queue_state (id, current_main_index, play_next_counter, saved_at)
		 VALUES (1, 0, 0, 0);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate queue schema")
		}
	}
	return nil
}

// Save replaces the stored snapshot.
func (s *SQLiteStore) Save(ctx context.Context, snap queue.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := replaceIDs(ctx, tx, "play_next", snap.PlayNextIDs); err != nil {
		return err
	}
	if err := replaceIDs(ctx, tx, "user_queue", snap.UserQueueIDs); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE queue_state SET current_main_index = ?, play_next_counter = ?, saved_at = ? WHERE id = 1`,
		snap.CurrentMainIndex, snap.PlayNextCounter, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "failed to update queue state")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit queue snapshot")
	}
	return nil
}

// replaceIDs rewrites one of the id tables. table is never user input.
func replaceIDs(ctx context.Context, tx *sql.Tx, table string, ids []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return errors.Wrapf(err, "failed to clear %s", table)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (position, track_id) VALUES (?, ?)`)
	if err != nil {
		return errors.Wrapf(err, "failed to prepare %s insert", table)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return errors.Wrapf(err, "failed to insert %s into %s", id, table)
		}
	}
	return nil
}

// Load returns the stored snapshot, or nil if nothing was saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (*queue.Snapshot, error) {
	var (
		snap    queue.Snapshot
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_main_index, play_next_counter, saved_at FROM queue_state WHERE id = 1`).
		Scan(&snap.CurrentMainIndex, &snap.PlayNextCounter, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load queue state")
	}
	if savedAt == 0 {
		return nil, nil
	}

	if snap.PlayNextIDs, err = s.loadIDs(ctx, "play_next"); err != nil {
		return nil, err
	}
	if snap.UserQueueIDs, err = s.loadIDs(ctx, "user_queue"); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) loadIDs(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT track_id FROM `+table+` ORDER BY position ASC`)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", table)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", table)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate %s", table)
	}
	return ids, nil
}

// Clear removes all persisted queue data.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM play_next`,
		`DELETE FROM user_queue`,
		`UPDATE queue_state SET current_main_index = 0, play_next_counter = 0, saved_at = 0 WHERE id = 1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to clear queue store")
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
