// Package store provides the local SQLite task store.
//
// The store is the canonical side of the system: every mutation lands here
// first and is mirrored to the remote service by the sync engine. Rows carry
// sync bookkeeping (remote ID mapping, modification clock, sync status,
// tombstone flag) alongside the task fields themselves.
//
// The database runs in WAL mode with a busy timeout, the same embedded
// configuration used for other single-writer tools; writes are atomic per
// task (single statement or transaction).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Status is a task's sync state.
type Status string

const (
	// StatusSynced means the row matches the remote copy as of the last
	// successful sync.
	StatusSynced Status = "synced"

	// StatusDirty means the row has local edits not yet pushed.
	StatusDirty Status = "dirty"

	// StatusPendingDelete marks a tombstone awaiting remote deletion.
	StatusPendingDelete Status = "pending_delete"

	// StatusConflict marks a row whose last push was rejected by the
	// remote; it stays eligible for the next run.
	StatusConflict Status = "conflict"
)

// Task is a row of the tasks table.
type Task struct {
	ID       int64
	RemoteID string // empty until pushed at least once

	Title     string
	Notes     string
	Due       time.Time // zero = no due date, day granularity
	Completed bool

	// Pos is the local ordering index. It is never synchronized.
	Pos int64

	// UpdatedAt is the local modification timestamp, strictly increasing
	// per process.
	UpdatedAt time.Time

	// RemoteUpdated is the remote modification timestamp last seen for
	// this row; zero if the row has never been synced.
	RemoteUpdated time.Time

	Status  Status
	Deleted bool
}

// Store wraps the task database.
type Store struct {
	db *sql.DB

	clockMu sync.Mutex
	lastTS  int64 // unix nanos handed out by the monotonic clock
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id      TEXT UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	due            TEXT,
	completed      INTEGER NOT NULL DEFAULT 0,
	pos            INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	remote_updated INTEGER NOT NULL DEFAULT 0,
	sync_status    TEXT NOT NULL DEFAULT 'dirty',
	deleted        INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tasks_remote_id ON tasks(remote_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(sync_status);

CREATE TABLE IF NOT EXISTS sync_state (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	last_synced_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER NOT NULL,
	pushed_created INTEGER NOT NULL DEFAULT 0,
	pushed_updated INTEGER NOT NULL DEFAULT 0,
	pushed_deleted INTEGER NOT NULL DEFAULT 0,
	pulled_created INTEGER NOT NULL DEFAULT 0,
	pulled_updated INTEGER NOT NULL DEFAULT 0,
	pulled_deleted INTEGER NOT NULL DEFAULT 0,
	conflicts      INTEGER NOT NULL DEFAULT 0,
	outcome        TEXT NOT NULL
);
`

// Open opens (creating if necessary) the task database at path.
// The caller must Close the store when done.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Single writer; keep the pool small.
	db.SetMaxOpenConns(4)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// now returns the next modification timestamp. Wall clock, bumped by one
// nanosecond whenever the wall clock has not advanced, so updated_at is
// strictly increasing within the process.
func (s *Store) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	ts := time.Now().UnixNano()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return time.Unix(0, ts)
}

// Add inserts a new local-only task at the end of the list.
func (s *Store) Add(ctx context.Context, title, notes string, due time.Time) (*Task, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, notes, due, pos, updated_at, sync_status)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(pos), -1) + 1 FROM tasks), ?, ?)`,
		title, notes, dueArg(due), now.UnixNano(), StatusDirty)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns the task with the given local ID.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	return scanTask(row)
}

// ByRemoteID returns the task mapped to the given remote ID, or nil if no
// such mapping exists.
func (s *Store) ByRemoteID(ctx context.Context, remoteID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE remote_id = ?`, remoteID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Order selects a listing order.
type Order string

const (
	// ByPos orders by the local position index.
	ByPos Order = "pos"
	// ByDue orders by due date, undated tasks last.
	ByDue Order = "due"
)

// List returns live (non-tombstoned) tasks. Completed tasks are included
// only when includeCompleted is set.
func (s *Store) List(ctx context.Context, order Order, includeCompleted bool) ([]*Task, error) {
	q := selectCols + ` WHERE deleted = 0`
	if !includeCompleted {
		q += ` AND completed = 0`
	}
	switch order {
	case ByDue:
		q += ` ORDER BY due IS NULL, due, pos`
	default:
		q += ` ORDER BY pos`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// UpdateFields overwrites the editable fields and marks the task dirty.
func (s *Store) UpdateFields(ctx context.Context, id int64, title, notes string, due time.Time) error {
	now := s.now()
	return s.mutate(ctx, id, `
		UPDATE tasks SET title = ?, notes = ?, due = ?, updated_at = ?, sync_status = ?
		WHERE id = ? AND deleted = 0`,
		title, notes, dueArg(due), now.UnixNano(), StatusDirty, id)
}

// ToggleCompleted flips the completion flag. Completion is a field update
// like any other as far as sync is concerned.
func (s *Store) ToggleCompleted(ctx context.Context, id int64) error {
	now := s.now()
	return s.mutate(ctx, id, `
		UPDATE tasks SET completed = 1 - completed, updated_at = ?, sync_status = ?
		WHERE id = ? AND deleted = 0`,
		now.UnixNano(), StatusDirty, id)
}

// Delete removes a task. A task that never reached the remote is purged
// immediately; one with a remote mapping becomes a tombstone retained
// until the remote deletion is confirmed.
func (s *Store) Delete(ctx context.Context, id int64) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.RemoteID == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return err
	}
	now := s.now()
	return s.mutate(ctx, id, `
		UPDATE tasks SET deleted = 1, updated_at = ?, sync_status = ?
		WHERE id = ?`,
		now.UnixNano(), StatusPendingDelete, id)
}

// Reorder rewrites the position index to match the given ID order.
// Position is local-only state, so reordering does not dirty the rows.
func (s *Store) Reorder(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET pos = ? WHERE id = ?`, pos, id); err != nil {
			return fmt.Errorf("reorder task %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) mutate(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const selectCols = `
	SELECT id, COALESCE(remote_id, ''), title, notes, COALESCE(due, ''),
	       completed, pos, updated_at, remote_updated, sync_status, deleted
	FROM tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var due string
	var updatedAt, remoteUpdated int64
	var completed, deleted int
	err := row.Scan(&t.ID, &t.RemoteID, &t.Title, &t.Notes, &due,
		&completed, &t.Pos, &updatedAt, &remoteUpdated, &t.Status, &deleted)
	if err != nil {
		return nil, err
	}
	t.Completed = completed != 0
	t.Deleted = deleted != 0
	t.UpdatedAt = time.Unix(0, updatedAt)
	if remoteUpdated != 0 {
		t.RemoteUpdated = time.Unix(0, remoteUpdated)
	}
	if due != "" {
		if d, err := time.ParseInLocation(dueLayout, due, time.UTC); err == nil {
			t.Due = d
		}
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// dueLayout is the stored due date format, day granularity.
const dueLayout = "2006-01-02"

func dueArg(due time.Time) any {
	if due.IsZero() {
		return nil
	}
	return due.Format(dueLayout)
}
