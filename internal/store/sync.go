package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ltask/internal/service"
)

// DirtySince returns every task with local changes not yet reflected
// remotely: dirty edits, rejected pushes and tombstones. Tasks whose push
// failed in an earlier run keep their status and so stay in the delta
// regardless of the checkpoint.
func (s *Store) DirtySince(ctx context.Context, checkpoint time.Time) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, selectCols+`
		WHERE sync_status IN (?, ?, ?) OR deleted = 1
		ORDER BY pos`,
		StatusDirty, StatusPendingDelete, StatusConflict)
	if err != nil {
		return nil, fmt.Errorf("dirty since: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ApplyRemoteUpsert inserts or updates a task by remote ID, taking every
// field from the remote copy. Local-only state is preserved on update;
// tasks new to this device are appended at the end of the ordering.
// The row comes out synced.
func (s *Store) ApplyRemoteUpsert(ctx context.Context, rt service.RemoteTask) (*Task, error) {
	now := s.now()
	existing, err := s.ByRemoteID(ctx, rt.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		_, err := s.db.ExecContext(ctx, `
			UPDATE tasks SET title = ?, notes = ?, due = ?, completed = ?,
				updated_at = ?, remote_updated = ?, sync_status = ?, deleted = 0
			WHERE id = ?`,
			rt.Title, rt.Notes, dueArg(rt.Due), boolArg(rt.Completed),
			now.UnixNano(), rt.Updated.UnixNano(), StatusSynced, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("apply remote update: %w", err)
		}
		return s.Get(ctx, existing.ID)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (remote_id, title, notes, due, completed, pos,
			updated_at, remote_updated, sync_status)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(pos), -1) + 1 FROM tasks), ?, ?, ?)`,
		rt.ID, rt.Title, rt.Notes, dueArg(rt.Due), boolArg(rt.Completed),
		now.UnixNano(), rt.Updated.UnixNano(), StatusSynced)
	if err != nil {
		return nil, fmt.Errorf("apply remote insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// MarkSynced records a successful push: the remote ID mapping and the
// remote modification timestamp the server assigned.
func (s *Store) MarkSynced(ctx context.Context, id int64, remoteID string, remoteUpdated time.Time) error {
	return s.mutate(ctx, id, `
		UPDATE tasks SET remote_id = ?, remote_updated = ?, sync_status = ?
		WHERE id = ?`,
		remoteID, remoteUpdated.UnixNano(), StatusSynced, id)
}

// MarkRejected records a per-task push rejection. The row keeps its edits
// and stays in the dirty delta for the next run.
func (s *Store) MarkRejected(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, `
		UPDATE tasks SET sync_status = ? WHERE id = ?`,
		StatusConflict, id)
}

// ClearRemoteID drops the remote mapping, turning the row back into a
// local-only create. Used when the remote copy was deleted underneath a
// local edit.
func (s *Store) ClearRemoteID(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, `
		UPDATE tasks SET remote_id = NULL, remote_updated = 0, sync_status = ?
		WHERE id = ?`,
		StatusDirty, id)
}

// PurgeConfirmedDeletes removes tombstones whose remote deletion has been
// confirmed.
func (s *Store) PurgeConfirmedDeletes(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND deleted = 1`, id); err != nil {
			return fmt.Errorf("purge task %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// DeleteLocal removes a row outright. Used when the remote side deleted a
// task that carries no unsynced local edits.
func (s *Store) DeleteLocal(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// Checkpoint returns the high-water mark of the last successful sync, or
// the zero time if no sync has completed yet.
func (s *Store) Checkpoint(ctx context.Context) (time.Time, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_synced_at FROM sync_state WHERE id = 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read checkpoint: %w", err)
	}
	return time.Unix(0, ts), nil
}

// CommitCheckpoint advances the checkpoint. Called once, at the end of a
// fully committed run; never partially updated.
func (s *Store) CommitCheckpoint(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_synced_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_synced_at = excluded.last_synced_at`,
		t.UnixNano())
	if err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// RunLog is one entry of the append-only sync log.
type RunLog struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time

	PushedCreated, PushedUpdated, PushedDeleted int
	PulledCreated, PulledUpdated, PulledDeleted int
	Conflicts                                   int

	// Outcome is "ok", "partial" or "aborted".
	Outcome string
}

// AppendRunLog records one sync run. Diagnostic only; correctness never
// depends on it.
func (s *Store) AppendRunLog(ctx context.Context, r RunLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (started_at, finished_at,
			pushed_created, pushed_updated, pushed_deleted,
			pulled_created, pulled_updated, pulled_deleted,
			conflicts, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(),
		r.PushedCreated, r.PushedUpdated, r.PushedDeleted,
		r.PulledCreated, r.PulledUpdated, r.PulledDeleted,
		r.Conflicts, r.Outcome)
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent sync log entries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at,
			pushed_created, pushed_updated, pushed_deleted,
			pulled_created, pulled_updated, pulled_deleted,
			conflicts, outcome
		FROM sync_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunLog
	for rows.Next() {
		var r RunLog
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished,
			&r.PushedCreated, &r.PushedUpdated, &r.PushedDeleted,
			&r.PulledCreated, &r.PulledUpdated, &r.PulledDeleted,
			&r.Conflicts, &r.Outcome); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		r.FinishedAt = time.Unix(0, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}
