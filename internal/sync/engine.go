package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"ltask/internal/service"
	"ltask/internal/store"
)

// ErrInFlight is returned when a run is requested while another one holds
// the engine. Runs are exclusive, never queued.
var ErrInFlight = errors.New("sync already in progress")

// Outcomes recorded in the sync log.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeAborted = "aborted"
)

// Engine drives the sync protocol: pull, detect, resolve, push, commit.
// It owns the checkpoint and is the only component ordering side effects.
type Engine struct {
	st     *store.Store
	remote service.Remote
	policy Policy
	logger *log.Logger

	inFlight atomic.Bool
}

// New creates an engine. A nil logger discards diagnostics.
func New(st *store.Store, remote service.Remote, policy Policy, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{st: st, remote: remote, policy: policy, logger: logger}
}

// Run executes one full sync run and returns its log entry.
//
// A run either commits (outcome ok or partial, checkpoint advanced) or
// aborts with the checkpoint untouched, in which case the next run retries
// the same delta. Per-task remote rejections do not abort the batch; the
// rejected rows stay dirty. Runs are idempotent: with no intervening
// changes a second run performs no writes.
func (e *Engine) Run(ctx context.Context) (store.RunLog, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return store.RunLog{}, ErrInFlight
	}
	defer e.inFlight.Store(false)

	run := store.RunLog{StartedAt: time.Now()}

	checkpoint, err := e.st.Checkpoint(ctx)
	if err != nil {
		return e.abort(ctx, run, err)
	}
	e.logger.Printf("run start, checkpoint %s", fmtCheckpoint(checkpoint))

	// Pulling: drain the remote delta fully before touching anything.
	changes, err := detectChanges(ctx, e.st, e.remote, checkpoint)
	if err != nil {
		return e.abort(ctx, run, err)
	}
	e.logger.Printf("delta joined: %d entries", len(changes))

	// Resolving: pure decisions, grouped so remote creates run before
	// updates before deletes.
	type action struct {
		c Change
		d Decision
	}
	var creates, updates, deletes, local []action
	for _, c := range changes {
		d := Resolve(c, e.policy)
		a := action{c, d}
		switch d.Op {
		case OpCreateRemote:
			creates = append(creates, a)
		case OpPushUpdate:
			updates = append(updates, a)
		case OpDeleteRemote:
			deletes = append(deletes, a)
		case OpCreateLocal, OpPullUpdate, OpDeleteLocal, OpPurgeLocal:
			local = append(local, a)
		}
	}

	// Pushing: remote writes first.
	var rejected int
	var purge []int64

	for _, a := range creates {
		t := a.c.Local
		if t.RemoteID != "" {
			// The remote copy vanished underneath a local edit;
			// drop the stale mapping and push as a new task.
			if err := e.st.ClearRemoteID(ctx, t.ID); err != nil {
				return e.abort(ctx, run, err)
			}
		}
		created, err := e.remote.Create(ctx, toRemote(t))
		if err != nil {
			if !service.IsFatalRequest(err) {
				return e.abort(ctx, run, err)
			}
			e.logger.Printf("create rejected for task %d: %v", t.ID, err)
			if err := e.st.MarkRejected(ctx, t.ID); err != nil {
				return e.abort(ctx, run, err)
			}
			rejected++
			continue
		}
		if err := e.st.MarkSynced(ctx, t.ID, created.ID, created.Updated); err != nil {
			return e.abort(ctx, run, err)
		}
		run.PushedCreated++
	}

	for _, a := range updates {
		t := a.c.Local
		updated, err := e.remote.Update(ctx, t.RemoteID, toRemote(t))
		if err != nil {
			if !service.IsFatalRequest(err) {
				return e.abort(ctx, run, err)
			}
			e.logger.Printf("update rejected for task %d: %v", t.ID, err)
			if err := e.st.MarkRejected(ctx, t.ID); err != nil {
				return e.abort(ctx, run, err)
			}
			rejected++
			continue
		}
		if err := e.st.MarkSynced(ctx, t.ID, t.RemoteID, updated.Updated); err != nil {
			return e.abort(ctx, run, err)
		}
		run.PushedUpdated++
		if a.d.Conflict {
			run.Conflicts++
		}
	}

	for _, a := range deletes {
		t := a.c.Local
		if err := e.remote.Delete(ctx, t.RemoteID); err != nil {
			if !service.IsFatalRequest(err) {
				return e.abort(ctx, run, err)
			}
			// Tombstone stays pending for the next run.
			e.logger.Printf("delete rejected for task %d: %v", t.ID, err)
			rejected++
			continue
		}
		run.PushedDeleted++
		if a.d.Conflict {
			run.Conflicts++
		}
		purge = append(purge, t.ID)
	}

	// Local writes: pulls, remote-confirmed deletions, tombstone purges.
	for _, a := range local {
		switch a.d.Op {
		case OpCreateLocal:
			if _, err := e.st.ApplyRemoteUpsert(ctx, *a.c.Remote); err != nil {
				return e.abort(ctx, run, err)
			}
			run.PulledCreated++
		case OpPullUpdate:
			if _, err := e.st.ApplyRemoteUpsert(ctx, *a.c.Remote); err != nil {
				return e.abort(ctx, run, err)
			}
			run.PulledUpdated++
			if a.d.Conflict {
				run.Conflicts++
			}
		case OpDeleteLocal:
			if err := e.st.DeleteLocal(ctx, a.c.Local.ID); err != nil {
				return e.abort(ctx, run, err)
			}
			run.PulledDeleted++
		case OpPurgeLocal:
			purge = append(purge, a.c.Local.ID)
		}
	}

	if err := e.st.PurgeConfirmedDeletes(ctx, purge); err != nil {
		return e.abort(ctx, run, err)
	}

	// Committing: the batch completed, so the checkpoint advances to the
	// run's start even when individual tasks were rejected; those rows
	// keep their status and stay in the next delta.
	if err := e.st.CommitCheckpoint(ctx, run.StartedAt); err != nil {
		return e.abort(ctx, run, err)
	}

	run.FinishedAt = time.Now()
	run.Outcome = OutcomeOK
	if rejected > 0 {
		run.Outcome = OutcomePartial
	}
	if err := e.st.AppendRunLog(ctx, run); err != nil {
		return run, err
	}
	e.logger.Printf("run %s: pushed %d/%d/%d pulled %d/%d/%d conflicts %d",
		run.Outcome,
		run.PushedCreated, run.PushedUpdated, run.PushedDeleted,
		run.PulledCreated, run.PulledUpdated, run.PulledDeleted,
		run.Conflicts)
	return run, nil
}

// abort finishes a failed run: no checkpoint movement, best-effort log
// entry, error surfaced to the caller.
func (e *Engine) abort(ctx context.Context, run store.RunLog, err error) (store.RunLog, error) {
	run.FinishedAt = time.Now()
	run.Outcome = OutcomeAborted
	if logErr := e.st.AppendRunLog(ctx, run); logErr != nil {
		e.logger.Printf("could not record aborted run: %v", logErr)
	}
	e.logger.Printf("run aborted: %v", err)
	return run, fmt.Errorf("sync aborted: %w", err)
}

func toRemote(t *store.Task) service.RemoteTask {
	return service.RemoteTask{
		Title:     t.Title,
		Notes:     t.Notes,
		Due:       t.Due,
		Completed: t.Completed,
	}
}

func fmtCheckpoint(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339)
}
