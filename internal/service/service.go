package service

import (
	"context"
	"time"
)

// Remote defines the interface to the remote task service. The sync engine
// never imports the Google SDK directly; it talks to this contract.
type Remote interface {
	// ListChangedSince returns a lazy sequence of tasks modified after
	// since, including completed, hidden and deleted ones. Pagination is
	// hidden behind the sequence; callers drain it before acting on it.
	ListChangedSince(ctx context.Context, since time.Time) TaskSeq

	// Create pushes a new task and returns it as the server stored it,
	// including the assigned remote ID and updated timestamp.
	Create(ctx context.Context, t RemoteTask) (RemoteTask, error)

	// Update overwrites the remote task's fields and returns the task
	// as the server stored it.
	Update(ctx context.Context, id string, t RemoteTask) (RemoteTask, error)

	// Delete removes the remote task. Deleting a task that is already
	// gone is not an error.
	Delete(ctx context.Context, id string) error
}

// TaskSeq iterates a paginated remote listing, bufio.Scanner style:
//
//	seq := remote.ListChangedSince(ctx, since)
//	for seq.Next() {
//	    t := seq.Task()
//	    ...
//	}
//	if err := seq.Err(); err != nil { ... }
//
// Once Err returns non-nil the sequence is exhausted; a fresh call to
// ListChangedSince starts over from the first page.
type TaskSeq interface {
	Next() bool
	Task() RemoteTask
	Err() error
}
