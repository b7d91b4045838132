// Package sync implements the bidirectional synchronization engine between
// the local task store and the remote task service.
//
// The engine splits into three pieces: the change detector builds a joined
// view of both deltas, the merge resolver is a pure decision function over
// that view, and the orchestrator applies the resulting actions and commits
// the checkpoint. Only the orchestrator has side effects.
package sync

import (
	"ltask/internal/service"
	"ltask/internal/store"
)

// Op is the action the resolver picked for one task pair.
type Op int

const (
	// OpNone means both sides already agree.
	OpNone Op = iota

	// OpCreateLocal copies a new remote task into the store.
	OpCreateLocal

	// OpCreateRemote pushes a local-only task to the remote.
	OpCreateRemote

	// OpPushUpdate overwrites the remote copy with local fields.
	OpPushUpdate

	// OpPullUpdate overwrites local fields with the remote copy.
	OpPullUpdate

	// OpDeleteLocal removes the local row; the remote side deleted it.
	OpDeleteLocal

	// OpDeleteRemote pushes a local tombstone to the remote.
	OpDeleteRemote

	// OpPurgeLocal drops a tombstone whose remote deletion is confirmed.
	OpPurgeLocal
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpCreateLocal:
		return "create-local"
	case OpCreateRemote:
		return "create-remote"
	case OpPushUpdate:
		return "push-update"
	case OpPullUpdate:
		return "pull-update"
	case OpDeleteLocal:
		return "delete-local"
	case OpDeleteRemote:
		return "delete-remote"
	case OpPurgeLocal:
		return "purge-local"
	}
	return "unknown"
}

// Decision is the resolver's verdict for one pair.
type Decision struct {
	Op Op

	// Conflict marks a resolution that discarded a concurrent edit on
	// the losing side; it is counted and logged, nothing more.
	Conflict bool
}

// TieBreak selects the winner when both sides carry the exact same
// modification timestamp.
type TieBreak int

const (
	// TieRemote treats equal timestamps as "remote already reflects
	// this state", minimizing redundant writes. The default.
	TieRemote TieBreak = iota

	// TieLocal pushes the local version on equal timestamps.
	TieLocal
)

// Policy carries the configurable conflict rules. The defaults match
// last-writer-wins with delete-beats-update.
type Policy struct {
	Tie TieBreak

	// DeleteWins makes a local delete beat a concurrent remote update.
	// When false, a remote edit newer than the local delete resurrects
	// the task instead.
	DeleteWins bool
}

// DefaultPolicy returns the default conflict rules.
func DefaultPolicy() Policy {
	return Policy{Tie: TieRemote, DeleteWins: true}
}

// Change is one entry of the joined delta view: the local task, the
// remote task, or both, keyed by the shared identifier.
type Change struct {
	// Key is the remote ID when one exists, otherwise a synthetic key
	// for local-only tasks.
	Key string

	Local  *store.Task
	Remote *service.RemoteTask
}
