package sync

import "ltask/internal/store"

// Resolve is the merge decision function: pure, no side effects, no I/O.
// Given the local task, the remote task (either may be nil, not both) and
// the policy, it picks the action that drives both sides toward the same
// state. Rules are evaluated in order; the first match wins.
func Resolve(c Change, pol Policy) Decision {
	local, remote := c.Local, c.Remote

	// Remote-only: a task born elsewhere. A tombstone for a task we
	// never had needs nothing.
	if local == nil {
		if remote == nil || remote.Deleted {
			return Decision{Op: OpNone}
		}
		return Decision{Op: OpCreateLocal}
	}

	// Local-only: never pushed, so nothing can conflict.
	if local.RemoteID == "" {
		if local.Deleted {
			// Deleted before it ever reached the remote.
			return Decision{Op: OpPurgeLocal}
		}
		return Decision{Op: OpCreateRemote}
	}

	// Remote side deleted the task. Deletions always arrive as explicit
	// tombstones in the delta; absence means unchanged, never deleted.
	if remote != nil && remote.Deleted {
		switch {
		case local.Deleted:
			// Both sides deleted; the tombstone is confirmed.
			return Decision{Op: OpPurgeLocal}
		case locallyEdited(local):
			// Edit-after-delete: the local edit wins and the task
			// is re-created remotely.
			return Decision{Op: OpCreateRemote}
		default:
			return Decision{Op: OpDeleteLocal}
		}
	}

	// Not in the remote delta: the remote copy has not moved since the
	// checkpoint, so local changes push without contest.
	if remote == nil {
		switch {
		case local.Deleted:
			return Decision{Op: OpDeleteRemote}
		case locallyEdited(local):
			return Decision{Op: OpPushUpdate}
		default:
			return Decision{Op: OpNone}
		}
	}

	// Local tombstone against a live remote task. A concurrent remote
	// edit makes this a conflict; which side wins is policy.
	if local.Deleted {
		if remoteChanged(c) {
			if !pol.DeleteWins && remote.Updated.After(local.UpdatedAt) {
				// Update-beats-delete: the newer remote edit
				// resurrects the task.
				return Decision{Op: OpPullUpdate, Conflict: true}
			}
			return Decision{Op: OpDeleteRemote, Conflict: true}
		}
		return Decision{Op: OpDeleteRemote}
	}

	// Concurrent edits: last writer wins on the modification timestamps.
	if locallyEdited(local) {
		if !remoteChanged(c) {
			return Decision{Op: OpPushUpdate}
		}
		if localWins(c, pol) {
			return Decision{Op: OpPushUpdate, Conflict: true}
		}
		return Decision{Op: OpPullUpdate, Conflict: true}
	}

	// Clean local copy: follow the remote unconditionally.
	if remoteChanged(c) {
		return Decision{Op: OpPullUpdate}
	}
	return Decision{Op: OpNone}
}

// locallyEdited reports whether the row carries unsynced local edits.
// Rejected pushes count: they are edits the remote still hasn't accepted.
func locallyEdited(t *store.Task) bool {
	return t.Status == store.StatusDirty || t.Status == store.StatusConflict
}

// remoteChanged reports whether the remote copy moved past the version
// this device last saw. Appearing in the changed-since delta is not
// enough: our own pushes echo back through it.
func remoteChanged(c Change) bool {
	return c.Remote.Updated.After(c.Local.RemoteUpdated)
}

// localWins applies last-writer-wins with the configured tie-break.
func localWins(c Change, pol Policy) bool {
	lu, ru := c.Local.UpdatedAt, c.Remote.Updated
	if lu.Equal(ru) {
		return pol.Tie == TieLocal
	}
	return lu.After(ru)
}
