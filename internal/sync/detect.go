package sync

import (
	"context"
	"fmt"
	"time"

	"ltask/internal/service"
	"ltask/internal/store"
)

// detectChanges builds the joined delta view for one run: the local dirty
// set and the remote changed-since set, matched up by remote ID. Local
// entries come first in position order, then remote-only entries in
// listing order, so action application is deterministic.
//
// The remote sequence is drained completely before anything is joined; a
// listing failure surfaces here and aborts the run before any mutation.
func detectChanges(ctx context.Context, st *store.Store, remote service.Remote, checkpoint time.Time) ([]Change, error) {
	var remoteOrder []string
	remoteByID := make(map[string]service.RemoteTask)

	seq := remote.ListChangedSince(ctx, checkpoint)
	for seq.Next() {
		rt := seq.Task()
		if _, seen := remoteByID[rt.ID]; !seen {
			remoteOrder = append(remoteOrder, rt.ID)
		}
		remoteByID[rt.ID] = rt
	}
	if err := seq.Err(); err != nil {
		return nil, err
	}

	dirty, err := st.DirtySince(ctx, checkpoint)
	if err != nil {
		return nil, fmt.Errorf("local delta: %w", err)
	}

	var changes []Change
	claimed := make(map[string]bool)

	for _, t := range dirty {
		c := Change{Local: t}
		if t.RemoteID != "" {
			c.Key = t.RemoteID
			if rt, ok := remoteByID[t.RemoteID]; ok {
				c.Remote = &rt
				claimed[t.RemoteID] = true
			}
		} else {
			c.Key = fmt.Sprintf("local:%d", t.ID)
		}
		changes = append(changes, c)
	}

	// Remote changes with no dirty local counterpart. The local copy, if
	// one exists, is clean and is looked up so the resolver sees the
	// baseline.
	for _, id := range remoteOrder {
		if claimed[id] {
			continue
		}
		rt := remoteByID[id]
		local, err := st.ByRemoteID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("join remote %s: %w", id, err)
		}
		changes = append(changes, Change{Key: id, Local: local, Remote: &rt})
	}

	return changes, nil
}
