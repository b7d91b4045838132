package sync

import (
	"testing"
	"time"

	"ltask/internal/service"
	"ltask/internal/store"
)

var (
	t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func localTask(status store.Status, remoteID string, updated, remoteUpdated time.Time, deleted bool) *store.Task {
	return &store.Task{
		ID:            1,
		RemoteID:      remoteID,
		Title:         "local",
		UpdatedAt:     updated,
		RemoteUpdated: remoteUpdated,
		Status:        status,
		Deleted:       deleted,
	}
}

func remoteTask(updated time.Time, deleted bool) *service.RemoteTask {
	return &service.RemoteTask{ID: "r1", Title: "remote", Updated: updated, Deleted: deleted}
}

func TestResolveDecisionTable(t *testing.T) {
	pol := DefaultPolicy()

	tests := []struct {
		name     string
		local    *store.Task
		remote   *service.RemoteTask
		pol      Policy
		want     Op
		conflict bool
	}{
		{
			name:   "remote only creates local",
			remote: remoteTask(t1, false),
			pol:    pol,
			want:   OpCreateLocal,
		},
		{
			name:   "remote tombstone with no local is a no-op",
			remote: remoteTask(t1, true),
			pol:    pol,
			want:   OpNone,
		},
		{
			name:  "local only pushes create",
			local: localTask(store.StatusDirty, "", t1, time.Time{}, false),
			pol:   pol,
			want:  OpCreateRemote,
		},
		{
			name:  "local-only tombstone is purged",
			local: localTask(store.StatusPendingDelete, "", t1, time.Time{}, true),
			pol:   pol,
			want:  OpPurgeLocal,
		},
		{
			name:   "remote delete of clean local deletes local",
			local:  localTask(store.StatusSynced, "r1", t0, t0, false),
			remote: remoteTask(t1, true),
			pol:    pol,
			want:   OpDeleteLocal,
		},
		{
			name:   "edit after remote delete re-creates remote",
			local:  localTask(store.StatusDirty, "r1", t2, t0, false),
			remote: remoteTask(t1, true),
			pol:    pol,
			want:   OpCreateRemote,
		},
		{
			name:   "both deleted confirms the tombstone",
			local:  localTask(store.StatusPendingDelete, "r1", t1, t0, true),
			remote: remoteTask(t1, true),
			pol:    pol,
			want:   OpPurgeLocal,
		},
		{
			name:     "delete wins over remote update",
			local:    localTask(store.StatusPendingDelete, "r1", t1, t0, true),
			remote:   remoteTask(t2, false),
			pol:      pol,
			want:     OpDeleteRemote,
			conflict: true,
		},
		{
			name:   "unconflicted delete is not a conflict",
			local:  localTask(store.StatusPendingDelete, "r1", t1, t0, true),
			remote: remoteTask(t0, false),
			pol:    pol,
			want:   OpDeleteRemote,
		},
		{
			name:     "update beats delete when configured",
			local:    localTask(store.StatusPendingDelete, "r1", t1, t0, true),
			remote:   remoteTask(t2, false),
			pol:      Policy{Tie: TieRemote, DeleteWins: false},
			want:     OpPullUpdate,
			conflict: true,
		},
		{
			name:  "dirty local with unchanged remote pushes",
			local: localTask(store.StatusDirty, "r1", t2, t1, false),
			// remote echo of our own last push
			remote: remoteTask(t1, false),
			pol:    pol,
			want:   OpPushUpdate,
		},
		{
			name:     "dirty local newer than remote pushes",
			local:    localTask(store.StatusDirty, "r1", t2, t0, false),
			remote:   remoteTask(t1, false),
			pol:      pol,
			want:     OpPushUpdate,
			conflict: true,
		},
		{
			name:     "dirty local older than remote pulls",
			local:    localTask(store.StatusDirty, "r1", t1, t0, false),
			remote:   remoteTask(t2, false),
			pol:      pol,
			want:     OpPullUpdate,
			conflict: true,
		},
		{
			name:     "equal timestamps default to remote",
			local:    localTask(store.StatusDirty, "r1", t1, t0, false),
			remote:   remoteTask(t1, false),
			pol:      pol,
			want:     OpPullUpdate,
			conflict: true,
		},
		{
			name:     "equal timestamps push when tie-break is local",
			local:    localTask(store.StatusDirty, "r1", t1, t0, false),
			remote:   remoteTask(t1, false),
			pol:      Policy{Tie: TieLocal, DeleteWins: true},
			want:     OpPushUpdate,
			conflict: true,
		},
		{
			name:  "dirty local absent from remote delta pushes",
			local: localTask(store.StatusDirty, "r1", t2, t1, false),
			pol:   pol,
			want:  OpPushUpdate,
		},
		{
			name:  "tombstone absent from remote delta deletes remote",
			local: localTask(store.StatusPendingDelete, "r1", t2, t1, true),
			pol:   pol,
			want:  OpDeleteRemote,
		},
		{
			name:   "rejected push retries like a dirty edit",
			local:  localTask(store.StatusConflict, "r1", t2, t1, false),
			remote: remoteTask(t1, false),
			pol:    pol,
			want:   OpPushUpdate,
		},
		{
			name:   "clean local follows remote change",
			local:  localTask(store.StatusSynced, "r1", t0, t0, false),
			remote: remoteTask(t1, false),
			pol:    pol,
			want:   OpPullUpdate,
		},
		{
			name:   "clean local with unchanged remote is a no-op",
			local:  localTask(store.StatusSynced, "r1", t0, t1, false),
			remote: remoteTask(t1, false),
			pol:    pol,
			want:   OpNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(Change{Key: "r1", Local: tt.local, Remote: tt.remote}, tt.pol)
			if got.Op != tt.want {
				t.Errorf("op = %s, want %s", got.Op, tt.want)
			}
			if got.Conflict != tt.conflict {
				t.Errorf("conflict = %v, want %v", got.Conflict, tt.conflict)
			}
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	local := localTask(store.StatusDirty, "r1", t2, t0, false)
	remote := remoteTask(t1, false)
	c := Change{Key: "r1", Local: local, Remote: remote}

	first := Resolve(c, DefaultPolicy())
	for i := 0; i < 3; i++ {
		if got := Resolve(c, DefaultPolicy()); got != first {
			t.Fatalf("resolution changed between calls: %v then %v", first, got)
		}
	}
	if local.Status != store.StatusDirty || remote.Updated != t1 {
		t.Fatal("Resolve mutated its inputs")
	}
}
