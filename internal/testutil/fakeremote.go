// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ltask/internal/service"
)

// FakeRemote is an in-memory implementation of service.Remote for testing.
// It keeps tombstones for deleted tasks the way the real service does, so
// deletions show up in changed-since listings.
type FakeRemote struct {
	mu    sync.Mutex
	tasks map[string]service.RemoteTask
	order []string
	seq   int

	// Error injection. A non-nil value fails every call of that kind;
	// FailID fails update/delete for one specific task.
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error
	FailID    map[string]error

	// ListErrAfter emits that many tasks before ListErr fires, to
	// exercise partially consumed sequences.
	ListErrAfter int

	// Write call counters, for idempotence checks.
	Creates, Updates, Deletes int
}

// NewFakeRemote creates an empty fake remote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		tasks:  make(map[string]service.RemoteTask),
		FailID: make(map[string]error),
	}
}

// Seed inserts a remote-born task as-is, without counting as a write.
// The Updated field is taken verbatim so tests control the clock.
func (f *FakeRemote) Seed(t service.RemoteTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		f.order = append(f.order, t.ID)
	}
	f.tasks[t.ID] = t
}

// Get returns the stored task and whether it exists (tombstones included).
func (f *FakeRemote) Get(id string) (service.RemoteTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// Live returns the number of non-tombstone tasks.
func (f *FakeRemote) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.Deleted {
			n++
		}
	}
	return n
}

// WriteCalls returns the total number of write calls served.
func (f *FakeRemote) WriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Creates + f.Updates + f.Deletes
}

// ListChangedSince implements service.Remote.
func (f *FakeRemote) ListChangedSince(ctx context.Context, since time.Time) service.TaskSeq {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []service.RemoteTask
	for _, id := range f.order {
		t := f.tasks[id]
		if since.IsZero() || t.Updated.After(since) {
			items = append(items, t)
		}
	}
	seq := &sliceSeq{items: items}
	if f.ListErr != nil {
		seq.failAfter = f.ListErrAfter
		seq.failWith = f.ListErr
	}
	return seq
}

// Create implements service.Remote.
func (f *FakeRemote) Create(ctx context.Context, t service.RemoteTask) (service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return service.RemoteTask{}, f.CreateErr
	}
	f.Creates++
	f.seq++
	t.ID = fmt.Sprintf("r%d", f.seq)
	t.Updated = time.Now()
	t.Deleted = false
	f.tasks[t.ID] = t
	f.order = append(f.order, t.ID)
	return t, nil
}

// Update implements service.Remote.
func (f *FakeRemote) Update(ctx context.Context, id string, t service.RemoteTask) (service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return service.RemoteTask{}, f.UpdateErr
	}
	if err := f.FailID[id]; err != nil {
		return service.RemoteTask{}, err
	}
	cur, ok := f.tasks[id]
	if !ok || cur.Deleted {
		return service.RemoteTask{}, service.NewError(service.KindFatalRequest, "update", fmt.Errorf("no such task: %s", id))
	}
	f.Updates++
	t.ID = id
	t.Updated = time.Now()
	f.tasks[id] = t
	return t, nil
}

// Delete implements service.Remote. Deleting an absent task succeeds, to
// match the real adapter's already-gone semantics.
func (f *FakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if err := f.FailID[id]; err != nil {
		return err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil
	}
	f.Deletes++
	t.Deleted = true
	t.Updated = time.Now()
	f.tasks[id] = t
	return nil
}

type sliceSeq struct {
	items     []service.RemoteTask
	i         int
	cur       service.RemoteTask
	err       error
	failWith  error
	failAfter int
}

func (s *sliceSeq) Next() bool {
	if s.err != nil {
		return false
	}
	if s.failWith != nil && s.i >= s.failAfter {
		s.err = s.failWith
		return false
	}
	if s.i >= len(s.items) {
		return false
	}
	s.cur = s.items[s.i]
	s.i++
	return true
}

func (s *sliceSeq) Task() service.RemoteTask { return s.cur }

func (s *sliceSeq) Err() error { return s.err }
