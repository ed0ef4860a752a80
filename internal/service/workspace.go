package service

import (
	"sync"
	"time"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// Snapshot is one actor's copy of their batch hierarchy. Stale means the last
// refresh failed and LastError says why; Dirty means the snapshot was
// invalidated and must be re-fetched on the next read.
type Snapshot struct {
	Batches   []models.Batch
	LoadedAt  time.Time
	Stale     bool
	Dirty     bool
	LastError string
}

// WorkspaceStore keeps per-actor snapshots for one view. Snapshots are
// replaced wholesale; callers never mutate the returned slices.
type WorkspaceStore struct {
	mu    sync.RWMutex
	items map[string]Snapshot
}

// NewWorkspaceStore builds an empty store.
func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{items: make(map[string]Snapshot)}
}

// Get returns the snapshot of actor.
func (w *WorkspaceStore) Get(actor string) (Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap, ok := w.items[actor]
	return snap, ok
}

// Put stores a freshly fetched snapshot, clearing stale markers.
func (w *WorkspaceStore) Put(actor string, batches []models.Batch, at time.Time) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{Batches: batches, LoadedAt: at}
	w.items[actor] = snap
	return snap
}

// Update swaps the batches of an existing snapshot through fn. It reports
// false when actor has no snapshot.
func (w *WorkspaceStore) Update(actor string, fn func([]models.Batch) []models.Batch) (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap, ok := w.items[actor]
	if !ok {
		return Snapshot{}, false
	}
	snap.Batches = fn(snap.Batches)
	w.items[actor] = snap
	return snap, true
}

// MarkStale keeps the last good snapshot and records the refresh failure.
func (w *WorkspaceStore) MarkStale(actor string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap, ok := w.items[actor]
	if !ok {
		return
	}
	snap.Stale = true
	if err != nil {
		snap.LastError = err.Error()
	}
	w.items[actor] = snap
}

// MarkBatchDirty invalidates every snapshot holding batchID, except those of
// actors for which skip returns true. A nil skip invalidates all of them.
func (w *WorkspaceStore) MarkBatchDirty(batchID string, skip func(actor string) bool) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for actor, snap := range w.items {
		if skip != nil && skip(actor) {
			continue
		}
		for _, batch := range snap.Batches {
			if batch.ID == batchID {
				snap.Dirty = true
				w.items[actor] = snap
				n++
				break
			}
		}
	}
	return n
}

// Evict drops the snapshot of actor.
func (w *WorkspaceStore) Evict(actor string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items, actor)
}
