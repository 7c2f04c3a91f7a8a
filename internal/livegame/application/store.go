package application

import (
	"sync"
	"time"

	"riftcoach/internal/livegame/domain"
)

// SnapshotStore holds the latest snapshot and the last successful one.
type SnapshotStore struct {
	mu       sync.RWMutex
	latest   domain.Snapshot
	lastGood *domain.Snapshot
	ready    bool
}

// NewSnapshotStore constructs an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Latest returns the most recent snapshot and whether one exists yet.
func (s *SnapshotStore) Latest() (domain.Snapshot, bool) {
	if s == nil {
		return domain.Snapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ready
}

// Accept records a successful snapshot.
func (s *SnapshotStore) Accept(snap domain.Snapshot) domain.Snapshot {
	if s == nil {
		return snap
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	good := snap
	s.latest = snap
	s.lastGood = &good
	s.ready = true
	return snap
}

// Fail records a failed cycle and returns the error-flagged snapshot built from the last
// successful one.
func (s *SnapshotStore) Fail(err error, at time.Time) domain.Snapshot {
	if s == nil {
		return ErrorSnapshot(nil, err, at)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ErrorSnapshot(s.lastGood, err, at)
	s.latest = snap
	s.ready = true
	return snap
}

// ErrorSnapshot copies prev, or an empty snapshot when there is none, and flags it.
func ErrorSnapshot(prev *domain.Snapshot, err error, at time.Time) domain.Snapshot {
	snap := domain.EmptySnapshot()
	if prev != nil {
		snap = *prev
	}
	snap.Error = true
	snap.ErrorMessage = "aggregation failed"
	if err != nil {
		snap.ErrorMessage = err.Error()
	}
	snap.FetchedAt = at.UTC()
	return snap
}
