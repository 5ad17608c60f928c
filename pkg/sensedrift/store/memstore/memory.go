// Package memstore is an in-memory store.Store for tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
	"github.com/cognicore/sensedrift/pkg/sensedrift/store"
)

// Store keeps snapshots in a map, deep-copied on the way in and out.
type Store struct {
	mu    sync.RWMutex
	snaps map[int]store.Snapshot
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{snaps: make(map[int]store.Snapshot)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[snap.Seq]; ok {
		return fmt.Errorf("snapshot %d: %w", snap.Seq, internalerr.ErrSnapshotExists)
	}
	s.snaps[snap.Seq] = copySnapshot(snap)
	return nil
}

// Load implements store.Store.
func (s *Store) Load(ctx context.Context, seq int) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[seq]
	if !ok {
		return store.Snapshot{}, fmt.Errorf("snapshot %d: %w", seq, internalerr.ErrNotFound)
	}
	return copySnapshot(snap), nil
}

// LatestSeq implements store.Store.
func (s *Store) LatestSeq(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := 0
	for seq := range s.snaps {
		if seq > latest {
			latest = seq
		}
	}
	return latest, nil
}

func copySnapshot(in store.Snapshot) store.Snapshot {
	out := in
	out.Words = append([]string(nil), in.Words...)
	out.Counts = append([]int64(nil), in.Counts...)
	out.Cells = append([]store.Cell(nil), in.Cells...)
	out.Docs = make([]store.Doc, len(in.Docs))
	for i, d := range in.Docs {
		nd := d
		nd.Words = append([]int(nil), d.Words...)
		nd.Senses = append([]int(nil), d.Senses...)
		nd.Partition = make([][]int, len(d.Partition))
		for j, cluster := range d.Partition {
			nd.Partition[j] = append([]int(nil), cluster...)
		}
		out.Docs[i] = nd
	}
	return out
}
