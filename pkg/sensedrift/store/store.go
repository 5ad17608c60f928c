// Package store persists corpus snapshots so a run can be resumed and
// its scoring pass replayed downstream.
package store

import "context"

// Snapshot is a flattened, backend-neutral image of a Corpus at one
// save point. Seq values are strictly increasing within a run.
type Snapshot struct {
	RunID  string
	Seq    int
	Words  []string // vocabulary in id order
	Counts []int64  // per-id occurrence counts
	Docs   []Doc
	Cells  []Cell // nonzero association-matrix cells
}

// Doc is one document's persisted state.
type Doc struct {
	ID        int
	Origin    string
	Words     []int
	Partition [][]int
	Senses    []int // local cluster -> global sense; nil if unpopulated
}

// Cell is one nonzero cell of the association matrix.
type Cell struct {
	Row, Col int
	Count    float64
}

// Store saves and restores snapshots.
type Store interface {
	// Save persists a snapshot. Attempting to overwrite an existing
	// sequence number fails; save paths are acquired exclusively.
	Save(ctx context.Context, snap Snapshot) error

	// Load restores the snapshot with the given sequence number.
	Load(ctx context.Context, seq int) (Snapshot, error)

	// LatestSeq returns the highest saved sequence number, 0 if none.
	LatestSeq(ctx context.Context) (int, error)

	Close() error
}
