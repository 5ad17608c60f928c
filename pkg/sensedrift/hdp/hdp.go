// Package hdp defines the boundary to the external nonparametric
// clustering engine (a Hierarchical Dirichlet Process sampler). The
// engine's internals live elsewhere; this package fixes what it consumes
// from the corpus model and what it writes back.
package hdp

import (
	"fmt"

	"github.com/cognicore/sensedrift/pkg/sensedrift/corpus"
)

// Sampler is the contract with the clustering engine.
//
// Consumed: the per-document token-id sequences and CRP-initialized
// partitions, and per-token association-matrix rows as context evidence.
// Produced: updated partitions, a local-cluster to global-sense mapping
// per document (via Document.SetSenseMapping), and the global
// sense-by-corpus count matrix read by the novelty scorer.
type Sampler interface {
	// InitPartition absorbs the documents' initial partitions into the
	// engine's global state and assigns each local cluster a global
	// sense id.
	InitPartition(docs []*corpus.Document) error

	// SampleTable resamples the sense assignment of the token at
	// position pos of doc, using the association-matrix row of the
	// token's word id as context evidence. It is called once per
	// (document, position) per sweep and must leave the partition a
	// true partition of the document's positions.
	SampleTable(doc *corpus.Document, pos int, contextRow []float64) error

	// SenseCount returns the current number of global senses.
	SenseCount() int

	// Senses returns the sense-by-corpus count matrix: one row per
	// global sense, columns reference and focus.
	Senses() [][2]float64
}

// Frozen is a degenerate sampler that keeps the CRP warm start as the
// final clustering: local cluster j becomes global sense j. It exists so
// the pipeline can run end to end without the real engine, in tests and
// demos.
type Frozen struct {
	senses [][2]float64
}

// NewFrozen creates a frozen sampler.
func NewFrozen() *Frozen { return &Frozen{} }

// InitPartition maps every document's local clusters onto global senses
// by index and tallies occupancy per corpus side.
func (f *Frozen) InitPartition(docs []*corpus.Document) error {
	maxClusters := 0
	for _, doc := range docs {
		if len(doc.Partition) > maxClusters {
			maxClusters = len(doc.Partition)
		}
	}
	f.senses = make([][2]float64, maxClusters)

	for _, doc := range docs {
		mapping := make([]int, len(doc.Partition))
		for j := range doc.Partition {
			mapping[j] = j
		}
		if err := doc.SetSenseMapping(mapping); err != nil {
			return err
		}
		col := 0
		if doc.Origin == corpus.Focus {
			col = 1
		}
		for j, cluster := range doc.Partition {
			f.senses[j][col] += float64(len(cluster))
		}
	}
	return nil
}

// SampleTable leaves the partition untouched.
func (f *Frozen) SampleTable(doc *corpus.Document, pos int, contextRow []float64) error {
	if pos < 0 || pos >= len(doc.Words) {
		return fmt.Errorf("document %d: position %d outside [0,%d)", doc.ID, pos, len(doc.Words))
	}
	return nil
}

// SenseCount returns the number of global senses.
func (f *Frozen) SenseCount() int { return len(f.senses) }

// Senses returns the sense-by-corpus count matrix.
func (f *Frozen) Senses() [][2]float64 { return f.senses }
