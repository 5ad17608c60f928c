// Package cooccur accumulates windowed word co-occurrence counts and
// derives a PPMI weighting over the same index space.
package cooccur

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/cognicore/sensedrift/pkg/sensedrift/vocab"
)

// Count scans each sentence with a sliding half-window and tallies
// directed (context, center) pairs over vocabulary ids. For the token at
// position j the window covers positions [max(0, j-window/2),
// min(len-1, j+window/2)), start inclusive, end exclusive. Context tokens
// equal to the center token are skipped, so the diagonal stays zero.
//
// The result is a pure function of (sentences, window); callers should
// freeze it with ToCSR before sharing it read-only.
func Count(sentences [][]string, v *vocab.Vocabulary, window int) *sparse.DOK {
	n := v.Size()
	counts := sparse.NewDOK(n, n)
	half := window / 2

	for _, sent := range sentences {
		for j, center := range sent {
			b, ok := v.ID(center)
			if !ok {
				continue
			}
			start := j - half
			if start < 0 {
				start = 0
			}
			end := j + half
			if last := len(sent) - 1; end > last {
				end = last
			}
			for l := start; l < end; l++ {
				ctx := sent[l]
				if ctx == center {
					continue
				}
				a, ok := v.ID(ctx)
				if !ok {
					continue
				}
				counts.Set(a, b, counts.At(a, b)+1)
			}
		}
	}
	return counts
}

// PPMI derives the positive pointwise mutual information weighting over
// the nonzero cells of a count matrix.
//
// The probability estimator folds the pair's own frequency into both
// marginals: p_i = f*count(w_i)/total and p_j = f*count(w_j)/total, with
// joint = f/total and the log ratio clipped at zero. This matches the
// established scoring pipeline and is kept for compatibility; it is not
// the textbook PMI marginal.
func PPMI(counts *sparse.DOK, v *vocab.Vocabulary) (*sparse.DOK, error) {
	n := v.Size()
	ppmi := sparse.NewDOK(n, n)

	var total float64
	counts.DoNonZero(func(i, j int, f float64) {
		total += f
	})
	if total == 0 {
		return ppmi, nil
	}

	var walkErr error
	counts.DoNonZero(func(i, j int, f float64) {
		if walkErr != nil {
			return
		}
		ci, err := v.CountByID(i)
		if err != nil {
			walkErr = fmt.Errorf("ppmi cell (%d,%d): %w", i, j, err)
			return
		}
		cj, err := v.CountByID(j)
		if err != nil {
			walkErr = fmt.Errorf("ppmi cell (%d,%d): %w", i, j, err)
			return
		}

		joint := f / total
		pi := f * float64(ci) / total
		pj := f * float64(cj) / total
		denom := pi * pj
		if denom <= 0 {
			// Unobservable for in-vocabulary words, which occur at
			// least once; left at zero per contract.
			return
		}
		if pmi := math.Log2(joint / denom); pmi > 0 {
			ppmi.Set(i, j, pmi)
		}
	})
	return ppmi, walkErr
}

// Row materializes one row of a frozen count matrix as a dense vector,
// for handing to the clustering engine as context evidence.
func Row(m *sparse.CSR, id int) ([]float64, error) {
	rows, cols := m.Dims()
	if id < 0 || id >= rows {
		return nil, fmt.Errorf("association row %d outside [0,%d)", id, rows)
	}
	row := make([]float64, cols)
	m.DoRowNonZero(id, func(_, j int, v float64) {
		row[j] = v
	})
	return row, nil
}
