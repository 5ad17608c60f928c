// Package crp draws initial token partitions from a Chinese Restaurant
// Process prior. It provides the warm start consumed by the clustering
// engine.
package crp

import (
	"fmt"
)

// Rand is the source of uniform variates in [0,1). *math/rand.Rand
// satisfies it; tests inject fixed streams.
type Rand interface {
	Float64() float64
}

// Partition groups the token positions [0, n) into clusters under a CRP
// prior with concentration alpha > 0, processing positions in order.
// Each draw either joins an existing cluster with probability
// proportional to its size or opens a new one with probability
// proportional to alpha.
func Partition(n int, alpha float64, rng Rand) ([][]int, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("crp: concentration alpha must be positive, got %v", alpha)
	}
	if n < 0 {
		return nil, fmt.Errorf("crp: negative sequence length %d", n)
	}

	var clusters [][]int
	count := 0.0
	for pos := 0; pos < n; pos++ {
		count++
		denom := count + alpha - 1

		existing := 0.0
		for _, c := range clusters {
			existing += float64(len(c)) / denom
		}

		// r == existing lands in the new-cluster slot, so a zero draw
		// against zero clusters opens the first cluster.
		r := rng.Float64()
		if r >= existing {
			clusters = append(clusters, []int{pos})
			continue
		}

		placed := false
		cum := 0.0
		for j, c := range clusters {
			cum += float64(len(c)) / denom
			if cum > r {
				clusters[j] = append(clusters[j], pos)
				placed = true
				break
			}
		}
		if !placed {
			// Rounding pushed r past every existing cluster's slot.
			clusters = append(clusters, []int{pos})
		}
	}
	return clusters, nil
}

// Validate checks that clusters form a true partition of [0, n): every
// position appears in exactly one cluster.
func Validate(clusters [][]int, n int) error {
	seen := make([]bool, n)
	total := 0
	for _, c := range clusters {
		for _, pos := range c {
			if pos < 0 || pos >= n {
				return fmt.Errorf("crp: position %d outside [0,%d)", pos, n)
			}
			if seen[pos] {
				return fmt.Errorf("crp: position %d assigned twice", pos)
			}
			seen[pos] = true
			total++
		}
	}
	if total != n {
		return fmt.Errorf("crp: %d of %d positions assigned", total, n)
	}
	return nil
}
