// Package novelty scores words for cross-corpus sense-usage divergence.
// The score follows the novelty_diff method of Cook et al. 2014: the
// largest per-sense shift of usage proportion toward the focus corpus.
package novelty

import (
	"fmt"
	"sort"

	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
)

// Side selects the corpus column of a sense count.
type Side int

const (
	Reference Side = iota
	Focus
)

// Word holds a vocabulary word and its per-sense occurrence counts,
// broken out by corpus side. Counts are accumulated during the scoring
// pass and read out once by Calculate.
type Word struct {
	Word string
	ID   int

	senses [][2]float64
}

// NewWord creates a word entry with room for the given number of senses.
func NewWord(word string, id, senses int) *Word {
	return &Word{
		Word:   word,
		ID:     id,
		senses: make([][2]float64, senses),
	}
}

// Observe increments the count for one occurrence of the word in the
// given sense on the given corpus side.
func (w *Word) Observe(sense int, side Side) error {
	if sense < 0 || sense >= len(w.senses) {
		return fmt.Errorf("word %q: sense %d outside [0,%d)", w.Word, sense, len(w.senses))
	}
	if side != Reference && side != Focus {
		return fmt.Errorf("word %q: unknown corpus side %d", w.Word, side)
	}
	w.senses[sense][side]++
	return nil
}

// Score is the outcome of Calculate: the largest novelty across observed
// senses and the sense achieving it.
type Score struct {
	Word    string
	Novelty float64
	Sense   int
}

// Calculate strips unobserved senses, normalizes each remaining row to
// usage proportions, and reports the maximum of p_focus - p_ref together
// with the sense index achieving it. A word with no observations at all
// is a contract breach upstream and fails loudly.
func (w *Word) Calculate() (Score, error) {
	best := Score{Word: w.Word, Novelty: -2}
	for sense, row := range w.senses {
		total := row[Reference] + row[Focus]
		if total == 0 {
			continue
		}
		nov := row[Focus]/total - row[Reference]/total
		if nov > best.Novelty {
			best.Novelty = nov
			best.Sense = sense
		}
	}
	if best.Novelty < -1 {
		return Score{}, fmt.Errorf("word %q: %w", w.Word, internalerr.ErrZeroCounts)
	}
	return best, nil
}

// Distribution returns the word's normalized distribution over senses on
// one corpus side. Fails if the word was never observed on that side.
func (w *Word) Distribution(side Side) ([]float64, error) {
	out := make([]float64, len(w.senses))
	var total float64
	for sense, row := range w.senses {
		out[sense] = row[side]
		total += row[side]
	}
	if total == 0 {
		return nil, fmt.Errorf("word %q side %d: %w", w.Word, side, internalerr.ErrZeroCounts)
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}

// Scoreboard accumulates Word entries lazily, keyed by word identity.
type Scoreboard struct {
	senses int
	words  map[string]*Word
}

// NewScoreboard creates a scoreboard for the given global sense count.
func NewScoreboard(senses int) *Scoreboard {
	return &Scoreboard{
		senses: senses,
		words:  make(map[string]*Word),
	}
}

// Observe records one occurrence, creating the word entry on first sight.
func (s *Scoreboard) Observe(word string, id, sense int, side Side) error {
	entry, ok := s.words[word]
	if !ok {
		entry = NewWord(word, id, s.senses)
		s.words[word] = entry
	}
	return entry.Observe(sense, side)
}

// Word returns the entry for a word, if it was observed.
func (s *Scoreboard) Word(word string) (*Word, bool) {
	w, ok := s.words[word]
	return w, ok
}

// Len returns the number of observed words.
func (s *Scoreboard) Len() int { return len(s.words) }

// Ranking scores every observed word and returns the scores in
// descending novelty order, ties broken by word for determinism.
func (s *Scoreboard) Ranking() ([]Score, error) {
	out := make([]Score, 0, len(s.words))
	for _, w := range s.words {
		score, err := w.Calculate()
		if err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Novelty != out[j].Novelty {
			return out[i].Novelty > out[j].Novelty
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}
