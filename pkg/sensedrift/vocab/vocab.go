// Package vocab builds the shared vocabulary over one or more corpora.
//
// Words survive if they pass the tokenizer's stopword filter and occur at
// least floor+1 times in their corpus. Ids are dense integers assigned in
// encounter order over the filtered sentences; processing a second corpus
// extends the assignment but never renumbers existing ids.
package vocab

import (
	"fmt"

	"github.com/cognicore/sensedrift/pkg/sensedrift/ingest"
	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
)

// Vocabulary maps surviving words to dense integer ids and back, and
// records each word's total occurrence count over the filtered sentences.
// Immutable once built.
type Vocabulary struct {
	ids    map[string]int
	words  []string
	counts []int64
}

// Size returns the number of words in the vocabulary.
func (v *Vocabulary) Size() int { return len(v.words) }

// ID returns the id for a word.
func (v *Vocabulary) ID(word string) (int, bool) {
	id, ok := v.ids[word]
	return id, ok
}

// Word returns the word for an id.
func (v *Vocabulary) Word(id int) (string, error) {
	if id < 0 || id >= len(v.words) {
		return "", fmt.Errorf("word id %d: %w", id, internalerr.ErrUnknownToken)
	}
	return v.words[id], nil
}

// Count returns the post-filter occurrence count for a word,
// zero if the word is not in the vocabulary.
func (v *Vocabulary) Count(word string) int64 {
	if id, ok := v.ids[word]; ok {
		return v.counts[id]
	}
	return 0
}

// CountByID returns the post-filter occurrence count for an id.
func (v *Vocabulary) CountByID(id int) (int64, error) {
	if id < 0 || id >= len(v.counts) {
		return 0, fmt.Errorf("word id %d: %w", id, internalerr.ErrUnknownToken)
	}
	return v.counts[id], nil
}

// Words returns the words in id order. The slice is a copy.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Builder accumulates filtered sentences and word counts across corpora.
type Builder struct {
	tok   *ingest.Tokenizer
	floor int64

	ids    map[string]int
	words  []string
	counts []int64
}

// NewBuilder creates a builder. floor is the minimum post-filter occurrence
// count required for a word to remain; words occurring fewer than floor+1
// times in a processed batch are removed from that batch.
func NewBuilder(tok *ingest.Tokenizer, floor int) *Builder {
	return &Builder{
		tok:   tok,
		floor: int64(floor),
		ids:   make(map[string]int),
	}
}

// Process tokenizes one corpus worth of raw lines, removes rare words,
// drops empty sentences, and folds the survivors into the vocabulary.
// It returns the filtered token sequences in input order.
func (b *Builder) Process(lines []string) ([][]string, error) {
	raw := make([][]string, 0, len(lines))
	rawCounts := make(map[string]int64)
	for i, line := range lines {
		tokens, err := b.tok.Tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("tokenize line %d: %w", i, err)
		}
		raw = append(raw, tokens)
		for _, t := range tokens {
			rawCounts[t]++
		}
	}

	// Removal set: tokens under the frequency floor. Stopwords were
	// already removed by the tokenizer.
	rare := make(map[string]struct{})
	for t, n := range rawCounts {
		if n < b.floor+1 {
			rare[t] = struct{}{}
		}
	}

	var filtered [][]string
	for _, sent := range raw {
		kept := sent[:0]
		for _, t := range sent {
			if _, ok := rare[t]; !ok {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			filtered = append(filtered, kept)
		}
	}

	// Fold into the running count table; first encounter fixes the id.
	for _, sent := range filtered {
		for _, t := range sent {
			id, ok := b.ids[t]
			if !ok {
				id = len(b.words)
				b.ids[t] = id
				b.words = append(b.words, t)
				b.counts = append(b.counts, 0)
			}
			b.counts[id]++
		}
	}

	return filtered, nil
}

// Vocabulary finalizes the builder. It fails if nothing survived filtering.
func (b *Builder) Vocabulary() (*Vocabulary, error) {
	if len(b.words) == 0 {
		return nil, internalerr.ErrEmptyVocabulary
	}
	v := &Vocabulary{
		ids:    make(map[string]int, len(b.ids)),
		words:  make([]string, len(b.words)),
		counts: make([]int64, len(b.counts)),
	}
	for w, id := range b.ids {
		v.ids[w] = id
	}
	copy(v.words, b.words)
	copy(v.counts, b.counts)
	return v, nil
}

// FromLists reconstructs a vocabulary from parallel word/count slices in
// id order, as stored in a snapshot.
func FromLists(words []string, counts []int64) (*Vocabulary, error) {
	if len(words) != len(counts) {
		return nil, fmt.Errorf("words/counts length mismatch: %d vs %d", len(words), len(counts))
	}
	if len(words) == 0 {
		return nil, internalerr.ErrEmptyVocabulary
	}
	v := &Vocabulary{
		ids:    make(map[string]int, len(words)),
		words:  make([]string, len(words)),
		counts: make([]int64, len(counts)),
	}
	for i, w := range words {
		if _, dup := v.ids[w]; dup {
			return nil, fmt.Errorf("duplicate word %q in snapshot", w)
		}
		v.ids[w] = i
	}
	copy(v.words, words)
	copy(v.counts, counts)
	return v, nil
}

// Counts returns the per-id occurrence counts. The slice is a copy.
func (v *Vocabulary) Counts() []int64 {
	out := make([]int64, len(v.counts))
	copy(out, v.counts)
	return out
}
