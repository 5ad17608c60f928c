// Package corpus owns the data model of a run: the shared vocabulary,
// the documents of the reference and focus corpora, and the frozen
// association matrix handed to the clustering engine.
package corpus

import (
	"bufio"
	crand "crypto/rand"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"github.com/james-bowman/sparse"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/sensedrift/pkg/sensedrift/cooccur"
	"github.com/cognicore/sensedrift/pkg/sensedrift/crp"
	"github.com/cognicore/sensedrift/pkg/sensedrift/ingest"
	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
	"github.com/cognicore/sensedrift/pkg/sensedrift/vocab"
)

// Origin tags which corpus a document came from.
type Origin string

const (
	Reference Origin = "reference"
	Focus     Origin = "focus"
)

// Document is one source sentence: its token ids in order, its origin,
// its partition into latent-sense clusters of token positions, and the
// engine-populated mapping from local cluster index to global sense id.
type Document struct {
	ID        int
	Origin    Origin
	Words     []int
	Partition [][]int

	senseByCluster []int
}

// InitPartition draws the document's initial partition from a CRP prior.
func (d *Document) InitPartition(alpha float64, rng crp.Rand) error {
	clusters, err := crp.Partition(len(d.Words), alpha, rng)
	if err != nil {
		return fmt.Errorf("document %d: %w", d.ID, err)
	}
	d.Partition = clusters
	return nil
}

// ValidatePartition checks the partition still covers every token
// position exactly once. The clustering engine must keep this true after
// every sampling call; a violation is a contract breach.
func (d *Document) ValidatePartition() error {
	if err := crp.Validate(d.Partition, len(d.Words)); err != nil {
		return fmt.Errorf("document %d: %w: %v", d.ID, internalerr.ErrInvalidPartition, err)
	}
	return nil
}

// SetSenseMapping records the engine's local-cluster to global-sense
// mapping. The mapping must cover every cluster.
func (d *Document) SetSenseMapping(senses []int) error {
	if len(senses) != len(d.Partition) {
		return fmt.Errorf("document %d: sense mapping covers %d of %d clusters",
			d.ID, len(senses), len(d.Partition))
	}
	d.senseByCluster = senses
	return nil
}

// SenseMapping returns the engine-populated mapping. Reading it before
// the engine phase completes is a contract violation, not a default.
func (d *Document) SenseMapping() ([]int, error) {
	if d.senseByCluster == nil {
		return nil, fmt.Errorf("document %d: %w", d.ID, internalerr.ErrNotPopulated)
	}
	return d.senseByCluster, nil
}

// Corpus is the unit of persistence: vocabulary, documents, association
// matrix and the monotonically increasing save counter.
type Corpus struct {
	RunID string
	Vocab *vocab.Vocabulary
	Docs  []*Document

	// Assoc is the raw co-occurrence count matrix, frozen after load.
	// The PPMI weighting is derivable from it via cooccur.PPMI but the
	// counts are what downstream sampling consumes.
	Assoc *sparse.CSR

	saves int
}

// Load reads the reference corpus and, if given, the focus corpus
// (plain UTF-8, one sentence per line), builds the union vocabulary and
// the association matrix. Reference lines are processed first so their
// id assignment is fixed before focus words extend it.
func Load(reference, focus string, tok *ingest.Tokenizer, floor, window int) (*Corpus, error) {
	builder := vocab.NewBuilder(tok, floor)

	refSents, err := processFile(builder, reference)
	if err != nil {
		return nil, fmt.Errorf("reference corpus: %w", err)
	}

	var focusSents [][]string
	if focus != "" {
		focusSents, err = processFile(builder, focus)
		if err != nil {
			return nil, fmt.Errorf("focus corpus: %w", err)
		}
	}

	v, err := builder.Vocabulary()
	if err != nil {
		return nil, err
	}

	c := &Corpus{
		RunID: newRunID(),
		Vocab: v,
	}
	if err := c.appendDocs(refSents, Reference); err != nil {
		return nil, err
	}
	if err := c.appendDocs(focusSents, Focus); err != nil {
		return nil, err
	}

	all := make([][]string, 0, len(refSents)+len(focusSents))
	all = append(all, refSents...)
	all = append(all, focusSents...)
	c.Assoc = cooccur.Count(all, v, window).ToCSR()

	return c, nil
}

func processFile(b *vocab.Builder, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: empty corpus file", path)
	}
	return b.Process(lines)
}

func (c *Corpus) appendDocs(sents [][]string, origin Origin) error {
	for _, sent := range sents {
		words := make([]int, len(sent))
		for i, t := range sent {
			id, ok := c.Vocab.ID(t)
			if !ok {
				return fmt.Errorf("token %q in %s document: %w", t, origin, internalerr.ErrUnknownToken)
			}
			words[i] = id
		}
		c.Docs = append(c.Docs, &Document{
			ID:     len(c.Docs),
			Origin: origin,
			Words:  words,
		})
	}
	return nil
}

// InitPartitions draws every document's initial partition in parallel.
// Each document gets its own generator seeded from the run seed and the
// document id, so results are reproducible regardless of scheduling.
func (c *Corpus) InitPartitions(alpha float64, seed int64) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, doc := range c.Docs {
		doc := doc
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(doc.ID)))
			if err := doc.InitPartition(alpha, rng); err != nil {
				return err
			}
			return doc.ValidatePartition()
		})
	}
	return g.Wait()
}

// NextSave increments and returns the save counter. Snapshot n must be
// written before snapshot n+1 is requested.
func (c *Corpus) NextSave() int {
	c.saves++
	return c.saves
}

// Saves returns the number of snapshots taken so far.
func (c *Corpus) Saves() int { return c.saves }

// RestoreSaves resets the counter when resuming from a snapshot.
func (c *Corpus) RestoreSaves(n int) { c.saves = n }

func newRunID() string {
	entropy := ulid.Monotonic(crand.Reader, 0)
	return ulid.MustNew(ulid.Now(), entropy).String()
}
