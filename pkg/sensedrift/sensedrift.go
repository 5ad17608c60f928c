// Package sensedrift detects differences in word usage between a
// reference corpus and a focus corpus. It induces latent sense clusters
// for each word occurrence, hands them to a clustering engine, and ranks
// words by how far their sense usage shifted toward the focus corpus.
package sensedrift

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/james-bowman/sparse"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/sensedrift/pkg/sensedrift/config"
	"github.com/cognicore/sensedrift/pkg/sensedrift/cooccur"
	"github.com/cognicore/sensedrift/pkg/sensedrift/corpus"
	"github.com/cognicore/sensedrift/pkg/sensedrift/hdp"
	"github.com/cognicore/sensedrift/pkg/sensedrift/ingest"
	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
	"github.com/cognicore/sensedrift/pkg/sensedrift/novelty"
	"github.com/cognicore/sensedrift/pkg/sensedrift/store"
	"github.com/cognicore/sensedrift/pkg/sensedrift/vocab"
)

// Pipeline is the batch analysis facade.
type Pipeline struct {
	cfg      config.Run
	store    store.Store
	sampler  hdp.Sampler
	progress io.Writer
}

// Options configures a Pipeline instance.
type Options struct {
	Config  config.Run
	Store   store.Store
	Sampler hdp.Sampler

	// Progress receives the sampling progress bar; nil disables it.
	Progress io.Writer
}

// New creates a Pipeline with the given dependencies.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: snapshot store required", internalerr.ErrInvalidConfig)
	}
	if opts.Sampler == nil {
		return nil, fmt.Errorf("%w: clustering engine required", internalerr.ErrInvalidConfig)
	}
	return &Pipeline{
		cfg:      opts.Config,
		store:    opts.Store,
		sampler:  opts.Sampler,
		progress: opts.Progress,
	}, nil
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	VocabSize int
	Documents int
	Senses    int
	Ranking   []novelty.Score
	Targets   []TargetDivergence
}

// TargetDivergence is the SemEval-mode score for one target word: the
// Jensen-Shannon divergence between the word's sense distributions in
// the two corpora.
type TargetDivergence struct {
	Word string
	JSD  float64
}

// Run executes the whole batch analysis. Failures name the stage that
// aborted the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	c, err := p.load()
	if err != nil {
		return nil, fmt.Errorf("load corpora: %w", err)
	}

	if err := c.InitPartitions(p.cfg.Alpha, p.cfg.Seed); err != nil {
		return nil, fmt.Errorf("init partitions: %w", err)
	}

	if err := p.sample(ctx, c); err != nil {
		return nil, fmt.Errorf("sampling: %w", err)
	}

	board, err := p.score(c)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	ranking, err := board.Ranking()
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	if len(ranking) > p.cfg.TopK {
		ranking = ranking[:p.cfg.TopK]
	}

	result := &Result{
		RunID:     c.RunID,
		VocabSize: c.Vocab.Size(),
		Documents: len(c.Docs),
		Senses:    p.sampler.SenseCount(),
		Ranking:   ranking,
	}

	if p.cfg.Targets != "" {
		result.Targets, err = p.compareTargets(board)
		if err != nil {
			return nil, fmt.Errorf("target comparison: %w", err)
		}
	}
	return result, nil
}

func (p *Pipeline) load() (*corpus.Corpus, error) {
	stops := ingest.DefaultStopwords()
	if p.cfg.Stoplist != "" {
		sl, err := config.LoadStoplist(p.cfg.Stoplist)
		if err != nil {
			return nil, err
		}
		stops = append(stops, sl.Terms...)
	}
	tok := ingest.NewTokenizer(stops)
	tok.SetStemming(p.cfg.Stem)
	return corpus.Load(p.cfg.Reference, p.cfg.Focus, tok, p.cfg.Floor, p.cfg.WindowSize)
}

// sample hands the warm start to the clustering engine and drives it for
// the configured number of sweeps, snapshotting on the save interval.
func (p *Pipeline) sample(ctx context.Context, c *corpus.Corpus) error {
	if err := p.sampler.InitPartition(c.Docs); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if p.progress != nil {
		bar = progressbar.NewOptions(p.cfg.MaxIters,
			progressbar.OptionSetWriter(p.progress),
			progressbar.OptionSetDescription("sampling"))
	}

	for it := 1; it <= p.cfg.MaxIters; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, doc := range c.Docs {
			for pos := range doc.Words {
				row, err := cooccur.Row(c.Assoc, doc.Words[pos])
				if err != nil {
					return err
				}
				if err := p.sampler.SampleTable(doc, pos, row); err != nil {
					return err
				}
			}
			if err := doc.ValidatePartition(); err != nil {
				return err
			}
		}
		if it%p.cfg.SaveEvery == 0 {
			if err := p.snapshot(ctx, c); err != nil {
				return err
			}
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	return nil
}

// score tallies every token occurrence into a per-word sense count
// matrix, split by corpus side.
func (p *Pipeline) score(c *corpus.Corpus) (*novelty.Scoreboard, error) {
	board := novelty.NewScoreboard(p.sampler.SenseCount())
	for _, doc := range c.Docs {
		mapping, err := doc.SenseMapping()
		if err != nil {
			return nil, err
		}
		side := novelty.Reference
		if doc.Origin == corpus.Focus {
			side = novelty.Focus
		}
		for i, cluster := range doc.Partition {
			sense := mapping[i]
			for _, pos := range cluster {
				id := doc.Words[pos]
				word, err := c.Vocab.Word(id)
				if err != nil {
					return nil, err
				}
				if err := board.Observe(word, id, sense, side); err != nil {
					return nil, err
				}
			}
		}
	}
	return board, nil
}

func (p *Pipeline) compareTargets(board *novelty.Scoreboard) ([]TargetDivergence, error) {
	targets, err := config.LoadTargets(p.cfg.Targets)
	if err != nil {
		return nil, err
	}
	out := make([]TargetDivergence, 0, len(targets))
	for _, target := range targets {
		w, ok := board.Word(target)
		if !ok {
			return nil, fmt.Errorf("target word %q not observed in either corpus", target)
		}
		ref, err := w.Distribution(novelty.Reference)
		if err != nil {
			return nil, err
		}
		foc, err := w.Distribution(novelty.Focus)
		if err != nil {
			return nil, err
		}
		out = append(out, TargetDivergence{
			Word: target,
			JSD:  stat.JensenShannon(ref, foc),
		})
	}
	return out, nil
}

// snapshot flattens the corpus and hands it to the store under the next
// sequence number.
func (p *Pipeline) snapshot(ctx context.Context, c *corpus.Corpus) error {
	snap := store.Snapshot{
		RunID:  c.RunID,
		Seq:    c.NextSave(),
		Words:  c.Vocab.Words(),
		Counts: c.Vocab.Counts(),
	}

	for _, doc := range c.Docs {
		d := store.Doc{
			ID:        doc.ID,
			Origin:    string(doc.Origin),
			Words:     doc.Words,
			Partition: doc.Partition,
		}
		if senses, err := doc.SenseMapping(); err == nil {
			d.Senses = senses
		} else if !errors.Is(err, internalerr.ErrNotPopulated) {
			return err
		}
		snap.Docs = append(snap.Docs, d)
	}

	c.Assoc.DoNonZero(func(i, j int, v float64) {
		snap.Cells = append(snap.Cells, store.Cell{Row: i, Col: j, Count: v})
	})

	return p.store.Save(ctx, snap)
}

// Restore rebuilds a Corpus from a stored snapshot, for resuming the
// scoring pass downstream.
func Restore(snap store.Snapshot) (*corpus.Corpus, error) {
	v, err := vocab.FromLists(snap.Words, snap.Counts)
	if err != nil {
		return nil, err
	}

	c := &corpus.Corpus{
		RunID: snap.RunID,
		Vocab: v,
	}
	c.RestoreSaves(snap.Seq)

	for _, d := range snap.Docs {
		doc := &corpus.Document{
			ID:        d.ID,
			Origin:    corpus.Origin(d.Origin),
			Words:     d.Words,
			Partition: d.Partition,
		}
		for _, id := range d.Words {
			if _, err := v.Word(id); err != nil {
				return nil, fmt.Errorf("document %d: %w", d.ID, err)
			}
		}
		if d.Senses != nil {
			if err := doc.SetSenseMapping(d.Senses); err != nil {
				return nil, err
			}
		}
		c.Docs = append(c.Docs, doc)
	}

	dok := sparse.NewDOK(v.Size(), v.Size())
	for _, cell := range snap.Cells {
		if cell.Row < 0 || cell.Row >= v.Size() || cell.Col < 0 || cell.Col >= v.Size() {
			return nil, fmt.Errorf("association cell (%d,%d) outside vocabulary", cell.Row, cell.Col)
		}
		dok.Set(cell.Row, cell.Col, cell.Count)
	}
	c.Assoc = dok.ToCSR()
	return c, nil
}
