package sensedrift

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/sensedrift/pkg/sensedrift/config"
	"github.com/cognicore/sensedrift/pkg/sensedrift/corpus"
	"github.com/cognicore/sensedrift/pkg/sensedrift/hdp"
	"github.com/cognicore/sensedrift/pkg/sensedrift/store/memstore"
)

// countingSampler wraps the frozen sampler and records how often the
// engine is consulted, to check the once-per-(document, position)
// per-sweep contract.
type countingSampler struct {
	*hdp.Frozen
	calls int
}

func (s *countingSampler) SampleTable(doc *corpus.Document, pos int, row []float64) error {
	s.calls++
	return s.Frozen.SampleTable(doc, pos, row)
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func toyConfig(t *testing.T) config.Run {
	t.Helper()
	dir := t.TempDir()
	// No output directory: the pipeline runs on whatever store it is
	// handed, as the runnable example does.
	cfg := config.Default()
	cfg.Reference = writeFile(t, dir, "ref.txt", "cat sat mat\ndog sat log\n")
	cfg.Focus = writeFile(t, dir, "foc.txt", "cat sat log\ndog sat mat\n")
	cfg.Floor = 0
	cfg.WindowSize = 4
	cfg.MaxIters = 10
	cfg.SaveEvery = 5
	cfg.Seed = 42
	return cfg
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := toyConfig(t)
	ms := memstore.New()
	sampler := &countingSampler{Frozen: hdp.NewFrozen()}

	p, err := New(Options{Config: cfg, Store: ms, Sampler: sampler})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.VocabSize != 5 {
		t.Errorf("vocab size = %d, want 5 (cat, sat, mat, dog, log)", result.VocabSize)
	}
	if result.Documents != 4 {
		t.Errorf("documents = %d, want 4", result.Documents)
	}
	if result.RunID == "" {
		t.Error("run id missing from result")
	}
	if len(result.Ranking) == 0 {
		t.Fatal("empty ranking")
	}
	for _, score := range result.Ranking {
		if score.Novelty < -1 || score.Novelty > 1 {
			t.Errorf("novelty for %q = %v outside [-1,1]", score.Word, score.Novelty)
		}
	}

	// Four documents of three surviving tokens each, ten sweeps.
	if want := 4 * 3 * 10; sampler.calls != want {
		t.Errorf("engine consulted %d times, want %d", sampler.calls, want)
	}

	// Ten sweeps at save interval five leaves two snapshots.
	latest, err := ms.LatestSeq(ctx)
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest snapshot = %d, want 2", latest)
	}
}

func TestRunReproducibleUnderSeed(t *testing.T) {
	ctx := context.Background()
	cfg := toyConfig(t)

	run := func() []string {
		p, err := New(Options{
			Config:  cfg,
			Store:   memstore.New(),
			Sampler: hdp.NewFrozen(),
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		result, err := p.Run(ctx)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		words := make([]string, len(result.Ranking))
		for i, s := range result.Ranking {
			words[i] = s.Word
		}
		return words
	}

	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different rankings: %v vs %v", a, b)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := toyConfig(t)
	ms := memstore.New()

	p, err := New(Options{Config: cfg, Store: ms, Sampler: hdp.NewFrozen()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, err := ms.Load(ctx, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if c.Vocab.Size() != 5 || len(c.Docs) != 4 {
		t.Errorf("restored corpus: vocab %d docs %d", c.Vocab.Size(), len(c.Docs))
	}
	if c.Saves() != 2 {
		t.Errorf("restored save counter = %d, want 2", c.Saves())
	}
	for _, doc := range c.Docs {
		if err := doc.ValidatePartition(); err != nil {
			t.Errorf("restored %v", err)
		}
		if _, err := doc.SenseMapping(); err != nil {
			t.Errorf("restored doc %d lost sense mapping: %v", doc.ID, err)
		}
	}
	rows, cols := c.Assoc.Dims()
	if rows != 5 || cols != 5 {
		t.Errorf("restored association matrix %dx%d, want 5x5", rows, cols)
	}
}

func TestSemEvalTargets(t *testing.T) {
	ctx := context.Background()
	cfg := toyConfig(t)
	cfg.Targets = writeFile(t, t.TempDir(), "targets.txt", "cat\nsat\n")

	p, err := New(Options{Config: cfg, Store: memstore.New(), Sampler: hdp.NewFrozen()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Targets) != 2 {
		t.Fatalf("got %d target divergences, want 2", len(result.Targets))
	}
	for _, td := range result.Targets {
		if td.JSD < 0 {
			t.Errorf("JSD for %q = %v, want >= 0", td.Word, td.JSD)
		}
	}
}

func TestUnknownTargetFails(t *testing.T) {
	ctx := context.Background()
	cfg := toyConfig(t)
	cfg.Targets = writeFile(t, t.TempDir(), "targets.txt", "zeppelin\n")

	p, err := New(Options{Config: cfg, Store: memstore.New(), Sampler: hdp.NewFrozen()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(ctx); err == nil || !strings.Contains(err.Error(), "zeppelin") {
		t.Errorf("want error naming the missing target, got %v", err)
	}
}

func TestFailureNamesStage(t *testing.T) {
	cfg := toyConfig(t)
	cfg.Reference = "/nonexistent/ref.txt"

	p, err := New(Options{Config: cfg, Store: memstore.New(), Sampler: hdp.NewFrozen()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "load corpora") {
		t.Errorf("want stage-naming error, got %v", err)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	cfg := toyConfig(t)
	if _, err := New(Options{Config: cfg, Sampler: hdp.NewFrozen()}); err == nil {
		t.Error("missing store must be rejected")
	}
	if _, err := New(Options{Config: cfg, Store: memstore.New()}); err == nil {
		t.Error("missing sampler must be rejected")
	}
	bad := cfg
	bad.Alpha = 0
	if _, err := New(Options{Config: bad, Store: memstore.New(), Sampler: hdp.NewFrozen()}); err == nil {
		t.Error("invalid config must be rejected")
	}
}
