package cooccur

import (
	"testing"

	"github.com/cognicore/sensedrift/pkg/sensedrift/ingest"
	"github.com/cognicore/sensedrift/pkg/sensedrift/vocab"
)

func buildVocab(t *testing.T, lines []string) (*vocab.Vocabulary, [][]string) {
	t.Helper()
	b := vocab.NewBuilder(ingest.NewTokenizer(nil), 0)
	sents, err := b.Process(lines)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	v, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}
	return v, sents
}

func TestWindowBookkeeping(t *testing.T) {
	v, sents := buildVocab(t, []string{"alpha bravo charlie"})
	counts := Count(sents, v, 4)

	a, _ := v.ID("alpha")
	b, _ := v.ID("bravo")

	if got := counts.At(b, a); got != 1 {
		t.Errorf("cell (bravo,alpha) = %v, want 1", got)
	}
	if got := counts.At(a, b); got != 1 {
		t.Errorf("cell (alpha,bravo) = %v, want 1", got)
	}

	// The diagonal must stay untouched.
	for i := 0; i < v.Size(); i++ {
		if got := counts.At(i, i); got != 0 {
			t.Errorf("self-pair (%d,%d) = %v, want 0", i, i, got)
		}
	}
}

func TestWindowClampsAtSentenceEdges(t *testing.T) {
	v, sents := buildVocab(t, []string{"alpha bravo"})
	// Window 2 yields a half-window of 1; the exclusive end excludes
	// the final position, so only (alpha,bravo) is tallied.
	counts := Count(sents, v, 2)

	a, _ := v.ID("alpha")
	b, _ := v.ID("bravo")
	if got := counts.At(a, b); got != 1 {
		t.Errorf("cell (alpha,bravo) = %v, want 1", got)
	}
	if got := counts.At(b, a); got != 0 {
		t.Errorf("cell (bravo,alpha) = %v, want 0 under window 2", got)
	}
}

func TestRepeatedCenterTokenSkipped(t *testing.T) {
	v, sents := buildVocab(t, []string{"alpha alpha bravo"})
	counts := Count(sents, v, 4)

	a, _ := v.ID("alpha")
	if got := counts.At(a, a); got != 0 {
		t.Errorf("repeated token produced self-pair: %v", got)
	}
}

func TestPPMINonNegative(t *testing.T) {
	v, sents := buildVocab(t, []string{
		"alpha bravo charlie delta",
		"alpha bravo echo delta",
		"charlie echo alpha bravo",
	})
	counts := Count(sents, v, 4)
	weights, err := PPMI(counts, v)
	if err != nil {
		t.Fatalf("PPMI: %v", err)
	}

	weights.DoNonZero(func(i, j int, w float64) {
		if w < 0 {
			t.Errorf("ppmi cell (%d,%d) = %v, want >= 0", i, j, w)
		}
	})
}

func TestPPMIClipsNegativeLogRatios(t *testing.T) {
	// With the pair-frequency estimator, joint/(p_i*p_j) =
	// total/(f*c_i*c_j); frequent words drive the ratio below one and
	// the clip must zero those cells.
	v, sents := buildVocab(t, []string{
		"alpha bravo alpha bravo alpha bravo alpha bravo",
	})
	counts := Count(sents, v, 8)
	weights, err := PPMI(counts, v)
	if err != nil {
		t.Fatalf("PPMI: %v", err)
	}

	a, _ := v.ID("alpha")
	b, _ := v.ID("bravo")
	if counts.At(a, b) == 0 {
		t.Fatal("expected raw co-occurrence between alpha and bravo")
	}
	if got := weights.At(a, b); got != 0 {
		t.Errorf("negative log ratio not clipped: ppmi(alpha,bravo) = %v", got)
	}
}

func TestPPMIEmptyCounts(t *testing.T) {
	v, _ := buildVocab(t, []string{"alpha bravo"})
	empty := Count(nil, v, 4)
	weights, err := PPMI(empty, v)
	if err != nil {
		t.Fatalf("PPMI on empty counts: %v", err)
	}
	nnz := 0
	weights.DoNonZero(func(i, j int, w float64) { nnz++ })
	if nnz != 0 {
		t.Errorf("empty counts produced %d nonzero ppmi cells", nnz)
	}
}

func TestRow(t *testing.T) {
	v, sents := buildVocab(t, []string{"alpha bravo charlie"})
	csr := Count(sents, v, 4).ToCSR()

	b, _ := v.ID("bravo")
	a, _ := v.ID("alpha")
	row, err := Row(csr, b)
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if len(row) != v.Size() {
		t.Fatalf("row length %d, want %d", len(row), v.Size())
	}
	if row[a] != csr.At(b, a) {
		t.Errorf("row[a] = %v, want %v", row[a], csr.At(b, a))
	}

	if _, err := Row(csr, v.Size()); err == nil {
		t.Error("out-of-range row must fail")
	}
}
