package vocab

import (
	"errors"
	"testing"

	"github.com/cognicore/sensedrift/pkg/sensedrift/ingest"
	"github.com/cognicore/sensedrift/pkg/sensedrift/internalerr"
)

func newBuilder(t *testing.T, floor int) *Builder {
	t.Helper()
	return NewBuilder(ingest.NewTokenizer(nil), floor)
}

func TestBijectiveIDs(t *testing.T) {
	b := newBuilder(t, 0)
	if _, err := b.Process([]string{"cat sat mat", "dog sat log"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	v, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}

	words := v.Words()
	if len(words) != v.Size() {
		t.Fatalf("Words() length %d != Size() %d", len(words), v.Size())
	}
	seen := make(map[int]struct{})
	for _, w := range words {
		id, ok := v.ID(w)
		if !ok {
			t.Fatalf("word %q missing id", w)
		}
		if id < 0 || id >= v.Size() {
			t.Fatalf("id %d for %q outside [0,%d)", id, w, v.Size())
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = struct{}{}
		round, err := v.Word(id)
		if err != nil || round != w {
			t.Fatalf("Word(%d) = %q, %v; want %q", id, round, err, w)
		}
	}
}

func TestEncounterOrder(t *testing.T) {
	b := newBuilder(t, 0)
	if _, err := b.Process([]string{"cat sat mat", "dog sat log"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	v, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}

	want := []string{"cat", "sat", "mat", "dog", "log"}
	for i, w := range want {
		id, ok := v.ID(w)
		if !ok || id != i {
			t.Errorf("ID(%q) = %d, %v; want %d", w, id, ok, i)
		}
	}
}

func TestFloorRemovesRareWords(t *testing.T) {
	b := newBuilder(t, 1) // require at least 2 occurrences
	filtered, err := b.Process([]string{"cat sat mat", "dog sat log"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	v, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}

	if v.Size() != 1 {
		t.Fatalf("want only sat to survive floor=1, got %v", v.Words())
	}
	if _, ok := v.ID("sat"); !ok {
		t.Error("sat occurs twice and must survive")
	}
	for _, sent := range filtered {
		for _, tok := range sent {
			if tok != "sat" {
				t.Errorf("rare token %q survived filtering", tok)
			}
		}
	}
}

func TestUnionExtendsWithoutRenumbering(t *testing.T) {
	b := newBuilder(t, 0)
	if _, err := b.Process([]string{"cat sat mat"}); err != nil {
		t.Fatalf("Process reference: %v", err)
	}
	ref, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}
	refID, _ := ref.ID("cat")

	if _, err := b.Process([]string{"dog sat log"}); err != nil {
		t.Fatalf("Process focus: %v", err)
	}
	v, err := b.Vocabulary()
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}

	id, ok := v.ID("cat")
	if !ok || id != refID {
		t.Errorf("cat renumbered: %d -> %d", refID, id)
	}
	dogID, ok := v.ID("dog")
	if !ok || dogID <= refID {
		t.Errorf("new word dog should extend id space, got %d", dogID)
	}
	if v.Size() != 5 {
		t.Errorf("union vocabulary size = %d, want 5", v.Size())
	}
	if got := v.Count("sat"); got != 2 {
		t.Errorf("sat count accumulated across corpora = %d, want 2", got)
	}
}

func TestEmptyVocabularyFails(t *testing.T) {
	b := newBuilder(t, 100)
	if _, err := b.Process([]string{"cat sat mat"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	_, err := b.Vocabulary()
	if !errors.Is(err, internalerr.ErrEmptyVocabulary) {
		t.Errorf("want ErrEmptyVocabulary, got %v", err)
	}
}

func TestFromListsRoundTrip(t *testing.T) {
	v, err := FromLists([]string{"cat", "sat"}, []int64{3, 7})
	if err != nil {
		t.Fatalf("FromLists: %v", err)
	}
	if id, ok := v.ID("sat"); !ok || id != 1 {
		t.Errorf("ID(sat) = %d, %v", id, ok)
	}
	if got := v.Count("cat"); got != 3 {
		t.Errorf("Count(cat) = %d, want 3", got)
	}

	if _, err := FromLists([]string{"cat", "cat"}, []int64{1, 1}); err == nil {
		t.Error("duplicate words must be rejected")
	}
	if _, err := FromLists(nil, nil); !errors.Is(err, internalerr.ErrEmptyVocabulary) {
		t.Errorf("empty snapshot: want ErrEmptyVocabulary, got %v", err)
	}
}
