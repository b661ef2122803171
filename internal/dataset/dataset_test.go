package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

// #region load-tests

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "examples.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeDataset(t, `[
		{"id": "ex-1", "input": "add 1 2", "expected": "3"},
		{"input": "add 4 5", "expected": "9"}
	]`)
	examples, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(examples))
	}
	if examples[0].ID != "ex-1" || examples[0].Expected != "3" {
		t.Errorf("first example mismatch: %+v", examples[0])
	}
}

func TestLoadRejectsEmptyArray(t *testing.T) {
	path := writeDataset(t, `[]`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestLoadRejectsEmptyInput(t *testing.T) {
	path := writeDataset(t, `[{"input": "", "expected": "x"}]`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for example with empty input")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// #endregion load-tests

// #region sampler-tests

func poolOf(n int) []Example {
	out := make([]Example, n)
	for i := range out {
		out[i] = Example{Input: string(rune('a' + i))}
	}
	return out
}

func TestSamplerServesInOrder(t *testing.T) {
	s := NewSampler(poolOf(6), DefaultSamplerConfig())
	first := s.Sample(3)
	second := s.Sample(3)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("batch sizes: %d, %d", len(first), len(second))
	}
	if first[0].Input != "a" || second[0].Input != "d" {
		t.Errorf("batches out of order: %v then %v", first, second)
	}
	if s.SeenCount() != 6 {
		t.Errorf("SeenCount = %d, want 6", s.SeenCount())
	}
}

func TestSamplerWrapsWhenExhausted(t *testing.T) {
	s := NewSampler(poolOf(4), DefaultSamplerConfig())
	s.Sample(4)
	batch := s.Sample(3)
	if len(batch) != 3 {
		t.Fatalf("wrapped batch size = %d, want 3", len(batch))
	}
	if batch[0].Input != "a" {
		t.Errorf("wrap should restart from the front, got %q", batch[0].Input)
	}
	// SeenCount counts distinct examples, not re-serves.
	if s.SeenCount() != 4 {
		t.Errorf("SeenCount = %d, want 4", s.SeenCount())
	}
}

func TestSamplerSeenCappedAndRecentFirst(t *testing.T) {
	s := NewSampler(poolOf(26), SamplerConfig{MaxProgressive: 5})
	s.Sample(10)
	seen := s.Seen()
	if len(seen) != 5 {
		t.Fatalf("Seen() = %d examples, want 5", len(seen))
	}
	if seen[0].Input != "j" {
		t.Errorf("most recent first: got %q, want j", seen[0].Input)
	}
}

func TestSamplerRestore(t *testing.T) {
	s := NewSampler(poolOf(6), DefaultSamplerConfig())
	s.Restore(4)
	batch := s.Sample(2)
	if batch[0].Input != "e" {
		t.Errorf("restore should skip seen examples, got %q", batch[0].Input)
	}
	s.Restore(100)
	if s.SeenCount() != 6 {
		t.Errorf("restore past end should clamp, got %d", s.SeenCount())
	}
}

// #endregion sampler-tests

// #region exemplar-tests

func TestSelectExemplarsPrefersDiversity(t *testing.T) {
	pool := []Example{
		{Input: "sort the list of numbers ascending"},
		{Input: "sort the list of numbers descending"},
		{Input: "parse the csv header row fields"},
		{Input: "sort numbers ascending quickly"},
	}
	chosen := SelectExemplars(pool, 2)
	if len(chosen) != 2 {
		t.Fatalf("got %d exemplars, want 2", len(chosen))
	}
	if chosen[0].Input != pool[0].Input {
		t.Errorf("first pick should be the first example")
	}
	// The csv example shares no keywords with the sort examples and
	// must be the second pick over the near-duplicate sorts.
	if chosen[1].Input != pool[2].Input {
		t.Errorf("second pick = %q, want the csv example", chosen[1].Input)
	}
}

func TestSelectExemplarsSmallPool(t *testing.T) {
	pool := poolOf(2)
	chosen := SelectExemplars(pool, 5)
	if len(chosen) != 2 {
		t.Fatalf("got %d, want the whole pool", len(chosen))
	}
	if SelectExemplars(nil, 3) != nil {
		t.Error("empty pool should return nil")
	}
	if SelectExemplars(pool, 0) != nil {
		t.Error("k=0 should return nil")
	}
}

func TestTokenizeFiltersStopwords(t *testing.T) {
	tokens := tokenize("The list of the numbers")
	for _, tok := range tokens {
		if stopwords[tok] {
			t.Errorf("stopword %q survived tokenize", tok)
		}
	}
	if len(tokens) != 2 {
		t.Errorf("tokens = %v, want [list numbers]", tokens)
	}
}

// #endregion exemplar-tests
