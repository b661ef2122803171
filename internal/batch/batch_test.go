package batch

import (
	"testing"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

func historyAt(t *testing.T, size int, accuracies ...float64) *ledger.History {
	t.Helper()
	h := ledger.NewHistory()
	for i, a := range accuracies {
		err := h.Append(ledger.IterationRecord{
			Index:               i,
			Mode:                ledger.ModeExplore,
			BatchSize:           size,
			Accuracy:            a,
			ProgressiveAccuracy: -1,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return h
}

func TestSaturatedAccuracyGrowsBatch(t *testing.T) {
	c := NewController(DefaultConfig())
	h := historyAt(t, 5, 1.0, 1.0, 1.0)

	next := c.NextSize(5, h, ledger.ModeExploit)
	if next <= 5 {
		t.Fatalf("saturated accuracy at size 5 must grow the batch, got %d", next)
	}
	if next > 10 {
		t.Fatalf("size left ceiling: %d", next)
	}
}

func TestDeadSignalShrinksBatch(t *testing.T) {
	c := NewController(DefaultConfig())
	h := historyAt(t, 10, 0.0, 0.0, 0.0)

	next := c.NextSize(10, h, ledger.ModeExploit)
	if next >= 10 {
		t.Fatalf("dead signal at size 10 must shrink the batch, got %d", next)
	}
	if next < 3 {
		t.Fatalf("size left floor: %d", next)
	}
}

func TestUnanimousWindowJumpsToBound(t *testing.T) {
	c := NewController(DefaultConfig())

	// Every observed record is at the current size and near 100%.
	h := historyAt(t, 5, 1.0, 1.0, 1.0, 1.0, 1.0)
	if next := c.NextSize(5, h, ledger.ModeExploit); next != 10 {
		t.Fatalf("unanimous saturation should jump to the ceiling, got %d", next)
	}

	h = historyAt(t, 10, 0.0, 0.0, 0.0, 0.0, 0.0)
	if next := c.NextSize(10, h, ledger.ModeExploit); next != 3 {
		t.Fatalf("unanimous dead signal should jump to the floor, got %d", next)
	}
}

func TestMixedWindowStepsBounded(t *testing.T) {
	c := NewController(DefaultConfig())

	// Three saturated records at size 5 plus recent records at other sizes:
	// evidence is not unanimous, so the move is a bounded step.
	h := ledger.NewHistory()
	sizes := []int{7, 7, 5, 5, 5}
	for i, size := range sizes {
		h.Append(ledger.IterationRecord{Index: i, BatchSize: size, Accuracy: 1.0, ProgressiveAccuracy: -1})
	}

	next := c.NextSize(5, h, ledger.ModeExploit)
	if next != 7 {
		t.Fatalf("expected single step 5->7, got %d", next)
	}
}

func TestExploreHoldsOnMixedEvidence(t *testing.T) {
	c := NewController(DefaultConfig())

	h := ledger.NewHistory()
	sizes := []int{7, 7, 5, 5, 5}
	for i, size := range sizes {
		h.Append(ledger.IterationRecord{Index: i, BatchSize: size, Accuracy: 1.0, ProgressiveAccuracy: -1})
	}

	if next := c.NextSize(5, h, ledger.ModeExplore); next != 5 {
		t.Fatalf("explore mode should hold on mixed evidence, got %d", next)
	}
}

func TestInformativeSignalHolds(t *testing.T) {
	c := NewController(DefaultConfig())
	h := historyAt(t, 5, 0.4, 0.6, 0.5)

	if next := c.NextSize(5, h, ledger.ModeExploit); next != 5 {
		t.Fatalf("informative mid-range signal should hold, got %d", next)
	}
}

func TestInsufficientEvidenceHolds(t *testing.T) {
	c := NewController(DefaultConfig())
	h := historyAt(t, 5, 1.0, 1.0)

	if next := c.NextSize(5, h, ledger.ModeExploit); next != 5 {
		t.Fatalf("two records are below the evidence bar, got %d", next)
	}
}

func TestClampsOutOfRangeInput(t *testing.T) {
	c := NewController(DefaultConfig())
	h := ledger.NewHistory()

	if next := c.NextSize(0, h, ledger.ModeExplore); next != 3 {
		t.Fatalf("expected clamp to floor, got %d", next)
	}
	if next := c.NextSize(50, h, ledger.ModeExplore); next != 10 {
		t.Fatalf("expected clamp to ceiling, got %d", next)
	}
}

func TestBoundsAlwaysHold(t *testing.T) {
	c := NewController(DefaultConfig())
	for size := 3; size <= 10; size++ {
		for _, acc := range []float64{0.0, 0.5, 1.0} {
			h := historyAt(t, size, acc, acc, acc, acc, acc)
			for _, mode := range []ledger.Mode{ledger.ModeExplore, ledger.ModeExploit, ledger.ModeRefine} {
				next := c.NextSize(size, h, mode)
				if next < 3 || next > 10 {
					t.Fatalf("size %d escaped bounds (from %d, acc %.1f, mode %s)", next, size, acc, mode)
				}
			}
		}
	}
}
