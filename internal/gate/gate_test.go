package gate

import (
	"testing"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

func historyOf(t *testing.T, accuracies ...float64) *ledger.History {
	t.Helper()
	h := ledger.NewHistory()
	for i, a := range accuracies {
		err := h.Append(ledger.IterationRecord{
			Index:               i,
			BatchSize:           5,
			Accuracy:            a,
			ProgressiveAccuracy: -1,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return h
}

func TestSmallBatchMarginalImprovementRejected(t *testing.T) {
	g := NewGate(DefaultConfig())
	h := historyOf(t, 0.50, 0.55, 0.58)

	// 2 points over the best recent result on a batch of 3: noise.
	d := g.ShouldEscalate(Result{Iteration: 10, Accuracy: 0.60, BatchSize: 3}, 0.40, h, Escalation{})
	if d.Escalate {
		t.Fatalf("marginal small-batch result escalated: %s", d.Reason)
	}
}

func TestLargeBatchWideMarginEscalates(t *testing.T) {
	g := NewGate(DefaultConfig())
	h := historyOf(t, 0.50, 0.55, 0.58)

	// 15+ points over both baseline and best recent on a batch of 10.
	d := g.ShouldEscalate(Result{Iteration: 10, Accuracy: 0.75, BatchSize: 10}, 0.40, h, Escalation{})
	if !d.Escalate {
		t.Fatalf("wide large-batch margin rejected: %s", d.Reason)
	}
}

func TestEarlyIterationsNeedStrongerEvidence(t *testing.T) {
	g := NewGate(DefaultConfig())
	h := historyOf(t, 0.50)

	// Margin of 6 points on a large batch: enough late, not enough early.
	late := g.ShouldEscalate(Result{Iteration: 12, Accuracy: 0.56, BatchSize: 10}, 0.40, h, Escalation{})
	if !late.Escalate {
		t.Fatalf("late iteration should clear the low bar: %s", late.Reason)
	}

	early := g.ShouldEscalate(Result{Iteration: 2, Accuracy: 0.56, BatchSize: 10}, 0.40, h, Escalation{})
	if early.Escalate {
		t.Fatalf("early iteration cleared the bar too easily: %s", early.Reason)
	}
}

func TestRecentComparableEscalationSuppressed(t *testing.T) {
	g := NewGate(DefaultConfig())
	h := historyOf(t, 0.30, 0.35)

	result := Result{Iteration: 8, Accuracy: 0.70, BatchSize: 10}
	last := Escalation{Iteration: 6, Accuracy: 0.68, Valid: true}

	d := g.ShouldEscalate(result, 0.30, h, last)
	if d.Escalate {
		t.Fatalf("comparable recent escalation should suppress rerun: %s", d.Reason)
	}

	// An old escalation no longer blocks.
	old := Escalation{Iteration: 1, Accuracy: 0.68, Valid: true}
	d = g.ShouldEscalate(result, 0.30, h, old)
	if !d.Escalate {
		t.Fatalf("stale escalation should not block: %s", d.Reason)
	}

	// A much better result is not "comparable quality".
	better := Result{Iteration: 8, Accuracy: 0.90, BatchSize: 10}
	d = g.ShouldEscalate(better, 0.30, h, last)
	if !d.Escalate {
		t.Fatalf("clearly better result should escalate despite recent run: %s", d.Reason)
	}
}

func TestBarIsRelativeNotAbsolute(t *testing.T) {
	g := NewGate(DefaultConfig())

	// 0.60 against a weak field clears; the same 0.60 against a strong field
	// does not. No absolute cutoff decides.
	weak := historyOf(t, 0.20, 0.25)
	d := g.ShouldEscalate(Result{Iteration: 10, Accuracy: 0.60, BatchSize: 10}, 0.20, weak, Escalation{})
	if !d.Escalate {
		t.Fatalf("0.60 over weak field should escalate: %s", d.Reason)
	}

	strong := historyOf(t, 0.58, 0.59)
	d = g.ShouldEscalate(Result{Iteration: 10, Accuracy: 0.60, BatchSize: 10}, 0.20, strong, Escalation{})
	if d.Escalate {
		t.Fatalf("0.60 over strong field should not escalate: %s", d.Reason)
	}
}

func TestFirstIterationWideMargin(t *testing.T) {
	// Baseline 0.30, first result 0.80 on batch 5: margin is decisive even
	// with the early-iteration penalty.
	g := NewGate(DefaultConfig())
	d := g.ShouldEscalate(Result{Iteration: 1, Accuracy: 0.80, BatchSize: 5}, 0.30, ledger.NewHistory(), Escalation{})
	if !d.Escalate {
		t.Fatalf("50-point first-iteration margin should escalate: %s", d.Reason)
	}
}

func TestDecisionCarriesReason(t *testing.T) {
	g := NewGate(DefaultConfig())
	d := g.ShouldEscalate(Result{Iteration: 3, Accuracy: 0.10, BatchSize: 3}, 0.40, ledger.NewHistory(), Escalation{})
	if d.Escalate {
		t.Fatal("weak result escalated")
	}
	if d.Reason == "" {
		t.Fatal("expected audit reason")
	}
}
