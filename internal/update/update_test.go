package update

import (
	"testing"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/batch"
	"github.com/adaptivelab/experiment-controller/internal/gate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region helpers

func testDeciders() Deciders {
	return Deciders{
		Batch:    batch.NewController(batch.DefaultConfig()),
		Strategy: strategy.NewBalancer(strategy.DefaultConfig(), nil),
		Gate:     gate.NewGate(gate.DefaultConfig()),
		Mode:     strategy.DefaultConfig(),
	}
}

func record(iter, size int, acc float64) ledger.IterationRecord {
	return ledger.IterationRecord{
		Index:               iter,
		Mode:                ledger.ModeExplore,
		BatchSize:           size,
		Accuracy:            acc,
		ExamplesSeen:        (iter + 1) * size,
		ProgressiveAccuracy: -1,
		CreatedAt:           time.Now().UTC(),
	}
}

func historyOf(t *testing.T, recs ...ledger.IterationRecord) *ledger.History {
	t.Helper()
	h, err := ledger.NewHistoryFrom(recs)
	if err != nil {
		t.Fatalf("build history: %v", err)
	}
	return h
}

// #endregion helpers

// #region baseline-tests

func TestApplyEstablishesBaselineFromFirstIteration(t *testing.T) {
	cs := state.InitialState(5)
	rec := record(0, 5, 0.30)
	res := Apply(cs, rec, historyOf(t, rec), testDeciders())

	if res.NextState.BaselineAssumed {
		t.Error("baseline should no longer be assumed")
	}
	if res.NextState.BaselineAccuracy != 0.30 {
		t.Errorf("baseline = %.2f, want 0.30", res.NextState.BaselineAccuracy)
	}
	if res.NextState.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", res.NextState.Iteration)
	}
	if res.Decision.Action != "commit" {
		t.Errorf("establishing a baseline should commit, got %q", res.Decision.Action)
	}
}

func TestApplyKeepsAssumedBaselineOnSynthesisFailure(t *testing.T) {
	cs := state.InitialState(5)
	failed := record(0, 5, 0)
	failed.SynthesisFailed = true
	res := Apply(cs, failed, historyOf(t, failed), testDeciders())

	if !res.NextState.BaselineAssumed {
		t.Fatal("a failed synthesis measured nothing and must not set the baseline")
	}
	if res.NextState.BaselineAccuracy != cs.BaselineAccuracy {
		t.Errorf("baseline moved to %.2f on a failed iteration", res.NextState.BaselineAccuracy)
	}

	// The first iteration that actually ran its batch establishes it.
	measured := record(1, 5, 0.60)
	res2 := Apply(res.NextState, measured, historyOf(t, failed, measured), testDeciders())
	if res2.NextState.BaselineAssumed {
		t.Error("baseline should be established by the first measured iteration")
	}
	if res2.NextState.BaselineAccuracy != 0.60 {
		t.Errorf("baseline = %.2f, want 0.60", res2.NextState.BaselineAccuracy)
	}
}

// #endregion baseline-tests

// #region scenario-tests

// A hard dataset (baseline 0.30) hitting 0.80 on a 5-example batch:
// the mix shifts toward exploit/refine and the gate escalates.
func TestApplyStrongImprovementScenario(t *testing.T) {
	cs := state.InitialState(5)
	cs.Iteration = 1
	cs.BaselineAccuracy = 0.30
	cs.BaselineAssumed = false

	base := record(0, 5, 0.30)
	rec := record(1, 5, 0.80)
	res := Apply(cs, rec, historyOf(t, base, rec), testDeciders())

	if !res.Gate.Escalate {
		t.Errorf("expected escalation: %s", res.Gate.Reason)
	}
	if res.NextState.LastEscalatedIteration != 1 {
		t.Errorf("LastEscalatedIteration = %d, want 1", res.NextState.LastEscalatedIteration)
	}
	if res.NextState.LastEscalatedAccuracy != 0.80 {
		t.Errorf("LastEscalatedAccuracy = %.2f", res.NextState.LastEscalatedAccuracy)
	}
	mix := res.NextState.Mix
	if mix.ExploitPct+mix.RefinePct <= mix.ExplorePct {
		t.Errorf("mix should favor exploit+refine after a strong result: %s", mix)
	}
	if !res.Profile.ShouldExploit {
		t.Error("decisive single-iteration gain should enable exploit")
	}
	if mix.Sum() != 100 {
		t.Errorf("mix sum = %d", mix.Sum())
	}
}

func TestApplyHoldsOnQuietIteration(t *testing.T) {
	cs := state.InitialState(5)
	cs.Iteration = 2
	cs.BaselineAccuracy = 0.50
	cs.BaselineAssumed = false
	cs.Mix = strategy.Mix{ExplorePct: 50, ExploitPct: 25, RefinePct: 25}

	recs := []ledger.IterationRecord{
		record(0, 5, 0.50), record(1, 5, 0.51), record(2, 5, 0.50),
	}
	res := Apply(cs, recs[2], historyOf(t, recs...), testDeciders())

	if res.Gate.Escalate {
		t.Errorf("no escalation expected at baseline: %s", res.Gate.Reason)
	}
	if res.NextState.BatchSize != cs.BatchSize {
		t.Errorf("batch should hold on uninformative signal: %d -> %d",
			cs.BatchSize, res.NextState.BatchSize)
	}
}

// #endregion scenario-tests

// #region invariant-tests

func TestApplyNeverMutatesInputState(t *testing.T) {
	cs := state.InitialState(5)
	cs.Iteration = 1
	cs.BaselineAccuracy = 0.30
	cs.BaselineAssumed = false
	before := cs

	base := record(0, 5, 0.30)
	rec := record(1, 5, 0.80)
	Apply(cs, rec, historyOf(t, base, rec), testDeciders())

	if cs != before {
		t.Errorf("input state mutated: %+v", cs)
	}
}

func TestApplyBoundsHoldAcrossAccuracySweep(t *testing.T) {
	d := testDeciders()
	for acc := 0.0; acc <= 1.0; acc += 0.1 {
		cs := state.InitialState(5)
		cs.Iteration = 1
		cs.BaselineAccuracy = 0.40
		cs.BaselineAssumed = false

		base := record(0, 5, 0.40)
		rec := record(1, 5, acc)
		res := Apply(cs, rec, historyOf(t, base, rec), d)

		if res.NextState.Mix.Sum() != 100 {
			t.Errorf("acc %.1f: mix sum = %d", acc, res.NextState.Mix.Sum())
		}
		if res.NextState.BatchSize < 3 || res.NextState.BatchSize > 10 {
			t.Errorf("acc %.1f: batch size %d out of bounds", acc, res.NextState.BatchSize)
		}
		if res.NextState.Iteration != 2 {
			t.Errorf("acc %.1f: iteration = %d", acc, res.NextState.Iteration)
		}
	}
}

func TestApplyPropagatesExamplesSeen(t *testing.T) {
	cs := state.InitialState(5)
	rec := record(0, 5, 0.50)
	rec.ExamplesSeen = 5
	res := Apply(cs, rec, historyOf(t, rec), testDeciders())
	if res.NextState.ExamplesSeen != 5 {
		t.Errorf("ExamplesSeen = %d, want 5", res.NextState.ExamplesSeen)
	}
}

// #endregion invariant-tests
