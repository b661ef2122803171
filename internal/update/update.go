package update

import (
	"fmt"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/calibrate"
	"github.com/adaptivelab/experiment-controller/internal/gate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region apply
// Apply computes the next controller state from the current state and
// a just-completed iteration. It composes the deciders in a fixed
// order: baseline, calibration, gating, mix rebalance, batch size. The
// history must already contain rec as its last entry. Apply never
// mutates its inputs; persisting the result is the caller's job.
func Apply(current state.ControllerState, rec ledger.IterationRecord, history *ledger.History, d Deciders) Result {
	start := time.Now()

	next := current

	// Baseline is the first measured accuracy; until then it is assumed.
	// A failed synthesis never ran an example, so it measures nothing.
	if next.BaselineAssumed && !rec.SynthesisFailed {
		next.BaselineAccuracy = rec.Accuracy
		next.BaselineAssumed = false
	}

	profile := calibrate.Calibrate(baselineFor(next), history)

	last := gate.Escalation{
		Iteration: current.LastEscalatedIteration,
		Accuracy:  current.LastEscalatedAccuracy,
		Valid:     current.LastEscalatedIteration >= 0,
	}
	// The gate compares the result against prior iterations only.
	gateDecision := d.Gate.ShouldEscalate(gate.Result{
		Iteration: rec.Index,
		Accuracy:  rec.Accuracy,
		BatchSize: rec.BatchSize,
	}, baselineFor(next), withoutCurrent(history, rec.Index), last)
	if gateDecision.Escalate {
		next.LastEscalatedIteration = rec.Index
		next.LastEscalatedAccuracy = rec.Accuracy
	}

	newMix := d.Strategy.Rebalance(profile, current.Mix, history)
	next.Mix = newMix

	nextIteration := rec.Index + 1
	nextMode := strategy.SelectMode(newMix, nextIteration, d.Mode)

	next.BatchSize = d.Batch.NextSize(current.BatchSize, history, nextMode)
	next.Iteration = nextIteration
	next.ExamplesSeen = rec.ExamplesSeen

	decision := Decision{Action: "no_op", Reason: "controls unchanged"}
	if next.BatchSize != current.BatchSize || newMix != current.Mix ||
		gateDecision.Escalate || next.BaselineAccuracy != current.BaselineAccuracy {
		decision = Decision{
			Action: "commit",
			Reason: fmt.Sprintf("batch %d->%d, mix %s->%s, escalate=%v",
				current.BatchSize, next.BatchSize, current.Mix, newMix, gateDecision.Escalate),
		}
	}

	return Result{
		NextState: next,
		NextMode:  nextMode,
		Profile:   profile,
		Gate:      gateDecision,
		Decision:  decision,
		Metrics: Metrics{
			BatchDelta:   next.BatchSize - current.BatchSize,
			MixChanged:   newMix != current.Mix,
			Escalated:    gateDecision.Escalate,
			UpdateTimeMs: time.Since(start).Milliseconds(),
		},
	}
}

// withoutCurrent returns a view of history that excludes the record at
// the given iteration index, when it is the most recent entry.
func withoutCurrent(history *ledger.History, index int) *ledger.History {
	all := history.All()
	if n := len(all); n > 0 && all[n-1].Index == index {
		prior, err := ledger.NewHistoryFrom(all[:n-1])
		if err == nil {
			return prior
		}
	}
	return history
}

func baselineFor(cs state.ControllerState) float64 {
	if cs.BaselineAssumed {
		return -1 // calibrate substitutes its assumed baseline
	}
	return cs.BaselineAccuracy
}

// #endregion apply
