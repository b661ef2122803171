package gate

import (
	"fmt"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region gate

// Gate decides whether the current best candidate earns an expanded
// re-evaluation against the historical sample. The gate is deliberately
// conservative: skipping a worthwhile deep test is acceptable, burning an
// expensive escalation on noise is the failure mode to avoid.
type Gate struct {
	config Config
}

// NewGate creates a gate with the given configuration.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// #endregion gate

// #region should-escalate

// ShouldEscalate weighs the current result against the recent best and the
// baseline, never against an absolute cutoff. history holds the records of
// prior iterations (not including the current result); last is the most
// recent escalation, if any.
func (g *Gate) ShouldEscalate(result Result, baseline float64, history *ledger.History, last Escalation) Decision {
	// Redundancy check first: an escalation that already ran recently on a
	// comparable result makes a rerun pure waste.
	if last.Valid &&
		result.Iteration-last.Iteration <= g.config.RecentWindow &&
		abs(result.Accuracy-last.Accuracy) <= g.config.ComparableWithin {
		return Decision{
			Escalate: false,
			Reason: fmt.Sprintf("escalated at iteration %d on comparable accuracy %.2f",
				last.Iteration, last.Accuracy),
		}
	}

	bar := baseline
	if best := bestRecent(history, g.config.HistoryWindow); best > bar {
		bar = best
	}

	required := g.requiredMargin(result)
	margin := result.Accuracy - bar

	if margin < required {
		return Decision{
			Escalate: false,
			Reason: fmt.Sprintf("margin %.3f over bar %.2f below required %.3f (batch %d)",
				margin, bar, required, result.BatchSize),
		}
	}

	return Decision{
		Escalate: true,
		Reason: fmt.Sprintf("accuracy %.2f clears bar %.2f by %.3f (required %.3f)",
			result.Accuracy, bar, margin, required),
	}
}

// requiredMargin scales the evidence bar with batch size noise and run age.
func (g *Gate) requiredMargin(result Result) float64 {
	var required float64
	switch {
	case result.BatchSize <= g.config.SmallBatch:
		required = g.config.SmallBatchMargin
	case result.BatchSize >= g.config.LargeBatch:
		required = g.config.LargeBatchMargin
	default:
		required = g.config.MediumBatchMargin
	}
	// Early iterations are still calibrating what "good" means here.
	if result.Iteration <= g.config.EarlyIterations {
		required += g.config.EarlyPenalty
	}
	return required
}

// #endregion should-escalate

// #region helpers

func bestRecent(history *ledger.History, window int) float64 {
	best := 0.0
	for _, rec := range history.Tail(window) {
		if rec.Accuracy > best {
			best = rec.Accuracy
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// #endregion helpers
