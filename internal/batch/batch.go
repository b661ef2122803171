package batch

import (
	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region config

// Config holds bounds and evidence thresholds for batch size adjustment.
type Config struct {
	Min         int     // hard floor on batch size
	Max         int     // hard ceiling on batch size
	Step        int     // max adjustment per iteration absent unanimous evidence
	Window      int     // how many recent records to inspect
	MinEvidence int     // records at the current size needed before reacting
	HighBar     float64 // accuracy at or above this counts as "near 100%"
	LowBar      float64 // accuracy at or below this counts as "near 0%"
}

// DefaultConfig returns the standard [3,10] policy.
func DefaultConfig() Config {
	return Config{
		Min:         3,
		Max:         10,
		Step:        2,
		Window:      5,
		MinEvidence: 3,
		HighBar:     0.95,
		LowBar:      0.05,
	}
}

// #endregion config

// #region controller

// Controller adjusts the evaluation batch size from ledger trends.
// It fails soft: out-of-range inputs are clamped, never rejected.
type Controller struct {
	config Config
}

// NewController creates a controller with the given configuration.
func NewController(config Config) *Controller {
	return &Controller{config: config}
}

// Min returns the smallest batch size the controller will emit. Fresh
// runs start here.
func (c *Controller) Min() int {
	return c.config.Min
}

// #endregion controller

// #region next-size

// NextSize computes the batch size for the next iteration.
//
// Saturated signal (every recent batch at the current size near 100%) grows
// the size to regain discriminative power; a dead signal (near 0%) shrinks it
// to stop wasting evaluation budget. While actively exploring, the size holds
// steady so candidate comparisons stay apples-to-apples. A single step is
// bounded by Step unless the evidence is unanimous across the whole observed
// window, in which case the size may jump straight to the bound.
func (c *Controller) NextSize(current int, history *ledger.History, mode ledger.Mode) int {
	current = c.clamp(current)

	window := history.Tail(c.config.Window)
	atSize := make([]ledger.IterationRecord, 0, len(window))
	for _, rec := range window {
		if rec.BatchSize == current {
			atSize = append(atSize, rec)
		}
	}

	if len(atSize) >= c.config.MinEvidence {
		unanimous := len(atSize) == len(window)
		if allAtOrAbove(atSize, c.config.HighBar) {
			if unanimous {
				return c.config.Max
			}
			if mode == ledger.ModeExplore {
				// Mixed window mid-exploration: keep comparisons stable.
				return current
			}
			return c.clamp(current + c.config.Step)
		}
		if allAtOrBelow(atSize, c.config.LowBar) {
			if unanimous {
				return c.config.Min
			}
			if mode == ledger.ModeExplore {
				return current
			}
			return c.clamp(current - c.config.Step)
		}
	}

	return current
}

// #endregion next-size

// #region helpers

func (c *Controller) clamp(size int) int {
	if size < c.config.Min {
		return c.config.Min
	}
	if size > c.config.Max {
		return c.config.Max
	}
	return size
}

func allAtOrAbove(recs []ledger.IterationRecord, bar float64) bool {
	for _, r := range recs {
		if r.Accuracy < bar {
			return false
		}
	}
	return true
}

func allAtOrBelow(recs []ledger.IterationRecord, bar float64) bool {
	for _, r := range recs {
		if r.Accuracy > bar {
			return false
		}
	}
	return true
}

// #endregion helpers
