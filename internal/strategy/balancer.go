package strategy

import (
	"log"

	"github.com/adaptivelab/experiment-controller/internal/calibrate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region balancer

// Balancer computes the explore/exploit/refine split for the next iteration.
// An optional OutcomeMemory acts as an advisor: it can tilt the split toward
// the historically best mode but never decides on its own.
type Balancer struct {
	config  Config
	advisor *OutcomeMemory // nil = no advisor tilt
}

// NewBalancer creates a balancer. advisor may be nil.
func NewBalancer(config Config, advisor *OutcomeMemory) *Balancer {
	return &Balancer{config: config, advisor: advisor}
}

// #endregion balancer

// #region rebalance

// Rebalance produces the next mix from the calibrated profile, the current
// mix, and recent history. The returned mix always sums to 100 with every
// part within the configured floor and ceiling.
func (b *Balancer) Rebalance(profile calibrate.Profile, current Mix, history *ledger.History) Mix {
	target := b.target(profile)

	// Never react to a single regressed batch: when the latest iteration
	// dipped, raising explore weight requires the decline to repeat.
	// Policy-driven raises on a steady history pass through untouched.
	if target.ExplorePct > current.ExplorePct &&
		profile.Category != calibrate.CategorySaturated &&
		regressedOnce(history) && !degradedTwice(history) {
		target = holdExplore(current, target)
	}

	// A clear best candidate keeps a real refine share.
	if best, ok := history.Best(); ok && best.Accuracy > profile.BaselineAccuracy {
		if target.RefinePct < 10 {
			target = fromWeights(float64(target.ExplorePct), float64(target.ExploitPct), 10)
		}
	}

	if b.advisor != nil {
		target = b.tilt(target, profile.Difficulty)
	}

	return b.bound(target)
}

// target maps (difficulty, category) to the policy split.
func (b *Balancer) target(profile calibrate.Profile) Mix {
	switch profile.Difficulty {
	case calibrate.DifficultyEasy:
		// Headroom is assumed large: stay exploratory until saturated.
		if profile.Category == calibrate.CategorySaturated {
			return Mix{ExplorePct: 20, ExploitPct: 40, RefinePct: 40}
		}
		return Mix{ExplorePct: 60, ExploitPct: 20, RefinePct: 20}

	case calibrate.DifficultyModerate:
		if profile.RelativeImprovement >= 0.20 {
			return Mix{ExplorePct: 20, ExploitPct: 50, RefinePct: 30}
		}
		return Mix{ExplorePct: 50, ExploitPct: 25, RefinePct: 25}

	case calibrate.DifficultyHard:
		if profile.RelativeImprovement >= 0.10 {
			return Mix{ExplorePct: 15, ExploitPct: 45, RefinePct: 40}
		}
		return Mix{ExplorePct: 45, ExploitPct: 25, RefinePct: 30}

	default: // very hard
		if profile.ShouldExploit || profile.Category == calibrate.CategoryMeaningfulImprovement {
			// Any durable improvement is valuable: refine it aggressively.
			return Mix{ExplorePct: 10, ExploitPct: 30, RefinePct: 60}
		}
		return Mix{ExplorePct: 35, ExploitPct: 20, RefinePct: 45}
	}
}

// #endregion rebalance

// #region guards

// regressedOnce reports whether the latest iteration scored below its
// predecessor.
func regressedOnce(history *ledger.History) bool {
	tail := history.Tail(2)
	if len(tail) < 2 {
		return false
	}
	return tail[1].Accuracy < tail[0].Accuracy
}

// degradedTwice reports whether the last two iterations were each worse than
// their predecessor.
func degradedTwice(history *ledger.History) bool {
	tail := history.Tail(3)
	if len(tail) < 3 {
		return false
	}
	return tail[1].Accuracy < tail[0].Accuracy && tail[2].Accuracy < tail[1].Accuracy
}

// holdExplore keeps the current explore weight and redistributes the target's
// intended raise across exploit and refine proportionally.
func holdExplore(current, target Mix) Mix {
	spare := target.ExploitPct + target.RefinePct
	if spare <= 0 {
		return current
	}
	rest := float64(100 - current.ExplorePct)
	return fromWeights(
		float64(current.ExplorePct),
		rest*float64(target.ExploitPct)/float64(spare),
		rest*float64(target.RefinePct)/float64(spare),
	)
}

// #endregion guards

// #region advisor-tilt

// tilt shifts AdvisorTiltPct toward the mode with the best decay-weighted
// outcome for this difficulty. Advisor failures are logged and ignored.
func (b *Balancer) tilt(m Mix, difficulty calibrate.Difficulty) Mix {
	best, _, err := b.advisor.BestMode(difficulty)
	if err != nil {
		log.Printf("[MIX] advisor unavailable: %v", err)
		return m
	}
	if best == "" {
		return m
	}

	shift := b.config.AdvisorTiltPct
	e, x, r := m.ExplorePct, m.ExploitPct, m.RefinePct
	switch best {
	case ledger.ModeExplore:
		e += shift
	case ledger.ModeExploit:
		x += shift
	case ledger.ModeRefine:
		r += shift
	}
	return fromWeights(float64(e), float64(x), float64(r))
}

// #endregion advisor-tilt

// #region bound

// bound clamps every part into [floor, ceil] and restores the sum to 100.
func (b *Balancer) bound(m Mix) Mix {
	parts := []int{m.ExplorePct, m.ExploitPct, m.RefinePct}
	for i, p := range parts {
		if p < b.config.FloorPct {
			parts[i] = b.config.FloorPct
		}
		if p > b.config.CeilPct {
			parts[i] = b.config.CeilPct
		}
	}
	out := fromWeights(float64(parts[0]), float64(parts[1]), float64(parts[2]))

	// Largest-remainder rounding can nudge a part below the floor again;
	// push it back up at the expense of the largest part.
	for {
		ps := []*int{&out.ExplorePct, &out.ExploitPct, &out.RefinePct}
		lifted := false
		for _, p := range ps {
			if *p < b.config.FloorPct {
				largest := ps[0]
				for _, q := range ps[1:] {
					if *q > *largest {
						largest = q
					}
				}
				*largest -= b.config.FloorPct - *p
				*p = b.config.FloorPct
				lifted = true
			}
		}
		if !lifted {
			return out
		}
	}
}

// #endregion bound
