package strategy

import (
	"errors"
	"fmt"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region errors

// ErrInvalidMix is returned when a mix cannot be repaired into a valid split.
var ErrInvalidMix = errors.New("invalid strategy mix")

// #endregion errors

// #region mix

// Mix is the percentage split across generation strategies for one iteration.
// A valid mix sums to exactly 100 with every part within the policy floor
// and ceiling. Mixes are replaced wholesale, never partially mutated.
type Mix struct {
	ExplorePct int
	ExploitPct int
	RefinePct  int
}

// DefaultMix is the opening split before any history exists.
func DefaultMix() Mix {
	return Mix{ExplorePct: 60, ExploitPct: 20, RefinePct: 20}
}

// Sum returns the total of the three parts.
func (m Mix) Sum() int {
	return m.ExplorePct + m.ExploitPct + m.RefinePct
}

func (m Mix) String() string {
	return fmt.Sprintf("explore=%d exploit=%d refine=%d", m.ExplorePct, m.ExploitPct, m.RefinePct)
}

// Validate checks the mix invariant against the given config.
func (m Mix) Validate(config Config) error {
	if m.Sum() != 100 {
		return fmt.Errorf("%w: parts sum to %d", ErrInvalidMix, m.Sum())
	}
	for _, p := range []int{m.ExplorePct, m.ExploitPct, m.RefinePct} {
		if p < config.FloorPct || p > config.CeilPct {
			return fmt.Errorf("%w: part %d outside [%d,%d]", ErrInvalidMix, p, config.FloorPct, config.CeilPct)
		}
	}
	return nil
}

// #endregion mix

// #region renormalize

// Renormalize repairs a mix whose parts do not sum to 100, e.g. one proposed
// by an external advisor. Parts are scaled proportionally. Negative parts or
// an all-zero mix are unrepairable and return ErrInvalidMix: silently
// inventing a split would mask the advisor bug.
func Renormalize(m Mix) (Mix, error) {
	if m.ExplorePct < 0 || m.ExploitPct < 0 || m.RefinePct < 0 {
		return Mix{}, fmt.Errorf("%w: negative part in %s", ErrInvalidMix, m)
	}
	sum := m.Sum()
	if sum == 0 {
		return Mix{}, fmt.Errorf("%w: all parts zero", ErrInvalidMix)
	}
	if sum == 100 {
		return m, nil
	}
	return fromWeights(float64(m.ExplorePct), float64(m.ExploitPct), float64(m.RefinePct)), nil
}

// fromWeights converts arbitrary non-negative weights into a mix summing to
// exactly 100 using largest-remainder rounding.
func fromWeights(explore, exploit, refine float64) Mix {
	total := explore + exploit + refine
	raw := []float64{explore / total * 100, exploit / total * 100, refine / total * 100}
	parts := make([]int, 3)
	sum := 0
	for i, r := range raw {
		parts[i] = int(r)
		sum += parts[i]
	}
	// Distribute the rounding shortfall to the largest remainders.
	for sum < 100 {
		bestIdx := 0
		bestRem := -1.0
		for i, r := range raw {
			rem := r - float64(parts[i])
			if rem > bestRem {
				bestRem = rem
				bestIdx = i
			}
		}
		parts[bestIdx]++
		raw[bestIdx] = float64(parts[bestIdx])
		sum++
	}
	return Mix{ExplorePct: parts[0], ExploitPct: parts[1], RefinePct: parts[2]}
}

// #endregion renormalize

// #region config

// Config holds policy bounds for the balancer.
type Config struct {
	FloorPct        int // no mode drops below this unless pinned
	CeilPct         int
	DiversityPeriod int // force an explore iteration this often
	AdvisorTiltPct  int // weight moved toward the advisor's best mode
}

// DefaultConfig returns the standard policy bounds.
func DefaultConfig() Config {
	return Config{
		FloorPct:        5,
		CeilPct:         90,
		DiversityPeriod: 5,
		AdvisorTiltPct:  5,
	}
}

// #endregion config

// #region select-mode

// SelectMode picks the single mode to run this iteration from the mix.
// Deterministic: the heaviest mode wins, with a periodic explore iteration
// injected to avoid local optima. Ties break explore > exploit > refine.
func SelectMode(m Mix, iteration int, config Config) ledger.Mode {
	if config.DiversityPeriod > 0 && iteration > 0 && iteration%config.DiversityPeriod == 0 {
		return ledger.ModeExplore
	}
	best := ledger.ModeExplore
	bestPct := m.ExplorePct
	if m.ExploitPct > bestPct {
		best = ledger.ModeExploit
		bestPct = m.ExploitPct
	}
	if m.RefinePct > bestPct {
		best = ledger.ModeRefine
	}
	return best
}

// #endregion select-mode
