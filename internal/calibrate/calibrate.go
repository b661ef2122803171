package calibrate

import (
	"math"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region difficulty

// Difficulty classifies a dataset by its baseline accuracy.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// DifficultyFor thresholds a baseline accuracy into a difficulty band.
func DifficultyFor(baseline float64) Difficulty {
	switch {
	case baseline >= 0.80:
		return DifficultyEasy
	case baseline >= 0.50:
		return DifficultyModerate
	case baseline >= 0.20:
		return DifficultyHard
	default:
		return DifficultyVeryHard
	}
}

// #endregion difficulty

// #region category

// Category summarizes current standing relative to the baseline.
type Category string

const (
	CategorySaturated             Category = "saturated"
	CategoryStrongImprovement     Category = "strong_improvement"
	CategoryMeaningfulImprovement Category = "meaningful_improvement"
	CategoryAtBaseline            Category = "at_baseline"
	CategoryBelowBaseline         Category = "below_baseline"
)

// #endregion category

// #region profile

// Profile is the derived calibration output, recomputed every iteration.
// It is never persisted; the ledger is the source of truth.
type Profile struct {
	BaselineAccuracy    float64
	BaselineAssumed     bool // true when no baseline was supplied
	Difficulty          Difficulty
	Category            Category
	LatestAccuracy      float64
	RelativeImprovement float64 // latest accuracy - baseline, in points
	RelativePct         float64 // improvement as percent of baseline
	ShouldExploit       bool
}

// #endregion profile

// #region bars

// saturationBar is the accuracy that counts as "can't do much better" per band.
// Easy datasets get a deliberately strict bar because headroom is assumed large.
func saturationBar(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return 0.95
	case DifficultyModerate:
		return 0.92
	default:
		return 0.90
	}
}

// strongBar is the relative-improvement margin (in points) that counts as
// a strong result for the band.
func strongBar(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return 0.15
	case DifficultyModerate:
		return 0.20
	case DifficultyHard:
		return 0.10
	default:
		return 0.10
	}
}

// exploitBar is the margin that justifies shifting toward exploitation.
// For very hard datasets any positive improvement is meaningful.
func exploitBar(d Difficulty) float64 {
	if d == DifficultyVeryHard {
		return 0.0
	}
	return strongBar(d) / 2
}

// noiseBand treats tiny deltas around the baseline as "at baseline".
const noiseBand = 0.02

// assumedBaseline stands in when no baseline has been established yet.
// The dataset is treated as moderate until a real baseline arrives.
const assumedBaseline = 0.50

// #endregion bars

// #region calibrate

// Calibrate derives the current profile from the baseline accuracy and the
// performance history. Pass a negative baseline when none is established;
// the profile then assumes a moderate dataset rather than failing.
// Pure and deterministic: equal inputs always produce equal profiles.
func Calibrate(baseline float64, history *ledger.History) Profile {
	p := Profile{BaselineAccuracy: baseline}
	if baseline < 0 || math.IsNaN(baseline) {
		p.BaselineAccuracy = assumedBaseline
		p.BaselineAssumed = true
	}
	p.Difficulty = DifficultyFor(p.BaselineAccuracy)

	last, ok := history.Last()
	if !ok {
		p.Category = CategoryAtBaseline
		return p
	}

	p.LatestAccuracy = last.Accuracy
	p.RelativeImprovement = last.Accuracy - p.BaselineAccuracy
	if p.BaselineAccuracy > 0 {
		p.RelativePct = p.RelativeImprovement / p.BaselineAccuracy * 100
	}

	p.Category = categorize(p.Difficulty, history.Tail(2), p.RelativeImprovement)
	p.ShouldExploit = shouldExploit(p.Difficulty, p.BaselineAccuracy, history)
	return p
}

func categorize(d Difficulty, tail []ledger.IterationRecord, rel float64) Category {
	if sustainedAtOrAbove(tail, saturationBar(d)) {
		return CategorySaturated
	}
	switch {
	case rel >= strongBar(d):
		return CategoryStrongImprovement
	case d == DifficultyVeryHard && rel > 0:
		return CategoryMeaningfulImprovement
	case rel >= strongBar(d)/2:
		return CategoryMeaningfulImprovement
	case rel >= -noiseBand:
		return CategoryAtBaseline
	default:
		return CategoryBelowBaseline
	}
}

// #endregion calibrate

// #region should-exploit

// shouldExploit requires the improvement to hold for two consecutive recent
// iterations so a single lucky batch cannot flip the decision. With only one
// iteration on record the evidence must be decisive instead: at least twice
// the band's strong margin.
func shouldExploit(d Difficulty, baseline float64, history *ledger.History) bool {
	bar := exploitBar(d)
	tail := history.Tail(2)
	switch len(tail) {
	case 0:
		return false
	case 1:
		rel := tail[0].Accuracy - baseline
		return rel >= 2*strongBar(d)
	default:
		for _, rec := range tail {
			if rec.Accuracy-baseline <= bar {
				return false
			}
		}
		return true
	}
}

func sustainedAtOrAbove(tail []ledger.IterationRecord, bar float64) bool {
	if len(tail) < 2 {
		return false
	}
	for _, rec := range tail {
		if rec.Accuracy < bar {
			return false
		}
	}
	return true
}

// #endregion should-exploit
