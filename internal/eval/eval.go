package eval

import (
	"fmt"

	"github.com/adaptivelab/experiment-controller/internal/state"
)

// #region harness
// Harness runs lightweight post-update validation on controller state.
// A failure here means a decider produced controls outside its contract;
// the orchestrator refuses to commit such a state.
type Harness struct {
	config Config
}

// NewHarness creates an eval harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run validates the next state against the previous one. Returns
// pass/fail with per-check metrics.
func (h *Harness) Run(prev, next state.ControllerState) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	check := func(name string, value float64, ok bool, format string, args ...interface{}) {
		metrics = append(metrics, Metric{Name: name, Value: value, Pass: ok})
		if !ok {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf(format, args...))
		}
	}

	// 1. Mix parts sum to exactly 100.
	sum := next.Mix.Sum()
	check("mix_sum", float64(sum), sum == 100, "mix sum %d != 100", sum)

	// 2. Every mix part within floor/ceiling.
	for _, part := range []struct {
		name string
		pct  int
	}{
		{"mix_explore", next.Mix.ExplorePct},
		{"mix_exploit", next.Mix.ExploitPct},
		{"mix_refine", next.Mix.RefinePct},
	} {
		ok := part.pct >= h.config.MixFloorPct && part.pct <= h.config.MixCeilPct
		check(part.name, float64(part.pct), ok,
			"%s %d outside [%d,%d]", part.name, part.pct, h.config.MixFloorPct, h.config.MixCeilPct)
	}

	// 3. Batch size in bounds.
	check("batch_size", float64(next.BatchSize),
		next.BatchSize >= h.config.MinBatchSize && next.BatchSize <= h.config.MaxBatchSize,
		"batch size %d outside [%d,%d]", next.BatchSize, h.config.MinBatchSize, h.config.MaxBatchSize)

	// 4. Iteration counter strictly advances.
	check("iteration", float64(next.Iteration), next.Iteration > prev.Iteration,
		"iteration %d did not advance past %d", next.Iteration, prev.Iteration)

	// 5. Seen-example counter never shrinks.
	check("examples_seen", float64(next.ExamplesSeen), next.ExamplesSeen >= prev.ExamplesSeen,
		"examples seen %d < previous %d", next.ExamplesSeen, prev.ExamplesSeen)

	// 6. Baseline stays a probability once established.
	if !next.BaselineAssumed {
		check("baseline", next.BaselineAccuracy,
			next.BaselineAccuracy >= 0 && next.BaselineAccuracy <= 1,
			"baseline %.4f outside [0,1]", next.BaselineAccuracy)
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{Passed: passed, Metrics: metrics, Reason: reason}
}

// #endregion harness
