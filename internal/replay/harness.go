package replay

import (
	"fmt"

	"github.com/adaptivelab/experiment-controller/internal/batch"
	"github.com/adaptivelab/experiment-controller/internal/eval"
	"github.com/adaptivelab/experiment-controller/internal/gate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
	"github.com/adaptivelab/experiment-controller/internal/update"
)

// #region types

// Config bundles the decider configs for a replay run.
type Config struct {
	Batch    batch.Config
	Strategy strategy.Config
	Gate     gate.Config
	Eval     eval.Config
}

// DefaultConfig returns the production decider configs.
func DefaultConfig() Config {
	return Config{
		Batch:    batch.DefaultConfig(),
		Strategy: strategy.DefaultConfig(),
		Gate:     gate.DefaultConfig(),
		Eval:     eval.DefaultConfig(),
	}
}

// Result captures the control decisions replaying one iteration.
type Result struct {
	Index     int
	Accuracy  float64
	Escalate  bool
	Reason    string
	BatchSize int
	Mix       strategy.Mix
	EvalOK    bool
}

// Summary aggregates a replay run.
type Summary struct {
	Iterations  int
	Escalations int
	EvalFails   int
	FinalState  state.ControllerState
}

// #endregion types

// #region replay

// Replay feeds recorded iteration outcomes back through the pure
// deciders, producing the control decisions each one would trigger.
// Entirely in-memory; the decision path is identical to the live loop
// because both share update.Apply.
func Replay(start state.ControllerState, iterations []FixtureIteration, config Config) ([]Result, Summary, error) {
	deciders := update.Deciders{
		Batch:    batch.NewController(config.Batch),
		Strategy: strategy.NewBalancer(config.Strategy, nil),
		Gate:     gate.NewGate(config.Gate),
		Mode:     config.Strategy,
	}
	harness := eval.NewHarness(config.Eval)

	current := start
	history := &ledger.History{}
	results := make([]Result, 0, len(iterations))
	summary := Summary{}

	for _, fi := range iterations {
		rec := fi.ToRecord()
		if err := history.Append(rec); err != nil {
			return nil, Summary{}, fmt.Errorf("iteration %d: %w", rec.Index, err)
		}

		res := update.Apply(current, rec, history, deciders)
		ev := harness.Run(current, res.NextState)

		results = append(results, Result{
			Index:     rec.Index,
			Accuracy:  rec.Accuracy,
			Escalate:  res.Gate.Escalate,
			Reason:    res.Gate.Reason,
			BatchSize: res.NextState.BatchSize,
			Mix:       res.NextState.Mix,
			EvalOK:    ev.Passed,
		})
		summary.Iterations++
		if res.Gate.Escalate {
			summary.Escalations++
		}
		if !ev.Passed {
			summary.EvalFails++
		}
		current = res.NextState
	}

	summary.FinalState = current
	return results, summary, nil
}

// #endregion replay
