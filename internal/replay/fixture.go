package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// starting controller state plus the recorded iteration outcomes to
// feed back through the deciders.
type Fixture struct {
	Description     string                  `json:"description"`
	StartState      FixtureStartState       `json:"start_state"`
	Iterations      []FixtureIteration      `json:"iterations"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureStartState is the JSON-serializable initial controller state.
type FixtureStartState struct {
	Iteration        int     `json:"iteration"`
	BatchSize        int     `json:"batch_size"`
	ExplorePct       int     `json:"explore_pct"`
	ExploitPct       int     `json:"exploit_pct"`
	RefinePct        int     `json:"refine_pct"`
	BaselineAccuracy float64 `json:"baseline_accuracy"`
	BaselineAssumed  bool    `json:"baseline_assumed"`
	ExamplesSeen     int     `json:"examples_seen"`
}

// FixtureIteration mirrors ledger.IterationRecord with JSON tags.
type FixtureIteration struct {
	Index           int     `json:"index"`
	Mode            string  `json:"mode"`
	BatchSize       int     `json:"batch_size"`
	Accuracy        float64 `json:"accuracy"`
	ExamplesSeen    int     `json:"examples_seen"`
	SynthesisFailed bool    `json:"synthesis_failed,omitempty"`
}

// FixtureExpectedResult captures the expected control decision per
// iteration, used by the replay command to flag divergence.
type FixtureExpectedResult struct {
	Index     int    `json:"index"`
	Escalate  bool   `json:"escalate"`
	BatchSize int    `json:"batch_size"`
	Mix       string `json:"mix,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToControllerState converts a FixtureStartState to a domain state.
func (s *FixtureStartState) ToControllerState() state.ControllerState {
	cs := state.ControllerState{
		Iteration:              s.Iteration,
		BatchSize:              s.BatchSize,
		Mix:                    strategy.Mix{ExplorePct: s.ExplorePct, ExploitPct: s.ExploitPct, RefinePct: s.RefinePct},
		BaselineAccuracy:       s.BaselineAccuracy,
		BaselineAssumed:        s.BaselineAssumed,
		LastEscalatedIteration: -1,
		ExamplesSeen:           s.ExamplesSeen,
	}
	if cs.Mix.Sum() != 100 {
		// Recorded mixes may predate a config change; salvage the
		// proportions when possible, fall back to the default split.
		fixed, err := strategy.Renormalize(cs.Mix)
		if err != nil {
			fixed = strategy.DefaultMix()
		}
		cs.Mix = fixed
	}
	return cs
}

// ToRecord converts a FixtureIteration to a ledger record.
func (fi *FixtureIteration) ToRecord() ledger.IterationRecord {
	return ledger.IterationRecord{
		Index:               fi.Index,
		Mode:                ledger.Mode(fi.Mode),
		BatchSize:           fi.BatchSize,
		Accuracy:            fi.Accuracy,
		ExamplesSeen:        fi.ExamplesSeen,
		ProgressiveAccuracy: -1,
		SynthesisFailed:     fi.SynthesisFailed,
		CreatedAt:           time.Unix(0, 0).UTC(),
	}
}

// #endregion fixture-loader
