package state

import (
	"time"

	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region controller-state
// ControllerState is the controller's durable knob set. A new version
// is committed at each iteration boundary.
type ControllerState struct {
	Iteration              int          `json:"iteration"`
	BatchSize              int          `json:"batch_size"`
	Mix                    strategy.Mix `json:"mix"`
	BaselineAccuracy       float64      `json:"baseline_accuracy"`
	BaselineAssumed        bool         `json:"baseline_assumed"`
	LastEscalatedIteration int          `json:"last_escalated_iteration"`
	LastEscalatedAccuracy  float64      `json:"last_escalated_accuracy"`
	ExamplesSeen           int          `json:"examples_seen"`
	LearningsVersion       int          `json:"learnings_version"`
}

// InitialState returns the state a fresh run starts from.
func InitialState(batchSize int) ControllerState {
	return ControllerState{
		Iteration:              0,
		BatchSize:              batchSize,
		Mix:                    strategy.DefaultMix(),
		BaselineAccuracy:       0,
		BaselineAssumed:        true,
		LastEscalatedIteration: -1,
		ExamplesSeen:           0,
		LearningsVersion:       0,
	}
}

// #endregion controller-state

// #region state-record
// StateRecord is a versioned snapshot of ControllerState.
type StateRecord struct {
	VersionID string
	ParentID  string
	State     ControllerState
	CreatedAt time.Time
	Reason    string
}

// #endregion state-record
