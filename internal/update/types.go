package update

import (
	"github.com/adaptivelab/experiment-controller/internal/batch"
	"github.com/adaptivelab/experiment-controller/internal/calibrate"
	"github.com/adaptivelab/experiment-controller/internal/gate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region deciders
// Deciders bundles the control components Apply composes.
type Deciders struct {
	Batch    *batch.Controller
	Strategy *strategy.Balancer
	Gate     *gate.Gate
	Mode     strategy.Config
}

// #endregion deciders

// #region decision
// Decision records what the update cycle decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region metrics
// Metrics captures telemetry from one update cycle.
type Metrics struct {
	BatchDelta   int
	MixChanged   bool
	Escalated    bool
	UpdateTimeMs int64
}

// #endregion metrics

// #region result
// Result bundles everything returned by Apply().
type Result struct {
	NextState state.ControllerState
	NextMode  ledger.Mode
	Profile   calibrate.Profile
	Gate      gate.Decision
	Decision  Decision
	Metrics   Metrics
}

// #endregion result
