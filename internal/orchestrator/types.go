package orchestrator

// #region imports
import (
	"database/sql"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/dataset"
	"github.com/adaptivelab/experiment-controller/internal/eval"
	"github.com/adaptivelab/experiment-controller/internal/memory"
	"github.com/adaptivelab/experiment-controller/internal/oracle"
	"github.com/adaptivelab/experiment-controller/internal/signals"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
	"github.com/adaptivelab/experiment-controller/internal/update"
)

// #endregion

// #region phase

// Phase is the orchestrator's position in the iteration state machine.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhasePreparing      Phase = "preparing"
	PhaseAwaitingOracle Phase = "awaiting_oracle_result"
	PhaseScoring        Phase = "scoring"
	PhaseUpdating       Phase = "updating"
)

// #endregion

// #region config

// Config holds the orchestrator's timing and fan-out limits.
type Config struct {
	// SynthesisTimeout bounds one synthesis call.
	SynthesisTimeout time.Duration
	// ExampleTimeout bounds one candidate execution.
	ExampleTimeout time.Duration
	// MaxWorkers caps concurrent executions; 0 means one per example.
	MaxWorkers int
	// ExemplarCount is how many representative examples condition the
	// synthesizer.
	ExemplarCount int
	// MaxIterations stops the run loop after this many iterations;
	// 0 means run until cancelled.
	MaxIterations int
}

// DefaultConfig returns the standard orchestrator limits.
func DefaultConfig() Config {
	return Config{
		SynthesisTimeout: 120 * time.Second,
		ExampleTimeout:   30 * time.Second,
		MaxWorkers:       0,
		ExemplarCount:    3,
		MaxIterations:    0,
	}
}

// #endregion

// #region deps

// Deps wires the orchestrator to its collaborators. Judge and Advisor
// and AuditDB are optional; everything else is required.
type Deps struct {
	Synthesizer oracle.Synthesizer
	Executor    oracle.Executor
	Judge       oracle.Judge

	Sampler *dataset.Sampler
	States  *state.Store
	Archive *archive.Store
	Advisor *strategy.OutcomeMemory

	Deciders     update.Deciders
	Consolidator *memory.Consolidator
	Producer     *signals.Producer
	Harness      *eval.Harness

	AuditDB *sql.DB
}

// #endregion
