package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/dataset"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/logging"
	"github.com/adaptivelab/experiment-controller/internal/oracle"
	"github.com/adaptivelab/experiment-controller/internal/signals"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
	"github.com/adaptivelab/experiment-controller/internal/update"
)

// #endregion

// #region orchestrator-struct

// Orchestrator drives the closed loop: prepare a batch, ask the oracle
// for a candidate, score it, update the controls, persist, repeat. It
// is single-threaded; only batch evaluation fans out, and that joins
// before scoring completes.
type Orchestrator struct {
	config Config
	deps   Deps

	runID      string
	phase      Phase
	history    *ledger.History
	current    state.StateRecord
	lastRecord *ledger.IterationRecord
	iterations int
}

// #endregion

// #region constructor

// New creates an orchestrator, creating or resuming durable state. A
// database with an active state version resumes where it left off.
func New(config Config, deps Deps) (*Orchestrator, error) {
	current, err := deps.States.GetCurrent()
	if errors.Is(err, state.ErrNoState) {
		current, err = deps.States.CreateInitialState(state.InitialState(deps.Deciders.Batch.Min()))
		if err != nil {
			return nil, fmt.Errorf("create initial state: %w", err)
		}
	} else if err != nil {
		// A store that has state but cannot serve it must not be
		// re-initialized; that would abandon the run's position.
		return nil, fmt.Errorf("resume state: %w", err)
	}

	history, err := deps.Archive.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	deps.Sampler.Restore(current.State.ExamplesSeen)

	o := &Orchestrator{
		config:  config,
		deps:    deps,
		runID:   uuid.New().String(),
		phase:   PhaseIdle,
		history: history,
		current: current,
	}
	if last, ok := history.Last(); ok {
		o.lastRecord = &last
	}
	return o, nil
}

// Phase reports the current state machine phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// State returns the current controller state.
func (o *Orchestrator) State() state.ControllerState {
	return o.current.State
}

// #endregion

// #region run

// Run executes iterations until the context is cancelled or the
// configured iteration limit is reached. Cancellation is only observed
// at the Idle boundary: an iteration in flight always completes and
// persists.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("[ORCH] cancelled at idle after %d iterations", o.iterations)
			return nil
		}
		if o.config.MaxIterations > 0 && o.iterations >= o.config.MaxIterations {
			log.Printf("[ORCH] iteration limit %d reached", o.config.MaxIterations)
			return nil
		}
		if err := o.RunIteration(ctx); err != nil {
			return err
		}
		o.iterations++
	}
}

// #endregion

// #region run-iteration

// RunIteration executes exactly one pass of the state machine:
// Idle -> Preparing -> AwaitingOracleResult -> Scoring -> Updating -> Idle.
func (o *Orchestrator) RunIteration(ctx context.Context) error {
	// The iteration always runs to completion; cancellation is checked
	// at Idle only. Timeouts still bound every oracle call.
	iterCtx := context.WithoutCancel(ctx)
	cs := o.current.State

	o.phase = PhasePreparing
	mode := strategy.SelectMode(cs.Mix, cs.Iteration, o.deps.Deciders.Mode)
	batchExamples := o.deps.Sampler.Sample(cs.BatchSize)
	sc := o.buildContext(mode)
	log.Printf("[ORCH] iteration %d: mode=%s batch=%d mix=%s",
		cs.Iteration, mode, len(batchExamples), cs.Mix)

	o.phase = PhaseAwaitingOracle
	synthCtx, cancel := context.WithTimeout(iterCtx, o.config.SynthesisTimeout)
	source, err := o.deps.Synthesizer.Synthesize(synthCtx, mode, sc)
	cancel()
	var results []signals.ExampleResult
	synthFailed := err != nil
	if synthFailed {
		// Zero-scored record; every sampled example counts as an error
		// so the consolidator sees the failed iteration. The loop continues.
		log.Printf("[ORCH] iteration %d: synthesis failed, zero-scoring: %v", cs.Iteration, err)
		source = ""
		results = synthesisFailureResults(batchExamples, err)
	} else {
		o.phase = PhaseScoring
		results = o.evaluateBatch(iterCtx, source, batchExamples)
	}

	rec := o.buildRecord(cs, mode, len(batchExamples), results)
	rec.SynthesisFailed = synthFailed

	o.phase = PhaseUpdating
	if err := o.history.Append(rec); err != nil {
		return fmt.Errorf("append iteration %d: %w", rec.Index, err)
	}
	res := update.Apply(cs, rec, o.history, o.deps.Deciders)

	if res.Gate.Escalate && source != "" {
		rec.ProgressiveAccuracy = o.runProgressive(iterCtx, source)
		rec.Escalated = true
		log.Printf("[ORCH] iteration %d: escalated, progressive accuracy %.2f (%s)",
			cs.Iteration, rec.ProgressiveAccuracy, res.Gate.Reason)
	}

	next := o.consolidate(res.NextState, rec, results)

	if o.deps.Advisor != nil {
		if err := o.deps.Advisor.RecordOutcome(o.runID, rec, res.Profile); err != nil {
			log.Printf("[ORCH] advisor record failed: %v", err)
		}
	}

	if ev := o.deps.Harness.Run(cs, next); !ev.Passed {
		return fmt.Errorf("iteration %d: %s", cs.Iteration, ev.Reason)
	}

	// Persist everything at the Idle boundary.
	stateRec, err := o.deps.States.Commit(next, res.Decision.Reason)
	if err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	if err := o.deps.Archive.Append(archive.Entry{Record: rec, Source: source}); err != nil {
		return fmt.Errorf("archive iteration: %w", err)
	}
	o.audit(stateRec.VersionID, cs, next, rec, res)

	o.current = stateRec
	o.lastRecord = &rec
	o.phase = PhaseIdle

	log.Printf("[ORCH] iteration %d: accuracy=%.2f -> batch=%d mix=%s escalate=%v",
		rec.Index, rec.Accuracy, next.BatchSize, next.Mix, rec.Escalated)
	return nil
}

// #endregion

// #region preparing

// buildContext gathers what the synthesizer is conditioned on. Explore
// mode deliberately withholds the best prior candidate.
func (o *Orchestrator) buildContext(mode ledger.Mode) oracle.Context {
	sc := oracle.Context{}
	if _, blob, err := o.deps.Archive.LatestLearnings(); err == nil {
		sc.Learnings = blob
	}
	if mode != ledger.ModeExplore {
		if best, err := o.deps.Archive.BestSource(); err == nil {
			sc.BestSource = best
		}
	}
	for _, ex := range dataset.SelectExemplars(o.deps.Sampler.Seen(), o.config.ExemplarCount) {
		sc.Exemplars = append(sc.Exemplars, oracle.Exemplar{Input: ex.Input, Expected: ex.Expected})
	}
	if o.lastRecord != nil {
		sc.RecentErrors = o.lastRecord.Errors
	}
	return sc
}

// #endregion

// #region updating

func (o *Orchestrator) buildRecord(cs state.ControllerState, mode ledger.Mode, batchSize int, results []signals.ExampleResult) ledger.IterationRecord {
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	accuracy := 0.0
	if len(results) > 0 {
		accuracy = float64(correct) / float64(len(results))
	}
	return ledger.IterationRecord{
		Index:               cs.Iteration,
		Mode:                mode,
		BatchSize:           batchSize,
		Accuracy:            accuracy,
		ExamplesSeen:        o.deps.Sampler.SeenCount(),
		Errors:              signals.ErrorExemplars(results, ledger.MaxErrorExemplars),
		ProgressiveAccuracy: -1,
		CreatedAt:           time.Now().UTC(),
	}
}

// consolidate merges this iteration's insights into the learnings log
// and bumps the version when the log changed.
func (o *Orchestrator) consolidate(next state.ControllerState, rec ledger.IterationRecord, results []signals.ExampleResult) state.ControllerState {
	insights := o.deps.Producer.Produce(rec, o.lastRecord, results)
	_, existing, err := o.deps.Archive.LatestLearnings()
	if err != nil {
		log.Printf("[MEM] read learnings failed: %v", err)
		return next
	}
	blob := o.deps.Consolidator.Consolidate(existing, insights, 0)
	if blob == existing {
		return next
	}
	version := next.LearningsVersion + 1
	if err := o.deps.Archive.SaveLearnings(version, blob); err != nil {
		log.Printf("[MEM] save learnings failed: %v", err)
		return next
	}
	next.LearningsVersion = version
	return next
}

// audit writes one decision row per control component.
func (o *Orchestrator) audit(versionID string, prev, next state.ControllerState, rec ledger.IterationRecord, res update.Result) {
	if o.deps.AuditDB == nil {
		return
	}
	details, _ := json.Marshal(logging.DecisionRecord{
		Iteration:   rec.Index,
		Accuracy:    rec.Accuracy,
		Baseline:    next.BaselineAccuracy,
		Difficulty:  string(res.Profile.Difficulty),
		Category:    string(res.Profile.Category),
		BatchBefore: prev.BatchSize,
		BatchAfter:  next.BatchSize,
		MixBefore:   prev.Mix,
		MixAfter:    next.Mix,
		Escalated:   rec.Escalated,
		GateReason:  res.Gate.Reason,
	})
	rows := []struct {
		component string
		decision  string
		reason    string
	}{
		{"gate", boolWord(res.Gate.Escalate, "escalate", "hold"), res.Gate.Reason},
		{"strategy", boolWord(res.Metrics.MixChanged, "rebalance", "hold"), res.Decision.Reason},
		{"batch", boolWord(res.Metrics.BatchDelta != 0, "resize", "hold"), res.Decision.Reason},
	}
	for _, row := range rows {
		if err := logging.LogDecision(o.deps.AuditDB, logging.AuditEntry{
			VersionID:   versionID,
			Iteration:   rec.Index,
			Component:   row.component,
			Decision:    row.decision,
			Reason:      row.reason,
			DetailsJSON: string(details),
		}); err != nil {
			log.Printf("[ORCH] audit write failed: %v", err)
		}
	}
}

func boolWord(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

// #endregion
