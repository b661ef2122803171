package ledger

import "time"

// #region mode

// Mode identifies the generation strategy used for an iteration.
type Mode string

const (
	ModeExplore Mode = "explore"
	ModeExploit Mode = "exploit"
	ModeRefine  Mode = "refine"
)

// #endregion mode

// #region error-exemplar

// ErrorExemplar captures a single failed example for later learning consolidation.
type ErrorExemplar struct {
	Input    string
	Expected string
	Actual   string
}

// MaxErrorExemplars bounds the exemplar list carried on each record.
const MaxErrorExemplars = 3

// #endregion error-exemplar

// #region iteration-record

// IterationRecord is the immutable outcome of one completed iteration.
// Created once by the orchestrator, never mutated after Append.
type IterationRecord struct {
	Index               int
	Mode                Mode
	BatchSize           int
	Accuracy            float64
	ExamplesSeen        int
	Errors              []ErrorExemplar
	ProgressiveAccuracy float64 // -1 when progressive testing did not run
	Escalated           bool
	SynthesisFailed     bool // no candidate was produced; no example ran
	CreatedAt           time.Time
}

// #endregion iteration-record
