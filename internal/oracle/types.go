package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region errors

// ErrSynthesis means the oracle could not produce a usable candidate.
// The iteration proceeds with a zero-scored record; there is no retry.
var ErrSynthesis = errors.New("synthesis failure")

// ErrExecution means a candidate raised, hung, or returned malformed output
// for a specific example. It counts as an incorrect result for that example
// only.
var ErrExecution = errors.New("execution error")

// #endregion errors

// #region context

// Exemplar is a dataset example shown to the synthesizer for conditioning.
type Exemplar struct {
	Input    string
	Expected string
}

// Context aggregates everything the synthesizer is conditioned on.
type Context struct {
	Learnings    string
	Exemplars    []Exemplar
	BestSource   string // prior best candidate, used by refine/exploit modes
	RecentErrors []ledger.ErrorExemplar
}

// #endregion context

// #region interfaces

// Synthesizer produces a candidate solution program for the given mode.
type Synthesizer interface {
	Synthesize(ctx context.Context, mode ledger.Mode, sc Context) (string, error)
}

// Executor runs a candidate against one example input. Implementations must
// enforce the timeout themselves; callers never block indefinitely.
type Executor interface {
	Execute(ctx context.Context, source, input string, timeout time.Duration) (string, error)
}

// Judge decides whether an actual answer matches the expected one.
type Judge interface {
	Score(ctx context.Context, input, expected, actual string) (bool, error)
}

// #endregion interfaces
