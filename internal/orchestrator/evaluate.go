package orchestrator

// #region imports
import (
	"context"
	"log"
	"sync"

	"github.com/adaptivelab/experiment-controller/internal/dataset"
	"github.com/adaptivelab/experiment-controller/internal/oracle"
	"github.com/adaptivelab/experiment-controller/internal/signals"
)

// #endregion

// #region evaluate-batch

// evaluateBatch runs the candidate against every example concurrently,
// bounded by MaxWorkers, and joins before returning. Result order
// matches the example order regardless of completion order.
func (o *Orchestrator) evaluateBatch(ctx context.Context, source string, examples []dataset.Example) []signals.ExampleResult {
	results := make([]signals.ExampleResult, len(examples))

	workers := o.config.MaxWorkers
	if workers <= 0 || workers > len(examples) {
		workers = len(examples)
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, ex := range examples {
		wg.Add(1)
		go func(i int, ex dataset.Example) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.evaluateOne(ctx, source, ex)
		}(i, ex)
	}
	wg.Wait()
	return results
}

// synthesisFailureResults marks every example of the batch as failed
// when no candidate was produced to run them.
func synthesisFailureResults(examples []dataset.Example, err error) []signals.ExampleResult {
	results := make([]signals.ExampleResult, len(examples))
	for i, ex := range examples {
		results[i] = signals.ExampleResult{
			Input:    ex.Input,
			Expected: ex.Expected,
			Err:      err,
		}
	}
	return results
}

func (o *Orchestrator) evaluateOne(ctx context.Context, source string, ex dataset.Example) signals.ExampleResult {
	r := signals.ExampleResult{Input: ex.Input, Expected: ex.Expected}
	actual, err := o.deps.Executor.Execute(ctx, source, ex.Input, o.config.ExampleTimeout)
	if err != nil {
		r.Err = err
		return r
	}
	r.Actual = actual
	r.Correct = o.score(ctx, ex, actual)
	return r
}

// score asks the judge; a judge error falls back to exact matching so
// one flaky judgment never zeroes an example.
func (o *Orchestrator) score(ctx context.Context, ex dataset.Example, actual string) bool {
	if o.deps.Judge != nil {
		ok, err := o.deps.Judge.Score(ctx, ex.Input, ex.Expected, actual)
		if err == nil {
			return ok
		}
		log.Printf("[ORCH] judge unavailable, exact match fallback: %v", err)
	}
	ok, _ := oracle.ExactJudge{}.Score(ctx, ex.Input, ex.Expected, actual)
	return ok
}

// #endregion

// #region progressive

// runProgressive re-runs the candidate against previously seen
// examples, giving the wider accuracy reading an escalation pays for.
func (o *Orchestrator) runProgressive(ctx context.Context, source string) float64 {
	seen := o.deps.Sampler.Seen()
	if len(seen) == 0 {
		return -1
	}
	results := o.evaluateBatch(ctx, source, seen)
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(results))
}

// #endregion
