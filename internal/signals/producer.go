package signals

import (
	"fmt"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
	"github.com/adaptivelab/experiment-controller/internal/memory"
)

// #region producer

// Producer derives structured iteration insights from batch results using
// plain string analysis. No model call: the extraction must stay cheap and
// deterministic so it can run on every iteration, including failed ones.
type Producer struct {
	config Config
}

// NewProducer creates a Producer.
func NewProducer(config Config) *Producer {
	return &Producer{config: config}
}

// #endregion producer

// #region produce

// Produce extracts insights from one iteration's results. prev is the
// previous iteration's record, nil on the first iteration.
func (p *Producer) Produce(rec ledger.IterationRecord, prev *ledger.IterationRecord, results []ExampleResult) memory.Insights {
	var in memory.Insights

	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}

	in.LogEntries = append(in.LogEntries, fmt.Sprintf(
		"iteration %d: %s, batch %d, accuracy %.2f (%d/%d correct)",
		rec.Index, rec.Mode, rec.BatchSize, rec.Accuracy, correct, len(results)))

	in.Failures = append(in.Failures, p.failureDetails(rec.Index, results)...)

	if execErrs := countExecErrors(results); execErrs > 0 && execErrs*2 >= len(results) {
		in.Patterns = append(in.Patterns, fmt.Sprintf(
			"iteration %d: execution errors dominate (%d of %d examples) rather than wrong answers",
			rec.Index, execErrs, len(results)))
	}

	if prev != nil && rec.Accuracy > prev.Accuracy {
		in.Strategies = append(in.Strategies, fmt.Sprintf(
			"%s at iteration %d raised accuracy to %.2f from %.2f",
			rec.Mode, rec.Index, rec.Accuracy, prev.Accuracy))
	}

	if rec.Accuracy == 0 && len(results) > 0 {
		in.Directions = append(in.Directions, fmt.Sprintf(
			"iteration %d scored zero; rework the approach before refining it", rec.Index))
	}

	return in
}

// failureDetails captures the first few failed examples verbatim, bounded
// and truncated. Lossy summarization here would defeat the learnings log.
func (p *Producer) failureDetails(iteration int, results []ExampleResult) []string {
	var out []string
	for _, r := range results {
		if r.Correct {
			continue
		}
		if len(out) >= p.config.MaxFailureDetails {
			break
		}
		if r.Err != nil {
			out = append(out, fmt.Sprintf(
				"iteration %d: error %q on input %q",
				iteration, truncate(r.Err.Error(), p.config.MaxFieldLen), truncate(r.Input, p.config.MaxFieldLen)))
			continue
		}
		out = append(out, fmt.Sprintf(
			"iteration %d: expected %q, got %q for input %q",
			iteration, truncate(r.Expected, p.config.MaxFieldLen),
			truncate(r.Actual, p.config.MaxFieldLen), truncate(r.Input, p.config.MaxFieldLen)))
	}
	return out
}

// #endregion produce

// #region exemplars

// ErrorExemplars converts failed results into the bounded exemplar list
// carried on the iteration record.
func ErrorExemplars(results []ExampleResult, max int) []ledger.ErrorExemplar {
	var out []ledger.ErrorExemplar
	for _, r := range results {
		if r.Correct {
			continue
		}
		if len(out) >= max {
			break
		}
		actual := r.Actual
		if r.Err != nil {
			actual = r.Err.Error()
		}
		out = append(out, ledger.ErrorExemplar{
			Input:    r.Input,
			Expected: r.Expected,
			Actual:   actual,
		})
	}
	return out
}

// #endregion exemplars

// #region helpers

func countExecErrors(results []ExampleResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// #endregion helpers
