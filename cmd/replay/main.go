package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/adaptivelab/experiment-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to replay fixture JSON")
	verbose := flag.Bool("v", false, "print every iteration decision")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	results, summary, err := replay.Replay(f.StartState.ToControllerState(), f.Iterations, replay.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if f.Description != "" {
		fmt.Printf("replaying: %s\n", f.Description)
	}
	if *verbose {
		for _, r := range results {
			fmt.Printf("iter %-4d acc=%.2f escalate=%-5v batch=%-2d mix=%s  %s\n",
				r.Index, r.Accuracy, r.Escalate, r.BatchSize, r.Mix, r.Reason)
		}
	}

	mismatches := checkExpectations(f, results)
	fmt.Printf("%d iterations, %d escalations, %d eval failures\n",
		summary.Iterations, summary.Escalations, summary.EvalFails)
	fmt.Printf("final: iter=%d batch=%d mix=%s baseline=%.2f\n",
		summary.FinalState.Iteration, summary.FinalState.BatchSize,
		summary.FinalState.Mix, summary.FinalState.BaselineAccuracy)

	if mismatches > 0 {
		fmt.Fprintf(os.Stderr, "%d expectation mismatches\n", mismatches)
		os.Exit(1)
	}
}

// #endregion main

// #region expectations

func checkExpectations(f *replay.Fixture, results []replay.Result) int {
	byIndex := make(map[int]replay.Result, len(results))
	for _, r := range results {
		byIndex[r.Index] = r
	}
	mismatches := 0
	for _, want := range f.ExpectedResults {
		got, ok := byIndex[want.Index]
		if !ok {
			fmt.Fprintf(os.Stderr, "iter %d: expected but not replayed\n", want.Index)
			mismatches++
			continue
		}
		if got.Escalate != want.Escalate {
			fmt.Fprintf(os.Stderr, "iter %d: escalate=%v, expected %v (%s)\n",
				want.Index, got.Escalate, want.Escalate, got.Reason)
			mismatches++
		}
		if want.BatchSize > 0 && got.BatchSize != want.BatchSize {
			fmt.Fprintf(os.Stderr, "iter %d: batch=%d, expected %d\n",
				want.Index, got.BatchSize, want.BatchSize)
			mismatches++
		}
		if want.Mix != "" && got.Mix.String() != want.Mix {
			fmt.Fprintf(os.Stderr, "iter %d: mix=%s, expected %s\n",
				want.Index, got.Mix, want.Mix)
			mismatches++
		}
	}
	return mismatches
}

// #endregion expectations
