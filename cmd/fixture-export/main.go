package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/replay"
	"github.com/adaptivelab/experiment-controller/internal/state"
)

// #region main

// fixture-export turns a live run's archive into a replay fixture, so a
// recorded sequence of iteration outcomes can be re-run through the
// deciders offline.
func main() {
	archiveDB := flag.String("archive-db", "", "path to controller_archive.db")
	stateDB := flag.String("state-db", "", "optional state db: seeds the fixture start state from the earliest version")
	out := flag.String("out", "", "output fixture path (default stdout)")
	description := flag.String("description", "", "fixture description")
	flag.Parse()

	if *archiveDB == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --archive-db path [--state-db path] [--out fixture.json] [--description text]")
		os.Exit(2)
	}

	arch, err := archive.NewStore(*archiveDB)
	if err != nil {
		fatal("open archive: %v", err)
	}
	defer arch.Close()

	entries, err := arch.Entries(0)
	if err != nil {
		fatal("read archive: %v", err)
	}
	if len(entries) == 0 {
		fatal("archive holds no iterations")
	}

	fixture := replay.Fixture{
		Description: *description,
		StartState:  startState(*stateDB, entries[0].Record.BatchSize),
	}
	for _, e := range entries {
		fixture.Iterations = append(fixture.Iterations, replay.FixtureIteration{
			Index:           e.Record.Index,
			Mode:            string(e.Record.Mode),
			BatchSize:       e.Record.BatchSize,
			Accuracy:        e.Record.Accuracy,
			ExamplesSeen:    e.Record.ExamplesSeen,
			SynthesisFailed: e.Record.SynthesisFailed,
		})
		fixture.ExpectedResults = append(fixture.ExpectedResults, replay.FixtureExpectedResult{
			Index:    e.Record.Index,
			Escalate: e.Record.Escalated,
		})
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		fatal("encode fixture: %v", err)
	}
	data = append(data, '\n')

	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fatal("write fixture: %v", err)
	}
	fmt.Printf("wrote %d iterations to %s\n", len(fixture.Iterations), *out)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// #endregion main

// #region start-state

// startState reads the earliest persisted version when a state db is
// given, and otherwise starts from defaults with an assumed baseline.
func startState(stateDB string, firstBatch int) replay.FixtureStartState {
	fallback := replay.FixtureStartState{
		BatchSize:       firstBatch,
		ExplorePct:      60,
		ExploitPct:      20,
		RefinePct:       20,
		BaselineAssumed: true,
	}
	if stateDB == "" {
		return fallback
	}

	store, err := state.NewStore(stateDB)
	if err != nil {
		fatal("open state store: %v", err)
	}
	defer store.Close()

	versions, err := store.ListVersions(1 << 20)
	if err != nil || len(versions) == 0 {
		return fallback
	}
	first := versions[len(versions)-1].State
	return replay.FixtureStartState{
		Iteration:        first.Iteration,
		BatchSize:        first.BatchSize,
		ExplorePct:       first.Mix.ExplorePct,
		ExploitPct:       first.Mix.ExploitPct,
		RefinePct:        first.Mix.RefinePct,
		BaselineAccuracy: first.BaselineAccuracy,
		BaselineAssumed:  first.BaselineAssumed,
		ExamplesSeen:     first.ExamplesSeen,
	}
}

// #endregion start-state
