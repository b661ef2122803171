package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/logging"
	"github.com/adaptivelab/experiment-controller/internal/state"
)

// #region main

func main() {
	stateDB := flag.String("state-db", "", "path to controller_state.db")
	archiveDB := flag.String("archive-db", "", "path to controller_archive.db")
	last := flag.Int("last", 20, "show N most recent entries")
	iteration := flag.Int("iteration", -1, "show decision audit for one iteration")
	learnings := flag.Bool("learnings", false, "print the current learnings log")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *stateDB == "" && *archiveDB == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --state-db path [--archive-db path] [--last N] [--iteration N] [--learnings] [--json]")
		os.Exit(2)
	}

	if *archiveDB != "" {
		arch, err := archive.NewStore(*archiveDB)
		if err != nil {
			fatal("open archive: %v", err)
		}
		defer arch.Close()

		if *learnings {
			if err := printLearnings(arch); err != nil {
				fatal("learnings: %v", err)
			}
			return
		}
		if err := printIterations(arch, *last, *jsonOut); err != nil {
			fatal("iterations: %v", err)
		}
	}

	if *stateDB != "" {
		store, err := state.NewStore(*stateDB)
		if err != nil {
			fatal("open state store: %v", err)
		}
		defer store.Close()

		if *iteration >= 0 {
			if err := printDecisions(store, *iteration, *jsonOut); err != nil {
				fatal("decisions: %v", err)
			}
			return
		}
		if err := printVersions(store, *last, *jsonOut); err != nil {
			fatal("versions: %v", err)
		}
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// #endregion main

// #region printers

func printIterations(arch *archive.Store, last int, jsonOut bool) error {
	entries, err := arch.Entries(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	fmt.Printf("%-5s %-8s %-6s %-9s %-6s %-11s %s\n",
		"iter", "mode", "batch", "accuracy", "seen", "progressive", "escalated")
	for _, e := range entries {
		prog := "-"
		if e.Record.ProgressiveAccuracy >= 0 {
			prog = fmt.Sprintf("%.2f", e.Record.ProgressiveAccuracy)
		}
		mode := string(e.Record.Mode)
		if e.Record.SynthesisFailed {
			mode += "!"
		}
		fmt.Printf("%-5d %-8s %-6d %-9.2f %-6d %-11s %v\n",
			e.Record.Index, mode, e.Record.BatchSize,
			e.Record.Accuracy, e.Record.ExamplesSeen, prog, e.Record.Escalated)
	}
	return nil
}

func printLearnings(arch *archive.Store) error {
	version, content, err := arch.LatestLearnings()
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Println("no learnings recorded yet")
		return nil
	}
	fmt.Println(content)
	return nil
}

func printVersions(store *state.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(versions)
	}
	for _, v := range versions {
		fmt.Printf("%s  iter=%-4d batch=%-2d mix=%s  %s\n",
			v.CreatedAt.Format("2006-01-02 15:04:05"),
			v.State.Iteration, v.State.BatchSize, v.State.Mix, v.Reason)
	}
	return nil
}

func printDecisions(store *state.Store, iteration int, jsonOut bool) error {
	entries, err := logging.DecisionsFor(store.DB(), iteration)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Printf("no decisions recorded for iteration %d\n", iteration)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-9s %-10s %s\n", e.Component, e.Decision, e.Reason)
	}
	return nil
}

// #endregion printers
