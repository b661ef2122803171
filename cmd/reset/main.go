package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/batch"
	"github.com/adaptivelab/experiment-controller/internal/state"
)

// #region main

// reset wipes a run: archived iterations, learnings, and controller
// state. Iteration numbering restarts at 0. Administrative only; the
// live loop never transitions here.
func main() {
	stateDB := flag.String("state-db", "", "path to controller_state.db")
	archiveDB := flag.String("archive-db", "", "path to controller_archive.db")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	if *stateDB == "" || *archiveDB == "" {
		fmt.Fprintln(os.Stderr, "usage: reset --state-db path --archive-db path [--yes]")
		os.Exit(2)
	}

	if !*yes && !confirm() {
		fmt.Println("aborted")
		return
	}

	arch, err := archive.NewStore(*archiveDB)
	if err != nil {
		fatal("open archive: %v", err)
	}
	defer arch.Close()
	if err := arch.Reset(); err != nil {
		fatal("reset archive: %v", err)
	}

	// State versions are append-only; a reset removes the old database
	// file entirely and starts a fresh lineage at iteration 0.
	if err := os.Remove(*stateDB); err != nil && !os.IsNotExist(err) {
		fatal("remove state db: %v", err)
	}
	store, err := state.NewStore(*stateDB)
	if err != nil {
		fatal("recreate state store: %v", err)
	}
	defer store.Close()
	if _, err := store.CreateInitialState(state.InitialState(batch.DefaultConfig().Min)); err != nil {
		fatal("create initial state: %v", err)
	}

	fmt.Println("reset complete: iteration numbering restarts at 0")
}

func confirm() bool {
	fmt.Print("wipe all iterations, learnings, and state? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// #endregion main
