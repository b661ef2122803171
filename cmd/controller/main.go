package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/adaptivelab/experiment-controller/internal/archive"
	"github.com/adaptivelab/experiment-controller/internal/batch"
	"github.com/adaptivelab/experiment-controller/internal/dataset"
	"github.com/adaptivelab/experiment-controller/internal/eval"
	"github.com/adaptivelab/experiment-controller/internal/gate"
	"github.com/adaptivelab/experiment-controller/internal/logging"
	"github.com/adaptivelab/experiment-controller/internal/memory"
	"github.com/adaptivelab/experiment-controller/internal/oracle"
	"github.com/adaptivelab/experiment-controller/internal/orchestrator"
	"github.com/adaptivelab/experiment-controller/internal/signals"
	"github.com/adaptivelab/experiment-controller/internal/state"
	"github.com/adaptivelab/experiment-controller/internal/strategy"
	"github.com/adaptivelab/experiment-controller/internal/update"
)

// #region main
func main() {
	stateDB := envOr("CONTROLLER_STATE_DB", "controller_state.db")
	archiveDB := envOr("CONTROLLER_ARCHIVE_DB", "controller_archive.db")
	datasetPath := envOr("CONTROLLER_DATASET", "examples.json")
	interpreter := envOr("CONTROLLER_INTERPRETER", "python3")
	workDir := envOr("CONTROLLER_WORK_DIR", os.TempDir())
	model := envOr("ORACLE_MODEL", "gpt-4o-mini")
	baseURL := os.Getenv("ORACLE_BASE_URL")
	apiKey := os.Getenv("ORACLE_API_KEY")
	maxIterations := envIntOr("CONTROLLER_MAX_ITERATIONS", 0)

	examples, err := dataset.Load(datasetPath)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}

	states, err := state.NewStore(stateDB)
	if err != nil {
		log.Fatalf("open state store: %v", err)
	}
	defer states.Close()

	arch, err := archive.NewStore(archiveDB)
	if err != nil {
		log.Fatalf("open archive store: %v", err)
	}
	defer arch.Close()

	if err := logging.EnsureSchema(states.DB()); err != nil {
		log.Fatalf("prepare audit log: %v", err)
	}

	advisor, err := strategy.NewOutcomeMemory(arch.DB())
	if err != nil {
		log.Fatalf("open outcome memory: %v", err)
	}

	client := oracle.NewClient(oracle.ClientConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
	})

	config := orchestrator.DefaultConfig()
	config.MaxIterations = maxIterations

	orch, err := orchestrator.New(config, orchestrator.Deps{
		Synthesizer: client,
		Executor:    oracle.NewScriptExecutor(interpreter, workDir),
		Judge:       client,
		Sampler:     dataset.NewSampler(examples, dataset.DefaultSamplerConfig()),
		States:      states,
		Archive:     arch,
		Advisor:     advisor,
		Deciders: update.Deciders{
			Batch:    batch.NewController(batch.DefaultConfig()),
			Strategy: strategy.NewBalancer(strategy.DefaultConfig(), advisor),
			Gate:     gate.NewGate(gate.DefaultConfig()),
			Mode:     strategy.DefaultConfig(),
		},
		Consolidator: memory.NewConsolidator(memory.DefaultConfig()),
		Producer:     signals.NewProducer(signals.DefaultConfig()),
		Harness:      eval.NewHarness(eval.DefaultConfig()),
		AuditDB:      states.DB(),
	})
	if err != nil {
		log.Fatalf("init orchestrator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cs := orch.State()
	log.Printf("[CTRL] starting at iteration %d: batch=%d mix=%s dataset=%d examples",
		cs.Iteration, cs.BatchSize, cs.Mix, len(examples))

	if err := orch.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
	log.Printf("[CTRL] stopped at iteration %d", orch.State().Iteration)
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Fatalf("invalid %s: %q", key, v)
	}
	return fallback
}

// #endregion helpers
