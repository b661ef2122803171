package strategy

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adaptivelab/experiment-controller/internal/calibrate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func outcomeRec(index int, mode ledger.Mode, accuracy float64) ledger.IterationRecord {
	return ledger.IterationRecord{
		Index:               index,
		Mode:                mode,
		BatchSize:           5,
		Accuracy:            accuracy,
		ProgressiveAccuracy: -1,
		CreatedAt:           time.Now(),
	}
}

func TestOutcomeMemoryRecordAndQuery(t *testing.T) {
	mem, err := NewOutcomeMemory(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	profile := calibrate.Profile{Difficulty: calibrate.DifficultyHard}

	// No data: no recommendation, no error.
	mode, _, err := mem.BestMode(calibrate.DifficultyHard)
	if err != nil {
		t.Fatal(err)
	}
	if mode != "" {
		t.Errorf("expected empty mode, got %q", mode)
	}

	// Two samples are below the 3-sample threshold.
	for i := 0; i < 2; i++ {
		if err := mem.RecordOutcome("run-1", outcomeRec(i, ledger.ModeRefine, 0.8), profile); err != nil {
			t.Fatal(err)
		}
	}
	mode, _, err = mem.BestMode(calibrate.DifficultyHard)
	if err != nil {
		t.Fatal(err)
	}
	if mode != "" {
		t.Errorf("expected empty below threshold, got %q", mode)
	}

	// Third sample crosses the threshold.
	if err := mem.RecordOutcome("run-1", outcomeRec(2, ledger.ModeRefine, 0.9), profile); err != nil {
		t.Fatal(err)
	}
	mode, score, err := mem.BestMode(calibrate.DifficultyHard)
	if err != nil {
		t.Fatal(err)
	}
	if mode != ledger.ModeRefine {
		t.Fatalf("expected refine, got %q", mode)
	}
	if score <= 0 {
		t.Fatalf("expected positive score, got %f", score)
	}
}

func TestOutcomeMemoryPrefersHigherAccuracy(t *testing.T) {
	mem, err := NewOutcomeMemory(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	profile := calibrate.Profile{Difficulty: calibrate.DifficultyModerate}
	for i := 0; i < 3; i++ {
		if err := mem.RecordOutcome("run-1", outcomeRec(i*2, ledger.ModeExplore, 0.3), profile); err != nil {
			t.Fatal(err)
		}
		if err := mem.RecordOutcome("run-1", outcomeRec(i*2+1, ledger.ModeExploit, 0.7), profile); err != nil {
			t.Fatal(err)
		}
	}

	mode, _, err := mem.BestMode(calibrate.DifficultyModerate)
	if err != nil {
		t.Fatal(err)
	}
	if mode != ledger.ModeExploit {
		t.Fatalf("expected exploit, got %q", mode)
	}
}

func TestOutcomeMemoryScopedByDifficulty(t *testing.T) {
	mem, err := NewOutcomeMemory(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}

	hard := calibrate.Profile{Difficulty: calibrate.DifficultyHard}
	for i := 0; i < 3; i++ {
		if err := mem.RecordOutcome("run-1", outcomeRec(i, ledger.ModeRefine, 0.9), hard); err != nil {
			t.Fatal(err)
		}
	}

	mode, _, err := mem.BestMode(calibrate.DifficultyEasy)
	if err != nil {
		t.Fatal(err)
	}
	if mode != "" {
		t.Fatalf("easy lookup should not see hard outcomes, got %q", mode)
	}
}
