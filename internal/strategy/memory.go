package strategy

import (
	"database/sql"
	"math"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/calibrate"
	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region schema

const modeOutcomesSchema = `
CREATE TABLE IF NOT EXISTS mode_outcomes (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL,
    iteration    INTEGER NOT NULL,
    difficulty   TEXT NOT NULL,
    mode         TEXT NOT NULL,
    batch_size   INTEGER NOT NULL,
    accuracy     REAL NOT NULL,
    relative     REAL NOT NULL,
    created_at   TEXT NOT NULL
);
`

const modeOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_mode_outcomes_lookup
ON mode_outcomes(difficulty, mode);
`

// #endregion schema

// #region memory-struct

// OutcomeMemory persists per-mode outcomes in SQLite and serves
// decay-weighted quality queries. It is strictly an advisor input: the
// balancer consults it for a tilt, never for the decision itself.
type OutcomeMemory struct {
	db *sql.DB
}

// NewOutcomeMemory initializes the mode_outcomes table.
func NewOutcomeMemory(db *sql.DB) (*OutcomeMemory, error) {
	if _, err := db.Exec(modeOutcomesSchema); err != nil {
		return nil, err
	}
	if _, err := db.Exec(modeOutcomesIndex); err != nil {
		return nil, err
	}
	return &OutcomeMemory{db: db}, nil
}

// #endregion memory-struct

// #region record-outcome

// RecordOutcome persists one iteration's mode outcome.
func (m *OutcomeMemory) RecordOutcome(runID string, rec ledger.IterationRecord, profile calibrate.Profile) error {
	_, err := m.db.Exec(`
		INSERT INTO mode_outcomes
		(run_id, iteration, difficulty, mode, batch_size, accuracy, relative, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		rec.Index,
		string(profile.Difficulty),
		string(rec.Mode),
		rec.BatchSize,
		rec.Accuracy,
		profile.RelativeImprovement,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// #endregion record-outcome

// #region best-mode

// BestMode returns the mode with the highest decay-weighted accuracy for the
// given difficulty. Returns ("", 0, nil) when no mode has 3+ samples yet.
func (m *OutcomeMemory) BestMode(difficulty calibrate.Difficulty) (ledger.Mode, float64, error) {
	rows, err := m.db.Query(`
		SELECT mode, accuracy, created_at
		FROM mode_outcomes
		WHERE difficulty = ?`,
		string(difficulty),
	)
	if err != nil {
		return "", 0, err
	}
	defer rows.Close()

	type accum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}

	now := time.Now()
	const halfLifeHours = 7.0 * 24.0
	byMode := make(map[ledger.Mode]*accum)

	for rows.Next() {
		var mode string
		var accuracy float64
		var createdAtStr string
		if err := rows.Scan(&mode, &accuracy, &createdAtStr); err != nil {
			return "", 0, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / halfLifeHours)

		key := ledger.Mode(mode)
		if _, ok := byMode[key]; !ok {
			byMode[key] = &accum{}
		}
		byMode[key].weightedSum += accuracy * weight
		byMode[key].totalWeight += weight
		byMode[key].count++
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	var bestMode ledger.Mode
	bestScore := -1.0
	for mode, a := range byMode {
		if a.count < 3 || a.totalWeight == 0 {
			continue
		}
		avg := a.weightedSum / a.totalWeight
		if avg > bestScore {
			bestScore = avg
			bestMode = mode
		}
	}
	if bestMode == "" {
		return "", 0, nil
	}
	return bestMode, bestScore, nil
}

// #endregion best-mode
