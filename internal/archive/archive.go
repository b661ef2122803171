package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region types
// Entry pairs a candidate's source with the iteration record it produced.
type Entry struct {
	Record ledger.IterationRecord
	Source string
}

// #endregion types

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS iterations (
	iteration            INTEGER PRIMARY KEY,
	mode                 TEXT NOT NULL,
	batch_size           INTEGER NOT NULL,
	accuracy             REAL NOT NULL,
	examples_seen        INTEGER NOT NULL,
	progressive_accuracy REAL NOT NULL,
	escalated            INTEGER NOT NULL,
	synthesis_failed     INTEGER NOT NULL DEFAULT 0,
	errors_json          TEXT,
	source               TEXT,
	created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS learnings (
	version     INTEGER PRIMARY KEY,
	content     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store
// Store is the append-only archive of iteration outcomes and the
// versioned learnings log, in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region append
// Append stores an entry. The iteration index is the primary key, so
// re-appending an already-archived iteration fails.
func (s *Store) Append(e Entry) error {
	errsJSON, err := json.Marshal(e.Record.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	escalated := 0
	if e.Record.Escalated {
		escalated = 1
	}
	synthFailed := 0
	if e.Record.SynthesisFailed {
		synthFailed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO iterations
		 (iteration, mode, batch_size, accuracy, examples_seen, progressive_accuracy, escalated, synthesis_failed, errors_json, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Record.Index, string(e.Record.Mode), e.Record.BatchSize,
		e.Record.Accuracy, e.Record.ExamplesSeen, e.Record.ProgressiveAccuracy,
		escalated, synthFailed, string(errsJSON), e.Source,
		e.Record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("archive iteration %d: %w", e.Record.Index, err)
	}
	return nil
}

// #endregion append

// #region load
// LoadHistory rebuilds the performance ledger from archived iterations.
func (s *Store) LoadHistory() (*ledger.History, error) {
	rows, err := s.db.Query(
		`SELECT iteration, mode, batch_size, accuracy, examples_seen, progressive_accuracy, escalated, synthesis_failed, errors_json, created_at
		 FROM iterations ORDER BY iteration`,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var records []ledger.IterationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return ledger.NewHistoryFrom(records)
}

// Entries returns archived entries in iteration order, newest last,
// capped at limit (0 means all).
func (s *Store) Entries(limit int) ([]Entry, error) {
	q := `SELECT iteration, mode, batch_size, accuracy, examples_seen, progressive_accuracy, escalated, synthesis_failed, errors_json, source, created_at
	      FROM iterations ORDER BY iteration`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+` DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var mode, errsJSON, createdStr string
		var source sql.NullString
		var escalated, synthFailed int
		if err := rows.Scan(&e.Record.Index, &mode, &e.Record.BatchSize,
			&e.Record.Accuracy, &e.Record.ExamplesSeen, &e.Record.ProgressiveAccuracy,
			&escalated, &synthFailed, &errsJSON, &source, &createdStr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Record.Mode = ledger.Mode(mode)
		e.Record.Escalated = escalated != 0
		e.Record.SynthesisFailed = synthFailed != 0
		if errsJSON != "" {
			if err := json.Unmarshal([]byte(errsJSON), &e.Record.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal errors: %w", err)
			}
		}
		if source.Valid {
			e.Source = source.String
		}
		e.Record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if limit > 0 {
		// DESC query returned newest first; restore iteration order.
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries, nil
}

// BestSource returns the source of the highest-accuracy iteration,
// ties broken by earliest iteration. Empty when the archive is empty.
func (s *Store) BestSource() (string, error) {
	var source sql.NullString
	err := s.db.QueryRow(
		`SELECT source FROM iterations ORDER BY accuracy DESC, iteration ASC LIMIT 1`,
	).Scan(&source)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("best source: %w", err)
	}
	return source.String, nil
}

func scanRecord(rows *sql.Rows) (ledger.IterationRecord, error) {
	var rec ledger.IterationRecord
	var mode, errsJSON, createdStr string
	var escalated, synthFailed int
	if err := rows.Scan(&rec.Index, &mode, &rec.BatchSize, &rec.Accuracy,
		&rec.ExamplesSeen, &rec.ProgressiveAccuracy, &escalated, &synthFailed, &errsJSON, &createdStr); err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}
	rec.Mode = ledger.Mode(mode)
	rec.Escalated = escalated != 0
	rec.SynthesisFailed = synthFailed != 0
	if errsJSON != "" {
		if err := json.Unmarshal([]byte(errsJSON), &rec.Errors); err != nil {
			return rec, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion load

// #region learnings
// SaveLearnings stores a new learnings version. Versions only move
// forward; writing an existing version fails.
func (s *Store) SaveLearnings(version int, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO learnings (version, content, created_at) VALUES (?, ?, ?)`,
		version, content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save learnings v%d: %w", version, err)
	}
	return nil
}

// LatestLearnings returns the newest learnings version and its content.
// Returns (0, "") when no learnings exist yet.
func (s *Store) LatestLearnings() (int, string, error) {
	var version int
	var content string
	err := s.db.QueryRow(
		`SELECT version, content FROM learnings ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &content)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("latest learnings: %w", err)
	}
	return version, content, nil
}

// #endregion learnings

// #region reset
// Reset wipes all archived iterations and learnings. Used by the
// administrative reset command only.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM iterations`); err != nil {
		return fmt.Errorf("wipe iterations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM learnings`); err != nil {
		return fmt.Errorf("wipe learnings: %w", err)
	}
	return tx.Commit()
}

// #endregion reset
