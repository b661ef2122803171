package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoState reports a store with no active state version yet. Callers
// bootstrap with CreateInitialState; any other error from GetCurrent
// means the persisted state could not be read and must not be replaced.
var ErrNoState = errors.New("state: no active version")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS state_versions (
	version_id  TEXT PRIMARY KEY,
	parent_id   TEXT,
	state_json  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	reason      TEXT,
	FOREIGN KEY (parent_id) REFERENCES state_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_state (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	version_id  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES state_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned controller state in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-initial
// CreateInitialState commits the starting state and points the active
// pointer at it.
func (s *Store) CreateInitialState(cs ControllerState) (StateRecord, error) {
	rec := StateRecord{
		VersionID: uuid.New().String(),
		State:     cs,
		CreatedAt: time.Now().UTC(),
		Reason:    "initial state",
	}

	stateJSON, err := json.Marshal(cs)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO state_versions (version_id, parent_id, state_json, created_at, reason)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VersionID, nil, string(stateJSON),
		rec.CreatedAt.Format(time.RFC3339Nano), rec.Reason,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_state (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}

	return rec, nil
}

// #endregion create-initial

// #region get-current
// GetCurrent reads the active state version.
func (s *Store) GetCurrent() (StateRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_state WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, ErrNoState
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific state version by ID.
func (s *Store) GetVersion(id string) (StateRecord, error) {
	var rec StateRecord
	var parentID, reason sql.NullString
	var stateJSON, createdStr string

	err := s.db.QueryRow(
		`SELECT version_id, parent_id, state_json, created_at, reason
		 FROM state_versions WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &parentID, &stateJSON, &createdStr, &reason)
	if err != nil {
		return StateRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}

	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if reason.Valid {
		rec.Reason = reason.String
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return StateRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	return rec, nil
}

// #endregion get-version

// #region commit-state
// Commit inserts a new version derived from the current active version
// and swaps the active pointer to it, in one transaction. The state on
// disk is never partially overwritten.
func (s *Store) Commit(cs ControllerState, reason string) (StateRecord, error) {
	current, err := s.GetCurrent()
	if err != nil {
		return StateRecord{}, fmt.Errorf("read current for parent: %w", err)
	}

	rec := StateRecord{
		VersionID: uuid.New().String(),
		ParentID:  current.VersionID,
		State:     cs,
		CreatedAt: time.Now().UTC(),
		Reason:    reason,
	}

	stateJSON, err := json.Marshal(cs)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO state_versions (version_id, parent_id, state_json, created_at, reason)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VersionID, rec.ParentID, string(stateJSON),
		rec.CreatedAt.Format(time.RFC3339Nano), reason,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE active_state SET version_id = ? WHERE id = 1`, rec.VersionID,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("update active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit-state

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM state_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_state SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent state versions.
func (s *Store) ListVersions(limit int) ([]StateRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, state_json, created_at, reason
		 FROM state_versions ORDER BY created_at DESC, version_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []StateRecord
	for rows.Next() {
		var rec StateRecord
		var parentID, reason sql.NullString
		var stateJSON, createdStr string

		if err := rows.Scan(&rec.VersionID, &parentID, &stateJSON, &createdStr, &reason); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			rec.ParentID = parentID.String
		}
		if reason.Valid {
			rec.Reason = reason.String
		}
		if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions
