package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id   TEXT NOT NULL,
	iteration    INTEGER NOT NULL,
	component    TEXT NOT NULL,
	decision     TEXT NOT NULL,
	reason       TEXT,
	details_json TEXT,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_iteration
	ON decision_log (iteration, component);
`

// EnsureSchema creates the decision_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate decision log: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision writes an audit entry to the decision_log table.
func LogDecision(db *sql.DB, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (version_id, iteration, component, decision, reason, details_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.Iteration,
		entry.Component,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DetailsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region query
// DecisionsFor returns the audit rows recorded for one iteration, in
// insertion order.
func DecisionsFor(db *sql.DB, iteration int) ([]AuditEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, iteration, component, decision, reason, details_json, created_at
		 FROM decision_log WHERE iteration = ? ORDER BY id`, iteration,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var reason, details sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &e.Iteration, &e.Component,
			&e.Decision, &reason, &details, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		if details.Valid {
			e.DetailsJSON = details.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion query

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
