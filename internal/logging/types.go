package logging

import (
	"time"

	"github.com/adaptivelab/experiment-controller/internal/strategy"
)

// #region audit-entry
// AuditEntry is a single row in the decision_log table. One row is
// written per controller decision (gate, strategy, batch), keyed to
// the state version the decision produced.
type AuditEntry struct {
	VersionID   string
	Iteration   int
	Component   string // "gate" | "strategy" | "batch"
	Decision    string
	Reason      string
	DetailsJSON string
	CreatedAt   time.Time
}

// #endregion audit-entry

// #region decision-record
// DecisionRecord captures the complete control inputs and outputs for
// one iteration. Serialized as JSON into decision_log.details_json so
// the replay harness can re-run the deciders against recorded inputs.
type DecisionRecord struct {
	Iteration int     `json:"iteration"`
	Accuracy  float64 `json:"accuracy"`
	Baseline  float64 `json:"baseline"`

	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`

	BatchBefore int `json:"batch_before"`
	BatchAfter  int `json:"batch_after"`

	MixBefore strategy.Mix `json:"mix_before"`
	MixAfter  strategy.Mix `json:"mix_after"`

	Escalated  bool   `json:"escalated"`
	GateReason string `json:"gate_reason"`
}

// #endregion decision-record
