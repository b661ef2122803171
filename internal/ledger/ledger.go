package ledger

import (
	"errors"
	"fmt"
)

// #region errors

// ErrOutOfOrder is returned when an append would break monotonic iteration order.
var ErrOutOfOrder = errors.New("out-of-order ledger append")

// #endregion errors

// #region history

// History is the append-only ordered sequence of iteration outcomes.
// It performs no interpretation of accuracy values.
type History struct {
	records []IterationRecord
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// NewHistoryFrom seeds a history from previously persisted records.
// Records must already be in iteration order; appends are re-validated.
func NewHistoryFrom(records []IterationRecord) (*History, error) {
	h := &History{}
	for _, rec := range records {
		if err := h.Append(rec); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// #endregion history

// #region append

// Append adds a record to the history. The index must be strictly greater
// than the last appended index; gaps are tolerated, reordering is not.
func (h *History) Append(rec IterationRecord) error {
	if last, ok := h.Last(); ok && rec.Index <= last.Index {
		return fmt.Errorf("%w: index %d after %d", ErrOutOfOrder, rec.Index, last.Index)
	}
	if rec.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrOutOfOrder, rec.Index)
	}
	h.records = append(h.records, rec)
	return nil
}

// #endregion append

// #region queries

// Len returns the number of recorded iterations.
func (h *History) Len() int {
	return len(h.records)
}

// Last returns the most recent record, if any.
func (h *History) Last() (IterationRecord, bool) {
	if len(h.records) == 0 {
		return IterationRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// Tail returns the last n records in chronological order.
// Returns fewer when the history is shorter.
func (h *History) Tail(n int) []IterationRecord {
	if n < 0 {
		n = 0
	}
	start := len(h.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]IterationRecord, len(h.records)-start)
	copy(out, h.records[start:])
	return out
}

// Best returns the record with the highest accuracy. Ties go to the
// earliest iteration (prefer the temporally-prior, presumably simpler
// candidate).
func (h *History) Best() (IterationRecord, bool) {
	if len(h.records) == 0 {
		return IterationRecord{}, false
	}
	best := h.records[0]
	for _, rec := range h.records[1:] {
		if rec.Accuracy > best.Accuracy {
			best = rec
		}
	}
	return best, true
}

// All returns a copy of the full history in chronological order.
func (h *History) All() []IterationRecord {
	out := make([]IterationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// #endregion queries
