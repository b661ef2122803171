package gate

// #region config

// Config holds thresholds for the progressive testing decision.
type Config struct {
	SmallBatchMargin  float64 // required margin when batch size <= SmallBatch
	MediumBatchMargin float64 // required margin for mid-size batches
	LargeBatchMargin  float64 // required margin when batch size >= LargeBatch
	SmallBatch        int
	LargeBatch        int

	EarlyIterations  int     // iterations still considered "calibrating"
	EarlyPenalty     float64 // extra margin required while calibrating
	RecentWindow     int     // how far back a prior escalation blocks a rerun
	ComparableWithin float64 // accuracy delta treated as "comparable quality"
	HistoryWindow    int     // recent records consulted for the best-recent bar
}

// DefaultConfig returns the standard conservative thresholds. Small batches
// are noisy and need a wide margin; large batches earn a lower bar.
func DefaultConfig() Config {
	return Config{
		SmallBatchMargin:  0.15,
		MediumBatchMargin: 0.08,
		LargeBatchMargin:  0.04,
		SmallBatch:        3,
		LargeBatch:        8,
		EarlyIterations:   5,
		EarlyPenalty:      0.05,
		RecentWindow:      3,
		ComparableWithin:  0.05,
		HistoryWindow:     5,
	}
}

// #endregion config

// #region result

// Result describes the iteration outcome under consideration for escalation.
type Result struct {
	Iteration int
	Accuracy  float64
	BatchSize int
}

// Escalation records the most recent progressive test, used to suppress
// redundant expensive reruns. Zero value means none has run yet.
type Escalation struct {
	Iteration int
	Accuracy  float64
	Valid     bool
}

// #endregion result

// #region decision

// Decision is the gate output. Reason is for audit logging only; correctness
// depends solely on Escalate.
type Decision struct {
	Escalate bool
	Reason   string
}

// #endregion decision
