package eval

// #region config
// Config holds the bounds the harness checks after every update.
type Config struct {
	MinBatchSize int
	MaxBatchSize int
	MixFloorPct  int
	MixCeilPct   int
}

// DefaultConfig returns the standard control bounds.
func DefaultConfig() Config {
	return Config{
		MinBatchSize: 3,
		MaxBatchSize: 10,
		MixFloorPct:  5,
		MixCeilPct:   90,
	}
}

// #endregion config

// #region result
// Metric is a single named check with its observed value.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// Result reports whether the updated state satisfies every invariant.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion result
