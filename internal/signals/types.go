package signals

// #region example-result

// ExampleResult is the judged outcome of running a candidate on one example.
type ExampleResult struct {
	Input    string
	Expected string
	Actual   string
	Correct  bool
	Err      error // execution or judgment failure, nil when the run completed
}

// #endregion example-result

// #region config

// Config bounds insight extraction.
type Config struct {
	MaxFailureDetails int // failed examples captured verbatim per iteration
	MaxFieldLen       int // truncation bound for captured input/answer text
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{
		MaxFailureDetails: 3,
		MaxFieldLen:       120,
	}
}

// #endregion config
