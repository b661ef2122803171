package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region example

// Example is one task example: an input and its golden answer.
type Example struct {
	ID       string `json:"id,omitempty"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// #endregion example

// #region load

// Load reads a JSON array of examples from disk.
func Load(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("dataset %s contains no examples", path)
	}
	for i, ex := range examples {
		if ex.Input == "" {
			return nil, fmt.Errorf("dataset %s: example %d has empty input", path, i)
		}
	}
	return examples, nil
}

// #endregion load
