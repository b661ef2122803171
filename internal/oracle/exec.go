package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// #region executor

// ScriptExecutor runs candidate programs as interpreter subprocesses with a
// hard timeout. The example input arrives on stdin; the answer is the
// trimmed stdout.
type ScriptExecutor struct {
	interpreter string // e.g. "python3"
	workDir     string // scratch dir for candidate sources; "" = os.TempDir
	maxOutput   int
}

// NewScriptExecutor creates an executor for the given interpreter.
func NewScriptExecutor(interpreter, workDir string) *ScriptExecutor {
	return &ScriptExecutor{
		interpreter: interpreter,
		workDir:     workDir,
		maxOutput:   64 * 1024,
	}
}

// #endregion executor

// #region execute

// Execute writes the candidate source to a scratch file and runs it under
// the timeout. Every failure mode, including the deadline, surfaces as
// ErrExecution so the caller can count the example as incorrect and move on.
func (e *ScriptExecutor) Execute(ctx context.Context, source, input string, timeout time.Duration) (string, error) {
	dir := e.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "candidate-*.script")
	if err != nil {
		return "", fmt.Errorf("%w: write candidate: %v", ErrExecution, err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(source); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: write candidate: %v", ErrExecution, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: write candidate: %v", ErrExecution, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.interpreter, filepath.Clean(path))
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: timeout after %s", ErrExecution, timeout)
		}
		return "", fmt.Errorf("%w: %v: %s", ErrExecution, err, truncateOutput(stderr.String(), 512))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty output", ErrExecution)
	}
	if len(out) > e.maxOutput {
		return "", fmt.Errorf("%w: output exceeds %d bytes", ErrExecution, e.maxOutput)
	}
	return out, nil
}

// #endregion execute

// #region exact-judge

// ExactJudge compares answers by trimmed string equality. It backs the LLM
// judge as the fallback when the judge call fails.
type ExactJudge struct{}

// Score never errors.
func (ExactJudge) Score(_ context.Context, _, expected, actual string) (bool, error) {
	return strings.TrimSpace(expected) == strings.TrimSpace(actual), nil
}

// #endregion exact-judge

// #region helpers

func truncateOutput(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// #endregion helpers
