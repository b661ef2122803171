package oracle

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", "here you go:\n```python\nprint(1)\n```\nthanks", "print(1)"},
		{"fenced no lang", "```\nprint(2)\n```", "print(2)"},
		{"unterminated", "```python\nprint(3)\n", "print(3)"},
		{"no fence", "print(4)", "print(4)"},
	}
	for _, c := range cases {
		if got := ExtractCode(c.in); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestBuildSynthesisPromptModes(t *testing.T) {
	sc := Context{
		Learnings:  "answers are ISO dates",
		Exemplars:  []Exemplar{{Input: "q1", Expected: "a1"}},
		BestSource: "print('best')",
		RecentErrors: []ledger.ErrorExemplar{
			{Input: "q2", Expected: "a2", Actual: "wrong"},
		},
	}

	explore := BuildSynthesisPrompt(ledger.ModeExplore, sc)
	if strings.Contains(explore, "print('best')") {
		t.Fatal("explore mode must not leak the best candidate")
	}
	if !strings.Contains(explore, "answers are ISO dates") {
		t.Fatal("learnings missing from prompt")
	}

	refine := BuildSynthesisPrompt(ledger.ModeRefine, sc)
	if !strings.Contains(refine, "print('best')") {
		t.Fatal("refine mode must include the best candidate")
	}
	if !strings.Contains(refine, "wrong") {
		t.Fatal("recent errors missing from refine prompt")
	}

	exploit := BuildSynthesisPrompt(ledger.ModeExploit, sc)
	if !strings.Contains(exploit, "print('best')") {
		t.Fatal("exploit mode must include the best candidate")
	}
}

func TestExactJudge(t *testing.T) {
	j := ExactJudge{}
	ok, err := j.Score(context.Background(), "q", "  42 ", "42\n")
	if err != nil || !ok {
		t.Fatalf("trimmed equality should match: ok=%v err=%v", ok, err)
	}
	ok, _ = j.Score(context.Background(), "q", "42", "41")
	if ok {
		t.Fatal("different answers must not match")
	}
}

func TestScriptExecutorRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell executor test")
	}
	e := NewScriptExecutor("/bin/sh", t.TempDir())

	out, err := e.Execute(context.Background(),
		"read line\necho \"got:$line\"\n", "hello", 5*time.Second)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "got:hello" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestScriptExecutorTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell executor test")
	}
	e := NewScriptExecutor("/bin/sh", t.TempDir())

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep 30\n", "", 200*time.Millisecond)
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestScriptExecutorFailureIsExecutionError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell executor test")
	}
	e := NewScriptExecutor("/bin/sh", t.TempDir())

	_, err := e.Execute(context.Background(), "exit 3\n", "", 5*time.Second)
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
}
