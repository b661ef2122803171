package oracle

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adaptivelab/experiment-controller/internal/ledger"
)

// #region config

// ClientConfig configures the chat-completion oracle client.
type ClientConfig struct {
	BaseURL string // empty = api.openai.com; any OpenAI-compatible endpoint works
	APIKey  string
	Model   string
}

// #endregion config

// #region client

// Client implements Synthesizer and Judge against a chat-completion API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an oracle client.
func NewClient(config ClientConfig) *Client {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: config.Model,
	}
}

// #endregion client

// #region synthesize

const synthesizerSystem = "You are a script synthesizer. You write a complete, " +
	"self-contained program that reads one task input on stdin and prints the " +
	"answer on stdout. Output exactly one fenced code block and nothing else."

// Synthesize asks the model for a candidate program conditioned on the mode
// and the accumulated context. Any API or formatting failure surfaces as
// ErrSynthesis; the caller records a zero-scored iteration.
func (c *Client) Synthesize(ctx context.Context, mode ledger.Mode, sc Context) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesizerSystem},
			{Role: openai.ChatMessageRoleUser, Content: BuildSynthesisPrompt(mode, sc)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrSynthesis)
	}

	source := ExtractCode(resp.Choices[0].Message.Content)
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("%w: no code block in response", ErrSynthesis)
	}
	return source, nil
}

// #endregion synthesize

// #region judge

const judgeSystem = "You judge whether a system's answer matches the expected " +
	"answer for a task. Semantic equivalence counts as a match. Reply with " +
	"exactly MATCH or NO_MATCH on the first line."

// Score asks the model to judge answer equivalence. Callers fall back to
// exact string comparison when this errors.
func (c *Client) Score(ctx context.Context, input, expected, actual string) (bool, error) {
	prompt := fmt.Sprintf("Task input:\n%s\n\nExpected answer:\n%s\n\nActual answer:\n%s\n",
		input, expected, actual)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystem},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return false, fmt.Errorf("judge call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("judge call: empty response")
	}

	first := strings.ToUpper(strings.TrimSpace(firstLine(resp.Choices[0].Message.Content)))
	switch {
	case strings.HasPrefix(first, "MATCH"):
		return true, nil
	case strings.HasPrefix(first, "NO_MATCH"):
		return false, nil
	default:
		return false, fmt.Errorf("judge call: unparseable verdict %q", first)
	}
}

// #endregion judge

// #region prompt

// BuildSynthesisPrompt renders the mode-specific instruction plus the
// conditioning context: learnings, exemplars, the prior best candidate, and
// recent error exemplars.
func BuildSynthesisPrompt(mode ledger.Mode, sc Context) string {
	var b strings.Builder

	switch mode {
	case ledger.ModeExplore:
		b.WriteString("Generate a completely novel approach for this task. " +
			"Do not reuse the structure of prior candidates.\n")
	case ledger.ModeExploit:
		b.WriteString("Combine the strongest elements of prior successful approaches into one program. " +
			"The best candidate so far is included below.\n")
	case ledger.ModeRefine:
		b.WriteString("Improve the best candidate below by fixing its specific observed weaknesses. " +
			"Keep what already works.\n")
	}

	if sc.Learnings != "" {
		fmt.Fprintf(&b, "\nAccumulated learnings about this dataset:\n%s\n", sc.Learnings)
	}

	if len(sc.Exemplars) > 0 {
		b.WriteString("\nSample examples:\n")
		for _, ex := range sc.Exemplars {
			fmt.Fprintf(&b, "Input: %s\nExpected: %s\n\n", ex.Input, ex.Expected)
		}
	}

	if sc.BestSource != "" && mode != ledger.ModeExplore {
		fmt.Fprintf(&b, "\nBest candidate so far:\n```\n%s\n```\n", sc.BestSource)
	}

	if len(sc.RecentErrors) > 0 {
		b.WriteString("\nRecent failures to learn from:\n")
		for _, e := range sc.RecentErrors {
			fmt.Fprintf(&b, "Input: %s\nExpected: %s\nGot: %s\n\n", e.Input, e.Expected, e.Actual)
		}
	}

	return b.String()
}

// ExtractCode pulls the contents of the first fenced code block. Returns the
// whole text when no fence is present (some models skip the fence).
func ExtractCode(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return strings.TrimSpace(text)
	}
	rest := text[start+3:]
	// Skip a language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i != -1 {
		return s[:i]
	}
	return s
}

// #endregion prompt
