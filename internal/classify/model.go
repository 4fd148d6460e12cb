package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/retry"
)

// ErrUnresolved means no strategy produced a valid vertical. Callers must not
// substitute a guess.
var ErrUnresolved = errors.New("vertical could not be resolved")

const maxClassifyInput = 2500

// ModelClassifier is the Tier 2 classifier.
type ModelClassifier struct {
	primary   llm.Generator
	alternate llm.Generator
	retry     retry.RetryConfig
	log       *slog.Logger
}

// NewModelClassifier builds a classifier. alternate may be nil, in which case
// the last strategy reuses primary.
func NewModelClassifier(primary, alternate llm.Generator, cfg retry.RetryConfig, log *slog.Logger) *ModelClassifier {
	if alternate == nil {
		alternate = primary
	}
	if log == nil {
		log = slog.Default()
	}
	return &ModelClassifier{primary: primary, alternate: alternate, retry: cfg, log: log}
}

func labels() string {
	vs := content.Verticals()
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// Reclassify asks the model for a vertical, escalating from a detailed prompt
// to a simplified one and finally to the alternate model.
func (m *ModelClassifier) Reclassify(ctx context.Context, title, body string) (content.Vertical, error) {
	body = llm.Clip(body, maxClassifyInput)

	detailed := llm.Request{
		System: "You classify business news for a marketing intelligence product. " +
			"Pick the single industry vertical the story is primarily about. " +
			"Allowed verticals: " + labels() + ". " +
			`Respond with JSON only: {"vertical": "<one allowed vertical>"}.`,
		Prompt:      fmt.Sprintf("Title: %s\n\nContent: %s", title, body),
		Temperature: 0.1,
		MaxTokens:   60,
	}
	simple := llm.Request{
		Prompt: fmt.Sprintf("Which one of these industries is this headline about: %s?\n"+
			"Answer with the industry name only.\n\nHeadline: %s", labels(), title),
		Temperature: 0,
		MaxTokens:   20,
	}

	strategies := []retry.Strategy[content.Vertical]{
		{Name: "detailed", Run: m.ask(m.primary, detailed)},
		{Name: "simplified", Run: m.ask(m.primary, simple)},
		{Name: "alternate", Run: m.ask(m.alternate, simple)},
	}

	v, err := retry.Escalate(ctx, m.retry, strategies, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		m.log.Warn("reclassification failed", "title", title, "error", err)
		return "", fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return v, nil
}

func (m *ModelClassifier) ask(gen llm.Generator, req llm.Request) func(context.Context) (content.Vertical, error) {
	return func(ctx context.Context) (content.Vertical, error) {
		reply, err := gen.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return parseLabel(reply)
	}
}

// parseLabel accepts {"vertical": "..."} or a bare label.
func parseLabel(reply string) (content.Vertical, error) {
	var out struct {
		Vertical string `json:"vertical"`
	}
	label := llm.StripFences(reply)
	if err := llm.DecodeJSON(reply, &out); err == nil && out.Vertical != "" {
		label = out.Vertical
	}
	if v, ok := content.ParseVertical(label); ok {
		return v, nil
	}
	return "", fmt.Errorf("label %q is not an allowed vertical", llm.Clip(label, 60))
}
