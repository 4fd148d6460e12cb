package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const defaultAnthropicMaxTokens = 1024

type AnthropicGenerator struct {
	apiKey string
	model  string
}

var _ Generator = (*AnthropicGenerator)(nil)

func NewAnthropic(apiKey, model string) *AnthropicGenerator {
	return &AnthropicGenerator{apiKey: apiKey, model: model}
}

func (a *AnthropicGenerator) Name() string { return "anthropic/" + a.model }

// Generate runs the blocking llmkit call in a goroutine so ctx can abandon it.
func (a *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	settings := types.RequestSettings{
		Model:       a.model,
		MaxTokens:   req.MaxTokens,
		Temperature: float64(req.Temperature),
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = defaultAnthropicMaxTokens
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		response, err := anthropic.PromptWithSettings(req.System, req.Prompt, "", a.apiKey, settings)
		if err != nil {
			done <- result{err: fmt.Errorf("anthropic prompt: %w", err)}
			return
		}
		if len(response.Content) == 0 {
			done <- result{err: ErrEmptyResponse}
			return
		}
		done <- result{text: strings.TrimSpace(response.Content[0].Text)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err == nil && r.text == "" {
			return "", ErrEmptyResponse
		}
		return r.text, r.err
	}
}
