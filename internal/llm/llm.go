// Package llm is the text-generation boundary: provider clients behind one
// Generator interface, plus helpers to clean up what models send back.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ErrEmptyResponse = errors.New("empty response from model")

// Request is one prompt. Zero values leave provider defaults in place.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies provider and model, e.g. "gemini/gemini-2.5-flash".
	Name() string
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\n?(.*?)\\s*```$")

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// DecodeJSON extracts the first JSON object from a model reply and decodes it
// into v. Fences and prose around the object are tolerated.
func DecodeJSON(reply string, v any) error {
	s := StripFences(reply)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in reply %q", truncate(s, 80))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// Clip cuts s to at most n runes, preferring to end on a sentence boundary.
func Clip(s string, n int) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "\r", "")), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	trimmed := string([]rune(s)[:n])
	if idx := strings.LastIndex(trimmed, ". "); idx > n/4 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
