// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/deusflow/signalfeed/internal/llm"
)

// ErrScriptExhausted is returned when more calls arrive than replies were queued.
var ErrScriptExhausted = errors.New("llmtest: no scripted reply left")

type Reply struct {
	Text string
	Err  error
}

// Generator returns queued replies in order, or Respond if set.
type Generator struct {
	mu      sync.Mutex
	name    string
	replies []Reply
	calls   []llm.Request

	// Respond, when set, answers every call instead of the queue.
	Respond func(req llm.Request) (string, error)

	// Hang makes every call block until ctx is done, like a stuck provider.
	Hang bool
}

var _ llm.Generator = (*Generator)(nil)

func New(name string, replies ...string) *Generator {
	g := &Generator{name: name}
	for _, r := range replies {
		g.replies = append(g.replies, Reply{Text: r})
	}
	return g
}

// Queue appends replies, errors included.
func (g *Generator) Queue(replies ...Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, replies...)
	return g
}

func (g *Generator) Name() string { return g.name }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	respond := g.Respond
	var next *Reply
	if respond == nil && len(g.replies) > 0 {
		r := g.replies[0]
		g.replies = g.replies[1:]
		next = &r
	}
	hang := g.Hang
	g.mu.Unlock()

	if hang {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(req)
	}
	if next == nil {
		return "", ErrScriptExhausted
	}
	return next.Text, next.Err
}

// Calls returns a copy of every request received.
func (g *Generator) Calls() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.calls...)
}
