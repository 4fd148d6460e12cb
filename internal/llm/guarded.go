package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/signalfeed/internal/cache"
	"github.com/deusflow/signalfeed/internal/ratelimit"
)

// Guarded wraps a Generator with a response cache, a per-run request budget,
// call pacing and a per-call timeout. Cache hits skip the budget and the pacer.
type Guarded struct {
	next     Generator
	provider string
	cache    cache.Store
	ttl      time.Duration
	limiter  *ratelimit.AIRateLimiter
	pacer    *ratelimit.Pacer
	timeout  time.Duration
	log      *slog.Logger
}

var _ Generator = (*Guarded)(nil)

type GuardOptions struct {
	Provider string // budget bucket; defaults to the provider family of next.Name()
	Cache    cache.Store
	TTL      time.Duration
	Limiter  *ratelimit.AIRateLimiter
	Pacer    *ratelimit.Pacer
	Timeout  time.Duration // per provider call; 0 = DefaultTimeout
	Log      *slog.Logger
}

// DefaultTimeout bounds a provider call when GuardOptions.Timeout is unset.
const DefaultTimeout = 30 * time.Second

func NewGuarded(next Generator, opts GuardOptions) *Guarded {
	if opts.Provider == "" {
		opts.Provider, _, _ = strings.Cut(next.Name(), "/")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Guarded{
		next:     next,
		provider: opts.Provider,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		limiter:  opts.Limiter,
		pacer:    opts.Pacer,
		timeout:  opts.Timeout,
		log:      opts.Log,
	}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Generate(ctx context.Context, req Request) (string, error) {
	key := cache.GenerateKey(g.next.Name(), req.System, req.Prompt,
		strconv.FormatFloat(float64(req.Temperature), 'f', 2, 32), strconv.Itoa(req.MaxTokens))

	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn("generation cache read failed", "error", err)
		} else if ok {
			if g.limiter != nil {
				g.limiter.RecordCacheHit(len(req.Prompt) / 4)
			}
			return cached, nil
		}
	}

	if g.limiter != nil {
		if err := g.limiter.Use(g.provider); err != nil {
			return "", err
		}
	}
	if err := g.pacer.Wait(ctx); err != nil {
		return "", fmt.Errorf("pacing: %w", err)
	}

	out, err := g.call(ctx, req)
	if err != nil {
		return "", err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, out, g.ttl); err != nil {
			g.log.Warn("generation cache write failed", "error", err)
		}
	}
	return out, nil
}

func (g *Guarded) call(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.next.Generate(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		g.log.Warn("generation timed out", "provider", g.provider, "timeout", g.timeout)
		return "", fmt.Errorf("%s: no reply within %s: %w", g.provider, g.timeout, err)
	}
	return out, err
}
