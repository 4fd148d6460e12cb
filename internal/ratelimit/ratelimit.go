package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned once a provider or the run total hits its cap.
var ErrBudgetExhausted = errors.New("ai request budget exhausted")

// AIRateLimiter tracks per-provider and total generation requests for one run,
// plus cache hits that avoided a request. A limit of 0 means unlimited.
type AIRateLimiter struct {
	mu          sync.Mutex
	counts      map[string]int
	limits      map[string]int
	totalCount  int
	maxTotal    int
	resetEvery  time.Duration
	resetTime   time.Time
	tokensSaved int
	cacheHits   int
	cacheMisses int
	log         *slog.Logger
	now         func() time.Time
}

// NewAIRateLimiter creates a limiter. limits maps provider name to its cap.
func NewAIRateLimiter(limits map[string]int, maxTotal int, resetEvery time.Duration, log *slog.Logger) *AIRateLimiter {
	if log == nil {
		log = slog.Default()
	}
	l := make(map[string]int, len(limits))
	for k, v := range limits {
		l[k] = v
	}
	rl := &AIRateLimiter{
		counts:     make(map[string]int),
		limits:     l,
		maxTotal:   maxTotal,
		resetEvery: resetEvery,
		log:        log,
		now:        time.Now,
	}
	if resetEvery > 0 {
		rl.resetTime = rl.now().Add(resetEvery)
	}
	return rl
}

// Use reserves one request for provider.
func (rl *AIRateLimiter) Use(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	if err := rl.check(provider); err != nil {
		return err
	}

	rl.counts[provider]++
	rl.totalCount++
	rl.cacheMisses++

	rl.log.Debug("ai usage", "provider", provider, "used", rl.counts[provider],
		"limit", rl.limits[provider], "total", rl.totalCount, "total_limit", rl.maxTotal)
	return nil
}

func (rl *AIRateLimiter) check(provider string) error {
	if limit := rl.limits[provider]; limit > 0 && rl.counts[provider] >= limit {
		return fmt.Errorf("%w: %s (%d/%d)", ErrBudgetExhausted, provider, rl.counts[provider], limit)
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("%w: total (%d/%d)", ErrBudgetExhausted, rl.totalCount, rl.maxTotal)
	}
	return nil
}

// RecordCacheHit records a response served from cache.
func (rl *AIRateLimiter) RecordCacheHit(estimatedTokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cacheHits++
	rl.tokensSaved += estimatedTokens
}

func (rl *AIRateLimiter) hitRate() float64 {
	total := rl.cacheHits + rl.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(rl.cacheHits) / float64(total) * 100
}

// GetStats returns current rate limiter statistics
func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     rl.totalCount,
		"total_limit":    rl.maxTotal,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"cache_hit_rate": rl.hitRate(),
		"tokens_saved":   rl.tokensSaved,
	}
	for p, limit := range rl.limits {
		stats[p+"_limit"] = limit
		stats[p+"_used"] = rl.counts[p]
	}
	for p, n := range rl.counts {
		stats[p+"_used"] = n
	}
	if !rl.resetTime.IsZero() {
		stats["reset_time"] = rl.resetTime
	}
	return stats
}

// Reset starts a new budget period, e.g. at the start of a pipeline run.
func (rl *AIRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.reset()
}

// checkReset resets counters if reset time has passed
func (rl *AIRateLimiter) checkReset() {
	if rl.resetEvery <= 0 || !rl.now().After(rl.resetTime) {
		return
	}
	rl.log.Info("resetting ai rate limiter counters", "total_used", rl.totalCount, "cache_hits", rl.cacheHits)
	rl.reset()
}

func (rl *AIRateLimiter) reset() {
	rl.counts = make(map[string]int)
	rl.totalCount = 0
	rl.cacheHits = 0
	rl.cacheMisses = 0
	rl.tokensSaved = 0
	rl.resetTime = rl.now().Add(rl.resetEvery)
}

// Pacer enforces a minimum interval between consecutive calls across goroutines.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the caller's slot arrives or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.interval)
	p.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
