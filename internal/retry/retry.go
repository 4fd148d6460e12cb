package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // linear backoff: attempt * Delay
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if c.Backoff {
		return time.Duration(attempt) * c.Delay
	}
	return c.Delay
}

func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			if err := sleep(ctx, config.delay(attempt)); err != nil {
				return err
			}
			continue
		}
		return nil
	}

	return lastErr
}

// ErrExhausted is matched by every ExhaustedError.
var ErrExhausted = errors.New("all strategies failed")

// Strategy is one way of producing a result, e.g. one prompt variant.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// AttemptError records why a single attempt was rejected.
type AttemptError struct {
	Attempt  int
	Strategy string
	Err      error
}

// ExhaustedError lists every failed attempt of an Escalate call.
type ExhaustedError struct {
	Attempts []AttemptError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("#%d %s: %v", a.Attempt, a.Strategy, a.Err))
	}
	return fmt.Sprintf("%v (%s)", ErrExhausted, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Escalate runs strategies in order, one per attempt, until one produces a
// value that validate accepts. A run error and a validation error count the
// same. When the attempt budget exceeds the number of strategies the last
// strategy is repeated. Context cancellation stops immediately.
func Escalate[T any](ctx context.Context, cfg RetryConfig, strategies []Strategy[T], validate func(T) error) (T, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, errors.New("no strategies")
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = len(strategies)
	}

	failed := &ExhaustedError{}
	for attempt := 1; attempt <= attempts; attempt++ {
		idx := attempt - 1
		if idx >= len(strategies) {
			idx = len(strategies) - 1
		}
		s := strategies[idx]

		value, err := s.Run(ctx)
		if err == nil && validate != nil {
			err = validate(value)
		}
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		failed.Attempts = append(failed.Attempts, AttemptError{Attempt: attempt, Strategy: s.Name, Err: err})

		if attempt < attempts {
			if err := sleep(ctx, cfg.delay(attempt)); err != nil {
				return zero, err
			}
		}
	}
	return zero, failed
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
