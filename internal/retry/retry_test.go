package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3}, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2}, func() error {
		return errors.New("boom")
	})
	assert.ErrorContains(t, err, "failed after 2 attempts")
}

func TestEscalateTriesStrategiesInOrder(t *testing.T) {
	var order []string
	mk := func(name, out string) Strategy[string] {
		return Strategy[string]{Name: name, Run: func(context.Context) (string, error) {
			order = append(order, name)
			return out, nil
		}}
	}
	validate := func(s string) error {
		if s != "good" {
			return errors.New("rejected")
		}
		return nil
	}

	got, err := Escalate(context.Background(), RetryConfig{MaxAttempts: 3},
		[]Strategy[string]{mk("detailed", "bad"), mk("simplified", "good"), mk("alternate", "good")}, validate)
	require.NoError(t, err)
	assert.Equal(t, "good", got)
	assert.Equal(t, []string{"detailed", "simplified"}, order)
}

func TestEscalateExhausted(t *testing.T) {
	boom := errors.New("boom")
	s := Strategy[int]{Name: "only", Run: func(context.Context) (int, error) { return 0, boom }}

	_, err := Escalate(context.Background(), RetryConfig{MaxAttempts: 3}, []Strategy[int]{s}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Len(t, ex.Attempts, 3, "last strategy repeats to fill the attempt budget")
}

func TestEscalateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := Strategy[int]{Name: "cancel", Run: func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("late")
	}}
	_, err := Escalate(ctx, RetryConfig{MaxAttempts: 3}, []Strategy[int]{s}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
