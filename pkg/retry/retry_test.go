package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "rewardsreceipts/pkg/errors"
	"rewardsreceipts/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.NewNetworkError("connection reset", errors.New("reset")), true},
		{"status", errs.NewStatusError("unexpected status", 502), true},
		{"api", errs.NewAPIError([]errs.APIError{{Code: "X"}}), false},
		{"parsing", errs.NewParseError("bad json", errors.New("eof")), false},
		{"io", errs.NewIOError("write failed", errors.New("disk full")), false},
		{"unknown", errs.NewUnknownError([]byte("{}")), false},
		{"untyped", errors.New("plain"), false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetryIf(tt.err))
		})
	}
}

func TestDoRetriesNetworkErrorsUntilSuccess(t *testing.T) {
	attempts := 0
	log := logger.NewTestLogger()

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.NewNetworkError("timeout", nil)
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      log,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
	assert.True(t, log.HasMessage("operation succeeded after retry"))
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	apiErr := errs.NewAPIError([]errs.APIError{{Code: "AUTH", Status: 401}})

	err := Do(func() error {
		attempts++
		return apiErr
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	})

	assert.Same(t, apiErr, err)
	assert.Equal(t, 1, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	var retried []int

	err := Do(func() error {
		attempts++
		return errs.NewNetworkError("unreachable", nil)
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retried = append(retried, attempt)
		},
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestDoSingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	netErr := errs.NewNetworkError("unreachable", nil)
	err := Do(func() error { return netErr }, DefaultConfig())
	assert.Same(t, netErr, err)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		cancel()
		return errs.NewNetworkError("unreachable", nil)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Context:     ctx,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestAttemptWithNilPolicyRunsOnce(t *testing.T) {
	calls := 0
	got, err := Attempt(context.Background(), nil, func() (string, error) {
		calls++
		return "", errs.NewNetworkError("unreachable", nil)
	})

	require.Error(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, calls)
}

func TestAttemptWithPolicy(t *testing.T) {
	policy := NewPolicy(2, time.Millisecond, nil).WithBackoff(&ConstantBackoff{Delay: time.Millisecond})
	assert.Equal(t, 2, policy.MaxAttempts())

	calls := 0
	got, err := Attempt(context.Background(), policy, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errs.NewStatusError("unexpected status", 503)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
