package xretry

import (
	"context"
	"errors"
	"testing"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, BackoffFactor: time.Millisecond}
}

func TestDo(t *testing.T) {
	t.Run("SuccessOnFirstAttempt", func(t *testing.T) {
		var attempts []int
		v, err := Do(context.Background(), fastPolicy(3), func(_ context.Context, attempt int) (string, error) {
			attempts = append(attempts, attempt)
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, []int{0}, attempts)
	})

	t.Run("SuccessAfterRetry", func(t *testing.T) {
		var attempts []int
		v, err := Do(context.Background(), fastPolicy(3), func(_ context.Context, attempt int) (int, error) {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return 0, NewTemporaryError(errors.New("busy"))
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, []int{0, 1, 2}, attempts)
	})

	t.Run("FailAfterMaxAttempts", func(t *testing.T) {
		cause := errors.New("still busy")
		var calls int
		_, err := Do(context.Background(), fastPolicy(2), func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, NewTemporaryError(cause)
		})
		assert.Equal(t, 3, calls)
		assert.Same(t, cause, err, "marker wrapper is removed")
	})

	t.Run("ZeroRetries", func(t *testing.T) {
		var calls int
		_, err := Do(context.Background(), fastPolicy(0), func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("PermanentErrorNoRetry", func(t *testing.T) {
		cause := errors.New("not found")
		var calls int
		_, err := Do(context.Background(), fastPolicy(5), func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, NewPermanentError(cause)
		})
		assert.Same(t, cause, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("UnrecoverableErrorNoRetry", func(t *testing.T) {
		var calls int
		_, err := Do(context.Background(), fastPolicy(5), func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, retry.Unrecoverable(errors.New("fatal"))
		})
		assert.EqualError(t, err, "fatal")
		assert.Equal(t, 1, calls)
	})

	t.Run("TemporaryWaitOverridesBackoff", func(t *testing.T) {
		p := Policy{MaxRetries: 1, BackoffFactor: time.Hour}
		start := time.Now()
		_, err := Do(context.Background(), p, func(_ context.Context, attempt int) (int, error) {
			if attempt == 0 {
				return 0, NewTemporaryErrorAfter(errors.New("rate limited"), time.Millisecond)
			}
			return 1, nil
		})
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Minute)
	})

	t.Run("OnRetryCallback", func(t *testing.T) {
		var seen []int
		_, _ = Do(context.Background(), fastPolicy(2), func(_ context.Context, _ int) (int, error) {
			return 0, NewTemporaryError(errors.New("x"))
		}, WithOnRetry(func(attempt int, err error) {
			assert.EqualError(t, err, "x")
			seen = append(seen, attempt)
		}))
		require.NotEmpty(t, seen)
		assert.Equal(t, 0, seen[0])
	})
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 3, BackoffFactor: time.Hour}

	var calls int
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, NewTemporaryError(errors.New("busy"))
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDo_InvalidArgs(t *testing.T) {
	//nolint:staticcheck // SA1012: 故意传入 nil context
	_, err := Do[int](nil, fastPolicy(1), func(context.Context, int) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = Do[int](context.Background(), fastPolicy(1), nil)
	assert.ErrorIs(t, err, ErrNilFunc)
}
