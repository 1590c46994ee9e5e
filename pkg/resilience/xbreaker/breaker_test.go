package xbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 测试辅助
// ============================================================================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(t *testing.T, cfg Config, opts ...Option) (*Breaker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	b, err := New("test", cfg, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return b, clock
}

// ============================================================================
// 配置
// ============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"default", DefaultConfig(), nil},
		{"zero threshold", Config{FailureThreshold: 0, HalfOpenMaxCalls: 1}, ErrInvalidThreshold},
		{"negative recovery", Config{FailureThreshold: 1, RecoveryTimeout: -time.Second, HalfOpenMaxCalls: 1}, ErrInvalidRecovery},
		{"zero half-open", Config{FailureThreshold: 1}, ErrInvalidHalfOpenCalls},
		{"disabled skips validation", Config{Disabled: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultFailureThreshold, cfg.FailureThreshold)
	assert.Equal(t, DefaultHalfOpenMaxCalls, cfg.HalfOpenMaxCalls)
	// 0 表示立即恢复，不被默认值覆盖
	assert.Zero(t, cfg.RecoveryTimeout)
	require.NoError(t, cfg.Validate())

	cfg = Config{FailureThreshold: 2, RecoveryTimeout: time.Second}
	cfg.ApplyDefaults()
	assert.Equal(t, 2, cfg.FailureThreshold)
	assert.Equal(t, time.Second, cfg.RecoveryTimeout)
}

func TestNew_InvalidConfig(t *testing.T) {
	b, err := New("x", Config{})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "State(9)", State(9).String())
}

// ============================================================================
// 状态机
// ============================================================================

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	for range 2 {
		require.True(t, b.CanExecute())
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Snapshot().ConsecutiveFailures)

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanExecute())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Snapshot().ConsecutiveFailures)
}

func TestBreaker_RecoveryToHalfOpen(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, HalfOpenMaxCalls: 2})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	clock.Advance(9 * time.Second)
	assert.False(t, b.CanExecute())
	assert.Equal(t, StateOpen, b.State(), "State() must not trigger the transition")

	clock.Advance(time.Second)
	assert.True(t, b.CanExecute())
	snap := b.Snapshot()
	assert.Equal(t, StateHalfOpen, snap.State)
	assert.Equal(t, 1, snap.HalfOpenCalls)

	// 第二个探测名额
	assert.True(t, b.CanExecute())
	// 名额用完
	assert.False(t, b.CanExecute())
	assert.Equal(t, 2, b.Snapshot().HalfOpenCalls)
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 3})

	b.RecordFailure()
	clock.Advance(time.Second)
	require.True(t, b.CanExecute())

	b.RecordSuccess()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Zero(t, snap.HalfOpenCalls)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 5, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 3})

	for range 5 {
		b.RecordFailure()
	}
	clock.Advance(time.Second)
	require.True(t, b.CanExecute())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanExecute())

	// 重新计时
	clock.Advance(time.Second)
	assert.True(t, b.CanExecute())
}

func TestBreaker_LateFailureWhileOpenDelaysRecovery(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	clock.Advance(8 * time.Second)
	b.RecordFailure()
	clock.Advance(8 * time.Second)

	assert.False(t, b.CanExecute())
	clock.Advance(2 * time.Second)
	assert.True(t, b.CanExecute())
}

func TestBreaker_ZeroRecoveryTimeout(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: 0, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.True(t, b.CanExecute())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.True(t, snap.LastFailure.IsZero())
	assert.True(t, b.CanExecute())
}

func TestBreaker_Disabled(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Disabled: true})

	for range 100 {
		b.RecordFailure()
	}
	assert.True(t, b.CanExecute())
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Snapshot().ConsecutiveFailures)
}

func TestBreaker_OnStateChange(t *testing.T) {
	type change struct{ from, to State }
	var (
		mu      sync.Mutex
		changes []change
	)
	var b *Breaker
	b, clock := newTestBreaker(t,
		Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 1},
		WithOnStateChange(func(name string, from, to State) {
			assert.Equal(t, "test", name)
			// 回调在锁外执行，可以读取状态
			assert.Equal(t, to, b.State())
			mu.Lock()
			changes = append(changes, change{from, to})
			mu.Unlock()
		}),
	)

	b.RecordFailure()
	clock.Advance(time.Second)
	b.CanExecute()
	b.RecordSuccess()

	assert.Equal(t, []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, changes)
}

// ============================================================================
// Acquire / Permit
// ============================================================================

func TestBreaker_AcquireRejectsWhenOpen(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	p, err := b.Acquire()
	require.NoError(t, err)
	p.Failure()

	p, err = b.Acquire()
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.True(t, IsRejected(err))

	var be *BreakerError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, StateOpen, be.State)
	assert.False(t, be.Retryable())
	assert.Equal(t, "breaker test: xbreaker: circuit is open", be.Error())
}

func TestBreaker_AcquireRejectsExtraProbes(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	clock.Advance(time.Second)

	_, err := b.Acquire()
	require.NoError(t, err)

	_, err = b.Acquire()
	assert.ErrorIs(t, err, ErrTooManyProbes)
}

func TestBreaker_PermitReportsOnce(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	p, err := b.Acquire()
	require.NoError(t, err)
	p.Failure()
	p.Failure()
	p.Success()

	assert.Equal(t, 1, b.Snapshot().ConsecutiveFailures)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AbandonReturnsProbeSlot(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 1})

	b.RecordFailure()
	clock.Advance(time.Second)

	p, err := b.Acquire()
	require.NoError(t, err)
	_, err = b.Acquire()
	require.ErrorIs(t, err, ErrTooManyProbes)

	p.Abandon()
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Zero(t, b.Snapshot().HalfOpenCalls)

	_, err = b.Acquire()
	assert.NoError(t, err)
}

func TestBreaker_AbandonStalePermitIgnored(t *testing.T) {
	b, clock := newTestBreaker(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 2})

	b.RecordFailure()
	clock.Advance(time.Second)

	stale, err := b.Acquire()
	require.NoError(t, err)
	other, err := b.Acquire()
	require.NoError(t, err)

	// 另一个探测失败，重新打开后再次进入半开
	other.Failure()
	clock.Advance(time.Second)
	_, err = b.Acquire()
	require.NoError(t, err)

	stale.Abandon()
	assert.Equal(t, 1, b.Snapshot().HalfOpenCalls)
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b, err := New("concurrent", Config{FailureThreshold: 10, RecoveryTimeout: time.Millisecond, HalfOpenMaxCalls: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				p, err := b.Acquire()
				if err != nil {
					continue
				}
				switch (i + j) % 3 {
				case 0:
					p.Success()
				case 1:
					p.Failure()
				default:
					p.Abandon()
				}
			}
		}(i)
	}
	wg.Wait()

	snap := b.Snapshot()
	assert.GreaterOrEqual(t, snap.HalfOpenCalls, 0)
	assert.LessOrEqual(t, snap.HalfOpenCalls, 2)
}
