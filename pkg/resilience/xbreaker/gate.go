package xbreaker

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Gate 传输层使用的熔断抽象
type Gate interface {
	// Acquire 获取一次放行许可；被拒绝时返回 *BreakerError。
	Acquire() (Permit, error)

	// State 返回当前状态，不触发状态转换。
	State() State

	// Reset 手动重置为关闭状态。
	Reset()

	// RecoveryTimeout 返回打开状态的持续时间，用于告知调用方何时重试。
	RecoveryTimeout() time.Duration
}

// Permit 单次放行许可
//
// 每个许可只应报告一次结果，重复报告会被忽略。
type Permit interface {
	// Success 报告调用成功
	Success()
	// Failure 报告调用失败
	Failure()
	// Abandon 报告调用没有结果（如调用方取消）
	Abandon()
}

// NewGate 按 cfg.Impl 创建 Gate
//
// onStateChange 可为 nil，两种实现都会在状态变化时回调。
func NewGate(name string, cfg Config, onStateChange func(name string, from, to State)) (Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Impl == ImplGobreaker {
		g, err := NewGobreakerGate(name, cfg, onStateChange)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	var opts []Option
	if onStateChange != nil {
		opts = append(opts, WithOnStateChange(onStateChange))
	}
	b, err := New(name, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// errPermitFailure 报告失败时传给 gobreaker 的占位错误
var errPermitFailure = errors.New("xbreaker: permit reported failure")

// 确保 *GobreakerGate 实现 Gate 接口
var _ Gate = (*GobreakerGate)(nil)

// GobreakerGate 基于 sony/gobreaker/v2 TwoStepCircuitBreaker 的 Gate 实现
//
// 设计决策: 与 Breaker 的语义差异保留 gobreaker 原样：
// 打开状态的计时从进入打开状态开始，半开状态需要连续 HalfOpenMaxCalls 次成功才关闭。
// 需要严格的"一次成功即关闭"语义时使用 Breaker。
type GobreakerGate struct {
	name     string
	settings gobreaker.Settings
	cb       atomic.Pointer[gobreaker.TwoStepCircuitBreaker[any]]
}

// NewGobreakerGate 创建基于 gobreaker 的 Gate
//
// onStateChange 可为 nil。
func NewGobreakerGate(name string, cfg Config, onStateChange func(name string, from, to State)) (*GobreakerGate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	threshold := clampUint32(cfg.FailureThreshold)
	maxCalls := clampUint32(cfg.HalfOpenMaxCalls)
	if cfg.Disabled {
		threshold = math.MaxUint32
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: maxCalls,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}
	if onStateChange != nil {
		st.OnStateChange = func(n string, from, to gobreaker.State) {
			onStateChange(n, fromGobreaker(from), fromGobreaker(to))
		}
	}
	// gobreaker 的 Timeout 为 0 时使用 60s 默认值，这里用最小正值表示立即恢复
	if st.Timeout <= 0 {
		st.Timeout = time.Nanosecond
	}

	g := &GobreakerGate{name: name, settings: st}
	g.cb.Store(gobreaker.NewTwoStepCircuitBreaker[any](st))
	return g, nil
}

// Acquire 获取一次放行许可
func (g *GobreakerGate) Acquire() (Permit, error) {
	cb := g.cb.Load()
	done, err := cb.Allow()
	if err != nil {
		reason := ErrOpen
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = ErrTooManyProbes
		}
		return nil, &BreakerError{Err: reason, Name: g.name, State: fromGobreaker(cb.State())}
	}
	return &gobreakerPermit{done: done}, nil
}

// State 返回当前状态
func (g *GobreakerGate) State() State {
	return fromGobreaker(g.cb.Load().State())
}

// Reset 替换为新的底层熔断器
//
// 旧熔断器上未完成的许可报告结果时只影响旧实例。
func (g *GobreakerGate) Reset() {
	g.cb.Store(gobreaker.NewTwoStepCircuitBreaker[any](g.settings))
}

// RecoveryTimeout 返回打开状态持续时间
func (g *GobreakerGate) RecoveryTimeout() time.Duration {
	return g.settings.Timeout
}

// Counts 返回底层 gobreaker 统计
func (g *GobreakerGate) Counts() gobreaker.Counts {
	return g.cb.Load().Counts()
}

type gobreakerPermit struct {
	done     func(err error)
	reported atomic.Bool
}

func (p *gobreakerPermit) report(err error) {
	if p.reported.CompareAndSwap(false, true) {
		p.done(err)
	}
}

func (p *gobreakerPermit) Success() { p.report(nil) }
func (p *gobreakerPermit) Failure() { p.report(errPermitFailure) }
func (p *gobreakerPermit) Abandon() { p.report(context.Canceled) }

// clampUint32 将 int 安全转换为 uint32
func clampUint32(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
