package xbreaker

import (
	"sync"
	"time"
)

// 确保 *Breaker 实现 Gate 接口
var _ Gate = (*Breaker)(nil)

// Breaker 连续失败计数熔断器
//
// 所有状态读写都在 mu 内完成。状态变更回调在释放锁之后执行，
// 回调内可以安全地读取熔断器状态。
type Breaker struct {
	name          string
	cfg           Config
	now           func() time.Time
	onStateChange func(name string, from, to State)

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenCalls int
	// generation 每次状态变更递增，用于识别过期许可
	generation uint64
}

// Option 熔断器配置选项
type Option func(*Breaker)

// WithClock 设置时钟，主要用于测试
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithOnStateChange 设置状态变化回调
func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = f
	}
}

// New 创建熔断器，初始状态为关闭
func New(name string, cfg Config, opts ...Option) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Config 返回熔断器配置
func (b *Breaker) Config() Config {
	return b.cfg
}

// RecoveryTimeout 返回打开状态持续时间
func (b *Breaker) RecoveryTimeout() time.Duration {
	return b.cfg.RecoveryTimeout
}

// CanExecute 判断是否放行本次请求
//
// 打开状态下恢复时间到期时，由本次调用完成 Open → HalfOpen 转换，
// 并且本次调用占用第一个探测名额。
func (b *Breaker) CanExecute() bool {
	ok, _ := b.admit()
	return ok
}

// admit 返回是否放行以及放行时的 generation
func (b *Breaker) admit() (bool, uint64) {
	if b.cfg.Disabled {
		return true, 0
	}

	b.mu.Lock()
	var transition func()
	ok := false
	switch b.state {
	case StateClosed:
		ok = true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
			transition = b.setStateLocked(StateHalfOpen)
			b.halfOpenCalls = 1
			ok = true
		}
	case StateHalfOpen:
		if b.halfOpenCalls < b.cfg.HalfOpenMaxCalls {
			b.halfOpenCalls++
			ok = true
		}
	}
	gen := b.generation
	b.mu.Unlock()

	if transition != nil {
		transition()
	}
	return ok, gen
}

// RecordSuccess 记录一次成功
//
// 清零失败计数和探测计数；半开状态下转为关闭。
func (b *Breaker) RecordSuccess() {
	if b.cfg.Disabled {
		return
	}

	b.mu.Lock()
	var transition func()
	b.failures = 0
	b.halfOpenCalls = 0
	if b.state == StateHalfOpen {
		transition = b.setStateLocked(StateClosed)
	}
	b.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// RecordFailure 记录一次失败
//
// 半开状态下立即打开；关闭状态下连续失败达到阈值后打开。
// 打开状态下的迟到失败会刷新最后失败时间，推迟恢复。
func (b *Breaker) RecordFailure() {
	if b.cfg.Disabled {
		return
	}

	b.mu.Lock()
	var transition func()
	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case StateHalfOpen:
		transition = b.setStateLocked(StateOpen)
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			transition = b.setStateLocked(StateOpen)
		}
	}
	b.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// Abandon 归还一个未产生结果的半开探测名额
//
// 仅当熔断器仍处于放行时的同一个半开周期内才生效。
func (b *Breaker) Abandon() {
	b.abandon(b.generationNow())
}

func (b *Breaker) generationNow() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Breaker) abandon(gen uint64) {
	if b.cfg.Disabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.generation == gen && b.halfOpenCalls > 0 {
		b.halfOpenCalls--
	}
}

// Reset 手动重置为关闭状态并清零所有计数
func (b *Breaker) Reset() {
	b.mu.Lock()
	transition := b.setStateLocked(StateClosed)
	b.failures = 0
	b.halfOpenCalls = 0
	b.lastFailure = time.Time{}
	b.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// State 返回当前状态
//
// 只读取状态，不会触发 Open → HalfOpen 转换。
func (b *Breaker) State() State {
	if b.cfg.Disabled {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot 返回状态快照
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.failures,
		HalfOpenCalls:       b.halfOpenCalls,
		LastFailure:         b.lastFailure,
	}
}

// Acquire 获取一次放行许可
func (b *Breaker) Acquire() (Permit, error) {
	ok, gen := b.admit()
	if !ok {
		state := b.State()
		reason := ErrOpen
		if state == StateHalfOpen {
			reason = ErrTooManyProbes
		}
		return nil, &BreakerError{Err: reason, Name: b.name, State: state}
	}
	return &breakerPermit{b: b, gen: gen}, nil
}

// setStateLocked 在持有锁时切换状态，返回需要在锁外执行的回调
func (b *Breaker) setStateLocked(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.generation++
	if b.onStateChange == nil {
		return nil
	}
	name, cb := b.name, b.onStateChange
	return func() { cb(name, from, to) }
}

// breakerPermit 单次许可，只接受第一次结果报告
type breakerPermit struct {
	b    *Breaker
	gen  uint64
	once sync.Once
}

func (p *breakerPermit) Success() {
	p.once.Do(p.b.RecordSuccess)
}

func (p *breakerPermit) Failure() {
	p.once.Do(p.b.RecordFailure)
}

func (p *breakerPermit) Abandon() {
	p.once.Do(func() { p.b.abandon(p.gen) })
}
