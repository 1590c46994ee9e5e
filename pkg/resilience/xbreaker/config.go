package xbreaker

import (
	"fmt"
	"time"
)

// 默认值
const (
	// DefaultFailureThreshold 默认连续失败阈值
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout 默认从打开到半开的等待时间
	DefaultRecoveryTimeout = 30 * time.Second

	// DefaultHalfOpenMaxCalls 默认半开状态最大探测数
	DefaultHalfOpenMaxCalls = 3
)

// 熔断器实现
const (
	// ImplBuiltin 内置 Breaker（默认）
	ImplBuiltin = "builtin"
	// ImplGobreaker 基于 sony/gobreaker 的 GobreakerGate
	ImplGobreaker = "gobreaker"
)

// Config 熔断器配置
//
// 调用方应从 DefaultConfig 出发再覆盖字段（启用，阈值 5，恢复 30s，探测 3）。
// RecoveryTimeout 为 0 是合法取值，表示打开后下一次调用即进入半开，
// ApplyDefaults 不会覆盖它。
type Config struct {
	// Disabled 为 true 时熔断器始终放行，记录操作为空操作。
	Disabled bool `koanf:"disabled" json:"disabled" yaml:"disabled"`

	// Impl 选择 NewGate 创建的实现：builtin（空值同义）或 gobreaker。
	Impl string `koanf:"impl" json:"impl,omitempty" yaml:"impl,omitempty"`

	// FailureThreshold 连续失败多少次后打开。
	FailureThreshold int `koanf:"failure_threshold" json:"failure_threshold" yaml:"failure_threshold"`

	// RecoveryTimeout 最后一次失败后多久允许进入半开。
	RecoveryTimeout time.Duration `koanf:"recovery_timeout" json:"recovery_timeout" yaml:"recovery_timeout"`

	// HalfOpenMaxCalls 半开状态下最多放行的探测请求数。
	HalfOpenMaxCalls int `koanf:"half_open_max_calls" json:"half_open_max_calls" yaml:"half_open_max_calls"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		RecoveryTimeout:  DefaultRecoveryTimeout,
		HalfOpenMaxCalls: DefaultHalfOpenMaxCalls,
	}
}

// ApplyDefaults 为零值即非法的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = DefaultHalfOpenMaxCalls
	}
}

// Validate 校验配置
//
// 禁用的熔断器不做校验。
func (c Config) Validate() error {
	switch c.Impl {
	case "", ImplBuiltin, ImplGobreaker:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidImpl, c.Impl)
	}
	if c.Disabled {
		return nil
	}
	if c.FailureThreshold < 1 {
		return ErrInvalidThreshold
	}
	if c.RecoveryTimeout < 0 {
		return ErrInvalidRecovery
	}
	if c.HalfOpenMaxCalls < 1 {
		return ErrInvalidHalfOpenCalls
	}
	return nil
}
