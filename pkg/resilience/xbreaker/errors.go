package xbreaker

import (
	"errors"
	"fmt"
)

// 拒绝原因
var (
	// ErrOpen 熔断器处于打开状态
	ErrOpen = errors.New("xbreaker: circuit is open")

	// ErrTooManyProbes 半开状态下探测名额已用完
	ErrTooManyProbes = errors.New("xbreaker: too many half-open probes")
)

// 配置校验错误
var (
	// ErrInvalidThreshold 失败阈值必须 >= 1
	ErrInvalidThreshold = errors.New("xbreaker: failure threshold must be >= 1")

	// ErrInvalidRecovery 恢复时间不能为负
	ErrInvalidRecovery = errors.New("xbreaker: recovery timeout must be >= 0")

	// ErrInvalidHalfOpenCalls 半开探测数必须 >= 1
	ErrInvalidHalfOpenCalls = errors.New("xbreaker: half-open max calls must be >= 1")

	// ErrInvalidImpl 未知的熔断器实现
	ErrInvalidImpl = errors.New("xbreaker: unknown breaker implementation")
)

// BreakerError 熔断器拒绝请求时返回的错误
//
// 实现 Retryable() 返回 false：熔断器拒绝属于快速失败，重试器不应继续退避。
type BreakerError struct {
	Err   error  // ErrOpen 或 ErrTooManyProbes
	Name  string // 熔断器名称
	State State  // 拒绝时的状态
}

// Error 实现 error 接口
func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

// Unwrap 实现 errors.Unwrap 接口
func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 熔断器拒绝不可重试
func (e *BreakerError) Retryable() bool {
	return false
}

// IsRejected 判断错误是否为熔断器拒绝
func IsRejected(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyProbes)
}
