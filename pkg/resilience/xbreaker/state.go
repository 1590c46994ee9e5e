package xbreaker

import (
	"strconv"
	"time"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭：正常放行
	StateClosed State = iota
	// StateOpen 打开：拒绝请求
	StateOpen
	// StateHalfOpen 半开：放行有限的探测请求
	StateHalfOpen
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Snapshot 熔断器状态快照，用于诊断和测试。
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	HalfOpenCalls       int
	LastFailure         time.Time
}
