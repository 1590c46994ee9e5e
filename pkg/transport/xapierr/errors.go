// Package xapierr 定义 API 调用的错误分类。
//
// 所有终止性失败都以 *Error 返回，Kind 为封闭枚举。
// 调用方可以用 errors.Is 匹配分类哨兵（如 ErrNotFound），
// 或用 errors.As 取出 *Error 读取状态码、请求 ID 和截断后的响应体。
package xapierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind 错误分类
type Kind int

const (
	// KindUnknown 未归类的失败
	KindUnknown Kind = iota
	// KindAuthentication 认证失败（401）
	KindAuthentication
	// KindForbidden 权限不足（403）
	KindForbidden
	// KindNotFound 资源不存在（404）
	KindNotFound
	// KindValidation 请求校验失败（400、422）
	KindValidation
	// KindConflict 资源冲突（409）
	KindConflict
	// KindRateLimited 被限流（429）
	KindRateLimited
	// KindServer 服务端错误（500）
	KindServer
	// KindServiceUnavailable 服务不可用（503）
	KindServiceUnavailable
	// KindTimeout 任一阶段超时
	KindTimeout
	// KindCircuitOpen 熔断器拒绝
	KindCircuitOpen
	// KindNetwork 网络错误
	KindNetwork
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindAuthentication:     "authentication",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindValidation:         "validation",
	KindConflict:           "conflict",
	KindRateLimited:        "rate_limited",
	KindServer:             "server",
	KindServiceUnavailable: "service_unavailable",
	KindTimeout:            "timeout",
	KindCircuitOpen:        "circuit_open",
	KindNetwork:            "network",
}

// String 返回分类名称
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// =============================================================================
// 分类哨兵
// =============================================================================

var (
	ErrUnknown            = errors.New("xapierr: unknown error")
	ErrAuthentication     = errors.New("xapierr: authentication failed")
	ErrForbidden          = errors.New("xapierr: forbidden")
	ErrNotFound           = errors.New("xapierr: not found")
	ErrValidation         = errors.New("xapierr: validation failed")
	ErrConflict           = errors.New("xapierr: conflict")
	ErrRateLimited        = errors.New("xapierr: rate limited")
	ErrServer             = errors.New("xapierr: server error")
	ErrServiceUnavailable = errors.New("xapierr: service unavailable")
	ErrTimeout            = errors.New("xapierr: timeout")
	ErrCircuitOpen        = errors.New("xapierr: circuit open")
	ErrNetwork            = errors.New("xapierr: network error")
)

var kindSentinels = [...]error{
	KindUnknown:            ErrUnknown,
	KindAuthentication:     ErrAuthentication,
	KindForbidden:          ErrForbidden,
	KindNotFound:           ErrNotFound,
	KindValidation:         ErrValidation,
	KindConflict:           ErrConflict,
	KindRateLimited:        ErrRateLimited,
	KindServer:             ErrServer,
	KindServiceUnavailable: ErrServiceUnavailable,
	KindTimeout:            ErrTimeout,
	KindCircuitOpen:        ErrCircuitOpen,
	KindNetwork:            ErrNetwork,
}

// Sentinel 返回分类对应的哨兵错误
func (k Kind) Sentinel() error {
	if k >= 0 && int(k) < len(kindSentinels) {
		return kindSentinels[k]
	}
	return ErrUnknown
}

// =============================================================================
// Error
// =============================================================================

// Error API 调用的终止性错误
type Error struct {
	Kind       Kind
	StatusCode int    // 非 HTTP 失败（超时、网络、熔断）为 0
	Message    string // 服务端消息或本地描述
	RequestID  string
	Body       string // 截断后的响应体

	// RetryAfter 仅 KindRateLimited 且响应带整数秒 Retry-After 时有效
	RetryAfter    time.Duration
	HasRetryAfter bool

	// RecoveryTimeout 仅 KindCircuitOpen 有效
	RecoveryTimeout time.Duration

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("xapierr: ")
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status=%d", e.StatusCode)
		if e.RequestID != "" {
			b.WriteString(", request_id=")
			b.WriteString(e.RequestID)
		}
		b.WriteByte(')')
	} else if e.RequestID != "" {
		b.WriteString(" (request_id=")
		b.WriteString(e.RequestID)
		b.WriteByte(')')
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 实现 errors.Is 接口，匹配分类哨兵。
func (e *Error) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// Retryable 判断错误本身是否属于瞬时失败。
// 传输层是否真的重试还受重试预算约束。
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindServiceUnavailable, KindTimeout, KindNetwork:
		return true
	case KindCircuitOpen:
		return false
	}
	return e.StatusCode == http.StatusBadGateway || e.StatusCode == http.StatusGatewayTimeout
}

// KindOf 返回错误链中 *Error 的分类，不存在时返回 KindUnknown。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// =============================================================================
// 非 HTTP 失败构造
// =============================================================================

// NewTimeout 创建超时错误
func NewTimeout(err error) *Error {
	return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
}

// NewNetwork 创建网络错误
func NewNetwork(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "network error", Err: err}
}

// NewCircuitOpen 创建熔断拒绝错误，recovery 为熔断器打开状态的持续时间。
func NewCircuitOpen(recovery time.Duration, err error) *Error {
	return &Error{
		Kind:            KindCircuitOpen,
		Message:         fmt.Sprintf("circuit breaker is open, retry after %s", recovery),
		RecoveryTimeout: recovery,
		Err:             err,
	}
}

// NewUnknown 创建未归类错误
func NewUnknown(message string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}
