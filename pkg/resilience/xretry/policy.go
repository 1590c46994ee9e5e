package xretry

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// 默认值
const (
	// DefaultMaxRetries 默认最大重试次数（不含首次尝试）
	DefaultMaxRetries = 3

	// DefaultBackoffFactor 默认退避因子
	DefaultBackoffFactor = 500 * time.Millisecond
)

// DefaultRetryableStatuses 默认可重试的 HTTP 状态码
var DefaultRetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Policy HTTP 重试策略
//
// Policy 构建后不再修改，可以在多个 goroutine 间共享。
type Policy struct {
	// MaxRetries 最大重试次数，总尝试次数为 MaxRetries+1。
	MaxRetries int `koanf:"max_retries" json:"max_retries" yaml:"max_retries"`

	// BackoffFactor 退避因子，第 attempt 次失败后等待 BackoffFactor * 2^attempt。
	BackoffFactor time.Duration `koanf:"backoff_factor" json:"backoff_factor" yaml:"backoff_factor"`

	// RetryableStatuses 可重试状态码，为空时使用 DefaultRetryableStatuses。
	RetryableStatuses []int `koanf:"retryable_statuses" json:"retryable_statuses" yaml:"retryable_statuses"`
}

// Decision 单次失败后的重试决策
type Decision struct {
	// Retry 是否继续重试
	Retry bool
	// Wait 下次尝试前的等待时间
	Wait time.Duration
}

// DefaultPolicy 返回默认策略：3 次重试，0.5s 退避因子
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        DefaultMaxRetries,
		BackoffFactor:     DefaultBackoffFactor,
		RetryableStatuses: slices.Clone(DefaultRetryableStatuses),
	}
}

// Validate 校验策略
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if p.BackoffFactor < 0 {
		return ErrInvalidBackoff
	}
	return nil
}

// MaxAttempts 返回总尝试次数（包含首次尝试）
func (p Policy) MaxAttempts() int {
	return max(p.MaxRetries, 0) + 1
}

// Backoff 返回第 attempt 次（从 0 开始）失败后的退避时间
//
// 结果随 attempt 单调不减，溢出时饱和为最大 Duration。
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BackoffFactor <= 0 {
		return 0
	}
	attempt = max(attempt, 0)
	if attempt >= 62 {
		return time.Duration(math.MaxInt64)
	}
	mult := int64(1) << attempt
	if int64(p.BackoffFactor) > math.MaxInt64/mult {
		return time.Duration(math.MaxInt64)
	}
	return p.BackoffFactor * time.Duration(mult)
}

// ShouldRetryStatus 判断状态码是否可重试
func (p Policy) ShouldRetryStatus(code int) bool {
	statuses := p.RetryableStatuses
	if len(statuses) == 0 {
		statuses = DefaultRetryableStatuses
	}
	return slices.Contains(statuses, code)
}

// DecideStatus 对非成功状态码做重试决策
//
// 状态码不可重试或已用完预算时返回 Retry=false。
// 仅 429 响应的整数秒 Retry-After 会覆盖退避时间，
// 其他可重试状态码（如 503）即使携带该头也按退避时间等待。
func (p Policy) DecideStatus(attempt, code int, header http.Header) Decision {
	if !p.ShouldRetryStatus(code) || attempt >= p.MaxRetries {
		return Decision{}
	}
	if code == http.StatusTooManyRequests {
		if wait, ok := RetryAfter(header); ok {
			return Decision{Retry: true, Wait: wait}
		}
	}
	return Decision{Retry: true, Wait: p.Backoff(attempt)}
}

// DecideError 对网络错误、超时错误做重试决策
//
// 标记为不可重试的错误（PermanentError 等）直接终止。
func (p Policy) DecideError(attempt int, err error) Decision {
	if err == nil || attempt >= p.MaxRetries || !IsRetryable(err) {
		return Decision{}
	}
	return Decision{Retry: true, Wait: p.Backoff(attempt)}
}

// RetryAfter 解析 Retry-After 头中的整数秒
//
// 头不存在、不是非负整数（例如 HTTP 日期格式）时 ok 为 false。
func RetryAfter(header http.Header) (wait time.Duration, ok bool) {
	if header == nil {
		return 0, false
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs < 0 || secs > math.MaxInt64/int64(time.Second) {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
