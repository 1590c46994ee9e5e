package xretry

import (
	"errors"
	"time"
)

// 参数校验错误
var (
	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xretry: context cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xretry: function cannot be nil")

	// ErrInvalidMaxRetries 最大重试次数不能为负
	ErrInvalidMaxRetries = errors.New("xretry: max retries must be >= 0")

	// ErrInvalidBackoff 退避因子不能为负
	ErrInvalidBackoff = errors.New("xretry: backoff factor must be >= 0")
)

// RetryableError 可重试错误接口
// 实现此接口的错误会被自动识别为可重试或不可重试
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误（不应重试）
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func (e *PermanentError) Retryable() bool {
	return false
}

// TemporaryError 临时性错误（应该重试）
//
// 可携带指定的等待时间（例如来自 Retry-After），未指定时由 Policy 计算退避。
type TemporaryError struct {
	Err     error
	wait    time.Duration
	hasWait bool
}

// NewTemporaryError 创建临时性错误，等待时间由退避策略决定
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

// NewTemporaryErrorAfter 创建带指定等待时间的临时性错误
func NewTemporaryErrorAfter(err error, wait time.Duration) *TemporaryError {
	return &TemporaryError{Err: err, wait: max(wait, 0), hasWait: true}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error {
	return e.Err
}

func (e *TemporaryError) Retryable() bool {
	return true
}

// Wait 返回指定的等待时间；未指定时 ok 为 false
func (e *TemporaryError) Wait() (wait time.Duration, ok bool) {
	return e.wait, e.hasWait
}

// IsRetryable 检查错误是否可重试
// 规则：
//   - nil 错误：不需要重试（视为成功）
//   - 实现 RetryableError 接口：根据 Retryable() 返回值判断
//   - 其他错误：默认视为可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}

	// 默认：未知错误视为可重试
	return true
}

// IsPermanent 检查错误是否为永久性错误
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return !IsRetryable(err)
}

// unwrapMarker 去掉最外层的 Temporary/Permanent 标记，返回调用方的原始错误
func unwrapMarker(err error) error {
	switch e := err.(type) { //nolint:errorlint // 只剥离最外层标记
	case *TemporaryError:
		if e.Err != nil {
			return e.Err
		}
	case *PermanentError:
		if e.Err != nil {
			return e.Err
		}
	}
	return err
}
