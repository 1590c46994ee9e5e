package xretry

import (
	"context"
	"errors"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// RunOption 重试循环的配置选项
type RunOption func(*runOptions)

type runOptions struct {
	onRetry func(attempt int, err error)
}

// WithOnRetry 设置重试回调，attempt 为失败的尝试序号（从 0 开始）。
// 注意：retry-go 在最后一次尝试失败后也会调用该回调。
func WithOnRetry(f func(attempt int, err error)) RunOption {
	return func(o *runOptions) {
		if f != nil {
			o.onRetry = f
		}
	}
}

// Do 按策略执行带重试的操作
//
// fn 接收从 0 开始的尝试序号。fn 返回的错误决定是否继续：
//   - *TemporaryError：在尝试预算内重试，等待时间取其 Wait，未指定时取 Policy.Backoff
//   - *PermanentError、retry.Unrecoverable：立即终止
//   - 其他错误：在尝试预算内按退避重试
//
// 返回的错误去掉了 Temporary/Permanent 标记。ctx 取消时返回 ctx 的错误。
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error), opts ...RunOption) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	v, err := retry.NewWithData[T](p.options(ctx, o)...).Do(func() (T, error) {
		n := attempt
		attempt++
		return fn(ctx, n)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return zero, ctxErr
		}
		return v, unwrapMarker(err)
	}
	return v, nil
}

// options 构建 retry-go 的选项
func (p Policy) options(ctx context.Context, o runOptions) []retry.Option {
	opts := make([]retry.Option, 0, 6)
	opts = append(opts,
		retry.Context(ctx),
		retry.Attempts(safeIntToUint(p.MaxAttempts())),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return retry.IsRecoverable(err) && IsRetryable(err)
		}),
		// 注意：retry-go v5 中 DelayType 的 n 从 1 开始
		retry.DelayType(func(n uint, err error, _ retry.DelayContext) time.Duration {
			var te *TemporaryError
			if errors.As(err, &te) {
				if wait, ok := te.Wait(); ok {
					return wait
				}
			}
			return p.Backoff(safeUintToInt(n) - 1)
		}),
		retry.LastErrorOnly(true),
	)
	if o.onRetry != nil {
		// 注意：retry-go v5 中 OnRetry 的 n 从 0 开始
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			o.onRetry(safeUintToInt(n), unwrapMarker(err))
		}))
	}
	return opts
}

// safeIntToUint 将 int 安全转换为 uint，负数返回 0
func safeIntToUint(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(n)
}

// safeUintToInt 将 uint 安全转换为 int，超过 MaxInt 截断
func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
