// Package xretry 提供 HTTP 传输层的重试决策和重试循环。
//
// # 重试决策
//
// [Policy] 是纯函数式的决策对象，同步与异步执行路径共用：
//   - 可重试状态码固定为 {429, 500, 502, 503, 504}（可配置）
//   - 网络错误与超时错误在尝试预算内可重试
//   - 429 响应的等待时间优先使用 Retry-After（整数秒），否则为 BackoffFactor * 2^attempt
//   - 最多 MaxRetries+1 次尝试，attempt 从 0 开始计数
//
// # 重试循环
//
// [Do] 基于 [avast/retry-go/v5] 驱动循环。回调通过返回 [TemporaryError]
// 请求重试（可携带指定等待时间），返回 [PermanentError] 或 retry-go 的
// Unrecoverable 立即终止。退避等待期间 ctx 取消会立即返回。
//
//	resp, err := xretry.Do(ctx, policy, func(ctx context.Context, attempt int) (*Resp, error) {
//	    resp, err := call(ctx)
//	    if err != nil {
//	        if d := policy.DecideError(attempt, err); d.Retry {
//	            return nil, xretry.NewTemporaryErrorAfter(err, d.Wait)
//	        }
//	        return nil, xretry.NewPermanentError(err)
//	    }
//	    return resp, nil
//	})
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
