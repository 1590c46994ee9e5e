package xtransport

import "context"

// Future 异步请求的结果
//
// 结果只写入一次；Done 关闭后 Result 不再阻塞。
type Future struct {
	done chan struct{}
	resp *Response
	err  error
}

// Go 在新的 goroutine 中执行请求并立即返回
//
// 与 Execute 使用同一条决策路径：熔断、条件缓存、重试与错误分类完全一致，
// 区别只在于调用方不被阻塞。取消 ctx 会中止执行，Future 得到 ctx 的错误。
func (t *Transport) Go(ctx context.Context, req Request) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.resp, f.err = t.Execute(ctx, req)
	}()
	return f
}

// Done 返回在请求结束后关闭的 channel
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 等待结果，ctx 结束时提前返回 ctx 的错误（请求本身不受影响）。
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	if ctx == nil {
		return f.Result()
	}
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result 阻塞直到请求结束并返回结果
func (f *Future) Result() (*Response, error) {
	<-f.done
	return f.resp, f.err
}
