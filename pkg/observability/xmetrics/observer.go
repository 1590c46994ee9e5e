package xmetrics

import (
	"context"
	"strconv"
)

// Kind 跨度类型
type Kind int

const (
	// KindInternal 本地操作，例如缓存维护。
	KindInternal Kind = iota
	// KindClient 出站调用，例如一次逻辑 HTTP 请求。
	KindClient
)

// String 返回 Kind 的名称
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 操作结果
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 观测属性
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 跨度创建参数
type SpanOptions struct {
	// Component 组件名，例如 "xtransport"。
	Component string
	// Operation 操作名，例如 "Execute"。
	Operation string
	Kind      Kind
	// Attrs 开始时已知的属性，例如 HTTP 方法和路径。
	Attrs []Attr
}

// Result 跨度结束时的结果
type Result struct {
	// Status 为空时由 Err 推导。
	Status Status
	Err    error
	// Attrs 结束时才知道的属性，例如状态码和尝试次数。
	Attrs []Attr
}

// Span 一次逻辑操作的观测跨度
type Span interface {
	End(result Result)
}

// Observer 观测接口，Transport 每次逻辑请求开始一个跨度。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 空实现
type NoopObserver struct{}

// Start 原样返回 ctx（nil 时为 context.Background()）和空跨度
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度
type NoopSpan struct{}

// End 不做任何事
func (NoopSpan) End(_ Result) {}

// Start 使用 observer 开始观测。
//
// 返回值保证非 nil：nil ctx 替换为 context.Background()，
// nil observer 或 observer 返回的 nil Span 都替换为 [NoopSpan]。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
