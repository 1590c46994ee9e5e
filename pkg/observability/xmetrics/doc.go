// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr，
// 传输层只依赖接口；具体实现可替换。
// 默认实现基于 OpenTelemetry，兼容主流可观测栈。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xtransport",
//		Operation: "Execute",
//		Kind:      xmetrics.KindClient,
//	})
//	defer span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{
//		xmetrics.Attempts(attempts),
//	}})
//
// # 指标命名
//
//   - xrest.request.total: 逻辑请求数
//   - xrest.request.attempts: 网络尝试数，取自结果属性 attempts
//   - xrest.request.duration: 逻辑请求耗时（秒）
//
// 统一属性：component / operation / status。
package xmetrics
