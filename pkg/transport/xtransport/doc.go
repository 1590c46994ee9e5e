// Package xtransport 提供面向 JSON API 的弹性 HTTP 传输层。
//
// 对调用方而言，一次 Execute 就是一次逻辑请求；Transport 在内部组合：
//
//   - 熔断（xbreaker）：打开时立即失败，不发起网络请求
//   - 条件缓存（xetag）：GET 请求自动携带 If-None-Match，304 合成为 200
//   - 阶段超时（TimeoutPolicy）：连接、连接池等待、写入、读取各自计时
//   - 重试（xretry）：可重试状态码与网络错误按指数退避重试，429 尊重 Retry-After
//   - 错误分类（xapierr）：终止性失败返回带 Kind 的 *xapierr.Error
//
// # 快速开始
//
//	cfg := xtransport.DefaultConfig()
//	cfg.BaseURL = "https://api.example.com"
//	cfg.Token = os.Getenv("XREST_API_TOKEN")
//
//	tr, err := xtransport.New(cfg, xtransport.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer tr.Close()
//
//	resp, err := tr.Get(ctx, "works.get", url.Values{"id": {"ISS-1"}})
//	switch {
//	case errors.Is(err, xapierr.ErrNotFound):
//		// ...
//	case err != nil:
//		return err
//	case resp.NotModified:
//		// 使用本地副本
//	}
//
// # 同步与异步
//
// [Transport.Execute] 阻塞调用方；[Transport.Go] 返回 [Future]。
// 两者共用同一条决策路径，行为完全一致。
//
// # 取消语义
//
// 调用方 ctx 取消时返回 ctx 的错误：不重试，不计入熔断器，
// 半开状态下占用的探测名额会被归还。
//
// # 设计决策
//
// 没有整体超时：每个阶段各自计时，整体时长由调用方 ctx 约束。
// 阶段超时通过 per-attempt 的 context.WithCancelCause 实现，
// 这样自定义 Doer 同样受超时约束。
package xtransport
