// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog，支持脱敏和文件轮转
//   - xmetrics: 统一可观测性接口（追踪、指标），提供 Noop 与 OpenTelemetry 实现
package observability
