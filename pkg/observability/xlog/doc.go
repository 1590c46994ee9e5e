// Package xlog 基于 log/slog 的结构化日志构建器。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转）
//   - 默认脱敏 authorization、token、api_token 等敏感字段
//   - 动态级别调整（通过 [Builder.LevelVar]）
//   - 统一的属性 key 与构造函数
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xrest.log", xlog.DefaultRotation()).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 返回的是标准 *slog.Logger，可直接传给 xtransport.WithLogger。
//
// # 便捷属性
//
// [Err]、[Duration]、[RequestID]、[Method]、[Path]、[StatusCode]、[Attempt]、[Component]。
package xlog
