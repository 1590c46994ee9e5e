package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
//
// 定义日志中常用的标准字段名，保持一致性。
// =============================================================================

const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyDuration 耗时字段的标准 key
	KeyDuration = "duration"

	// KeyRequestID 请求 ID 字段的标准 key
	KeyRequestID = "request_id"

	// KeyMethod HTTP 方法字段的标准 key
	KeyMethod = "method"

	// KeyPath 请求路径字段的标准 key
	KeyPath = "path"

	// KeyStatusCode HTTP 状态码字段的标准 key
	KeyStatusCode = "status_code"

	// KeyAttempt 尝试序号字段的标准 key（从 1 开始）
	KeyAttempt = "attempt"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
//
// 这是记录错误的标准方式，使用统一的 key "error"。
// 如果 err 为 nil，返回空属性（会被忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// RequestID 创建请求 ID 属性
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method 创建 HTTP 方法属性
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// StatusCode 创建 HTTP 状态码属性
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Attempt 创建尝试序号属性
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
