package xtransport

import "errors"

// =============================================================================
// 配置错误
// =============================================================================

var (
	// ErrInvalidConfig 所有配置错误的公共前缀，可用 errors.Is 统一判断。
	ErrInvalidConfig = errors.New("xtransport: invalid config")

	// ErrMissingBaseURL 表示 BaseURL 未配置。
	ErrMissingBaseURL = errors.New("xtransport: missing base_url")

	// ErrInvalidBaseURL 表示 BaseURL 格式无效或未使用 https。
	ErrInvalidBaseURL = errors.New("xtransport: invalid base_url")

	// ErrMissingToken 表示 API Token 未配置。
	ErrMissingToken = errors.New("xtransport: missing api_token")

	// ErrInvalidTimeout 表示超时策略中存在非正值。
	ErrInvalidTimeout = errors.New("xtransport: timeouts must be > 0")

	// ErrInvalidPoolPolicy 表示连接池策略无效。
	ErrInvalidPoolPolicy = errors.New("xtransport: invalid connection pool policy")

	// ErrInvalidCacheStore 表示条件缓存存储类型未知。
	ErrInvalidCacheStore = errors.New("xtransport: invalid conditional cache store")
)

// =============================================================================
// 请求错误
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xtransport: context cannot be nil")

	// ErrMissingMethod 表示请求未指定方法。
	ErrMissingMethod = errors.New("xtransport: missing request method")

	// ErrInvalidPath 表示请求路径为空或为绝对 URL。
	ErrInvalidPath = errors.New("xtransport: request path must be relative to base_url")

	// ErrEncodeBody 表示请求体序列化失败。
	ErrEncodeBody = errors.New("xtransport: encode request body failed")

	// ErrResponseTooLarge 表示响应体超过最大限制（10MB）。
	ErrResponseTooLarge = errors.New("xtransport: response body exceeds maximum size limit")

	// ErrClosed 表示 Transport 已关闭。
	ErrClosed = errors.New("xtransport: transport closed")
)

// =============================================================================
// 超时原因
// =============================================================================

var (
	// ErrPoolTimeout 表示等待连接池分配连接超时。
	ErrPoolTimeout = errors.New("xtransport: connection pool acquire timeout")

	// ErrReadTimeout 表示读取响应体超时。
	ErrReadTimeout = errors.New("xtransport: response read timeout")
)
