package xtransport

import "github.com/omeyang/xrest/pkg/observability/xmetrics"

// =============================================================================
// 指标名称常量
// =============================================================================

const (
	// MetricsComponent 组件名称。
	MetricsComponent = "xtransport"

	// 操作名称
	MetricsOpExecute     = "Execute"
	MetricsOpHealthCheck = "HealthCheck"

	// 属性 Key
	MetricsAttrHTTPMethod  = "http.method"
	MetricsAttrHTTPPath    = "http.path"
	MetricsAttrHTTPStatus  = "http.status"
	MetricsAttrAttempts    = xmetrics.AttrAttempts
	MetricsAttrErrorKind   = "error.kind"
	MetricsAttrNotModified = "not_modified"
)
