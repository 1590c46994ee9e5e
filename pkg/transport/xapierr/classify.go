package xapierr

import (
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/omeyang/xrest/pkg/resilience/xretry"
)

const (
	// MaxBodySnippet 错误中保留的响应体最大字符数
	MaxBodySnippet = 200

	// HeaderRequestID 服务端返回请求 ID 的响应头
	HeaderRequestID = "X-Request-ID"
)

// KindForStatus 将 HTTP 状态码映射为错误分类
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusInternalServerError:
		return KindServer
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// Classify 将非成功响应转换为 *Error
//
// 消息优先取 JSON 响应体的 message 字段，其次 error 字段；
// 响应体不是 JSON 时消息为 "HTTP <code>: <响应体前 200 个字符>"。
func Classify(status int, header http.Header, body []byte) *Error {
	snippet := truncate(body, MaxBodySnippet)
	e := &Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Message:    extractMessage(status, body, snippet),
		Body:       snippet,
	}
	if header != nil {
		e.RequestID = header.Get(HeaderRequestID)
	}
	if e.Kind == KindRateLimited {
		e.RetryAfter, e.HasRetryAfter = xretry.RetryAfter(header)
	}
	return e
}

// extractMessage 从响应体提取错误消息
func extractMessage(status int, body []byte, snippet string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if snippet == "" {
			return "HTTP " + strconv.Itoa(status)
		}
		return "HTTP " + strconv.Itoa(status) + ": " + snippet
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return "HTTP " + strconv.Itoa(status)
}

// truncate 截取前 n 个字符，不拆分 UTF-8 编码
func truncate(body []byte, n int) string {
	if utf8.RuneCount(body) <= n {
		return string(body)
	}
	count := 0
	for i := range string(body) {
		if count == n {
			return string(body[:i])
		}
		count++
	}
	return string(body)
}
