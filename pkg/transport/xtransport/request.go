package xtransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request 一次逻辑请求
type Request struct {
	// Method HTTP 方法（必填）。
	Method string
	// Path 相对 BaseURL 的路径（必填），例如 "works.list"。
	Path string
	// Query 查询参数。
	Query url.Values
	// Body 请求体：nil、[]byte、string、io.Reader 原样发送，其他类型 JSON 序列化。
	Body any
	// Header 附加请求头，覆盖默认值。
	Header http.Header
	// NoConditionalCache 跳过条件缓存。只有 GET 请求会使用条件缓存。
	NoConditionalCache bool
}

func (r *Request) validate() error {
	if strings.TrimSpace(r.Method) == "" {
		return ErrMissingMethod
	}
	p := strings.TrimSpace(r.Path)
	if p == "" || strings.Contains(p, "://") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, r.Path)
	}
	return nil
}

// encodeBody 序列化请求体。
// io.Reader 会被完整读入内存，保证每次重试都能重放同样的内容。
func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}
		return data, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}
		return data, nil
	}
}

// Response 一次逻辑请求的成功结果
type Response struct {
	// StatusCode 状态码；304 被合成为 200。
	StatusCode int
	// Header 响应头。
	Header http.Header
	// Body 完整响应体。
	Body []byte
	// NotModified 表示服务端返回 304，Body 为 {"_not_modified":true}。
	NotModified bool
	// Attempts 实际尝试次数。
	Attempts int
	// RequestID 本次请求的 X-Request-ID。
	RequestID string
}

// DecodeJSON 将响应体反序列化到 v
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("xtransport: unmarshal response failed: %w", err)
	}
	return nil
}

// clone 深拷贝，供合并请求的多个调用方各自持有
func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	c.Body = bytes.Clone(r.Body)
	return &c
}
