// Package xetag 提供基于 ETag 的条件请求缓存。
//
// 缓存只保存"请求键 → 校验值"，不保存响应体。只有 GET 请求参与：
// 发送前若存在校验值则附加 If-None-Match，成功响应携带 ETag 时写入校验值。
// 服务端返回 304 时由调用方合成一个成功响应。
//
// 缓存条目不过期（LRUStore 容量满时淘汰），同一键并发写入以最后写入者为准。
// 缓存是纯优化：存储错误由调用方记录后视为未命中。
package xetag

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const (
	// HeaderIfNoneMatch 条件请求头
	HeaderIfNoneMatch = "If-None-Match"

	// HeaderETag 响应校验值头
	HeaderETag = "ETag"

	// NotModifiedBody 304 合成响应的响应体
	NotModifiedBody = `{"_not_modified":true}`
)

// ErrNilStore 传入的 Store 为 nil
var ErrNilStore = errors.New("xetag: store cannot be nil")

// Store 校验值存储
//
// 实现必须是并发安全的。
type Store interface {
	// Get 返回键对应的校验值，不存在时 ok 为 false。
	Get(ctx context.Context, key string) (validator string, ok bool, err error)

	// Set 插入或覆盖校验值。
	Set(ctx context.Context, key, validator string) error

	// Clear 清空所有条目。
	Clear(ctx context.Context) error

	// Len 返回条目数。
	Len(ctx context.Context) (int, error)
}

// Cache 条件请求缓存
type Cache struct {
	store Store
}

// New 创建条件请求缓存，store 为 nil 时返回 ErrNilStore。
func New(store Store) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Cache{store: store}, nil
}

// NewMemory 创建使用内存存储的条件请求缓存
func NewMemory() *Cache {
	return &Cache{store: NewMemoryStore()}
}

// Key 生成请求键：METHOD:path 或 METHOD:path?k=v&...（参数按键排序）
func Key(method, path string, query url.Values) string {
	var b strings.Builder
	b.Grow(len(method) + len(path) + 1)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(':')
	b.WriteString(path)
	if len(query) > 0 {
		// url.Values.Encode 按键排序，输出稳定
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// Cacheable 判断请求方法是否参与条件缓存，只有 GET 参与。
func Cacheable(method string) bool {
	return strings.EqualFold(method, http.MethodGet)
}

// Lookup 查询校验值
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool, error) {
	return c.store.Get(ctx, key)
}

// Apply 查询校验值，存在时设置 If-None-Match，返回是否已设置。
func (c *Cache) Apply(ctx context.Context, key string, header http.Header) (bool, error) {
	validator, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok || validator == "" {
		return false, err
	}
	header.Set(HeaderIfNoneMatch, validator)
	return true, nil
}

// Remember 保存响应中的 ETag，响应没有 ETag 时不做任何事。
func (c *Cache) Remember(ctx context.Context, key string, header http.Header) error {
	validator := header.Get(HeaderETag)
	if validator == "" {
		return nil
	}
	return c.store.Set(ctx, key, validator)
}

// Clear 清空缓存
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Len 返回条目数
func (c *Cache) Len(ctx context.Context) (int, error) {
	return c.store.Len(ctx)
}
