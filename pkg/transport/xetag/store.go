package xetag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// 确保各存储实现 Store 接口
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*LRUStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore 无界内存存储，默认实现。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get 返回校验值
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set 写入校验值
func (s *MemoryStore) Set(_ context.Context, key, validator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = validator
	return nil
}

// Clear 清空
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

// Len 返回条目数
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// =============================================================================
// LRUStore
// =============================================================================

// ErrInvalidCapacity LRU 容量必须为正
var ErrInvalidCapacity = errors.New("xetag: lru capacity must be > 0")

// LRUStore 有界存储，容量满时淘汰最久未使用的条目。
// 底层为 hashicorp/golang-lru/v2，自身已是并发安全的。
type LRUStore struct {
	cache *lru.Cache[string, string]
}

// NewLRUStore 创建有界存储
func NewLRUStore(capacity int) (*LRUStore, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	c, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("xetag: create lru failed: %w", err)
	}
	return &LRUStore{cache: c}, nil
}

// Get 返回校验值并刷新最近使用时间
func (s *LRUStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

// Set 写入校验值
func (s *LRUStore) Set(_ context.Context, key, validator string) error {
	s.cache.Add(key, validator)
	return nil
}

// Clear 清空
func (s *LRUStore) Clear(_ context.Context) error {
	s.cache.Purge()
	return nil
}

// Len 返回条目数
func (s *LRUStore) Len(_ context.Context) (int, error) {
	return s.cache.Len(), nil
}

// =============================================================================
// RedisStore
// =============================================================================

// ErrNilClient 传入的 Redis 客户端为 nil
var ErrNilClient = errors.New("xetag: redis client cannot be nil")

// RedisStore 基于 Redis Hash 的共享存储，多个进程可共享校验值。
//
// 所有条目存放在同一个 Hash 中，字段名为请求键的 xxhash 摘要。
// 摘要冲突只会导致发送错误的 If-None-Match，服务端会返回完整响应，不影响正确性。
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// RedisStoreOption Redis 存储选项
type RedisStoreOption func(*RedisStore)

// WithHashKey 设置 Hash 的 key，默认 "xrest:etag"。
func WithHashKey(key string) RedisStoreOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL 设置 Hash 的过期时间，每次写入时刷新。默认不过期。
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &RedisStore{
		client: client,
		key:    "xrest:etag",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// field 生成 Hash 字段名
func field(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// Get 返回校验值
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, field(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("xetag: redis hget failed: %w", err)
	}
	return v, true, nil
}

// Set 写入校验值
func (s *RedisStore) Set(ctx context.Context, key, validator string) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key, field(key), validator)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xetag: redis hset failed: %w", err)
	}
	return nil
}

// Clear 删除整个 Hash
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("xetag: redis del failed: %w", err)
	}
	return nil
}

// Len 返回条目数
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("xetag: redis hlen failed: %w", err)
	}
	return int(n), nil
}
