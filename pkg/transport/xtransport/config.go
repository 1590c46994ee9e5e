package xtransport

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/omeyang/xrest/pkg/resilience/xbreaker"
	"github.com/omeyang/xrest/pkg/resilience/xretry"
)

// DefaultUserAgent 默认客户端标识
const DefaultUserAgent = "xrest-go/1.0.0"

// 条件缓存存储类型
const (
	CacheStoreMemory = "memory"
	CacheStoreLRU    = "lru"
	CacheStoreRedis  = "redis"
)

// CacheConfig 条件缓存配置
type CacheConfig struct {
	// Disabled 关闭条件缓存。
	Disabled bool `koanf:"disabled" json:"disabled" yaml:"disabled"`
	// Store 存储类型：memory（默认，无界）、lru（有界）或 redis（多进程共享）。
	Store string `koanf:"store" json:"store" yaml:"store"`
	// Capacity lru 存储的容量。
	Capacity int `koanf:"capacity" json:"capacity" yaml:"capacity"`
	// Redis redis 存储的连接配置。
	Redis RedisCacheConfig `koanf:"redis" json:"redis" yaml:"redis"`
}

// RedisCacheConfig Redis 条件缓存配置
type RedisCacheConfig struct {
	// Addr Redis 地址 host:port，store 为 redis 时必填。
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr,omitempty"`
	// DB 数据库编号。
	DB int `koanf:"db" json:"db,omitempty" yaml:"db,omitempty"`
	// HashKey 存放校验值的 Hash key，默认 xrest:etag。
	HashKey string `koanf:"hash_key" json:"hash_key,omitempty" yaml:"hash_key,omitempty"`
	// TTL Hash 的过期时间，0 表示不过期。
	TTL time.Duration `koanf:"ttl" json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// Config 定义 Transport 配置。
//
// 建议从 DefaultConfig() 开始修改：MaxRetries、BackoffFactor 等字段的零值是合法配置，
// ApplyDefaults 不会覆盖它们。
type Config struct {
	// BaseURL API 基础地址（必填），例如 https://api.example.com。
	BaseURL string `koanf:"base_url" json:"base_url" yaml:"base_url"`

	// AllowInsecure 允许使用 http:// 非加密连接。
	// 设计决策: 默认强制 HTTPS，Bearer Token 经明文 HTTP 传输会被窃听。仅用于开发/测试环境。
	AllowInsecure bool `koanf:"allow_insecure" json:"allow_insecure" yaml:"allow_insecure"`

	// Token Bearer 凭据（必填）。
	Token string `koanf:"api_token" json:"-" yaml:"-"`

	// Timeout 总超时，Timeouts 中的零值字段由它派生。默认 30 秒。
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`

	// Timeouts 显式的阶段超时。
	Timeouts TimeoutPolicy `koanf:"timeouts" json:"timeouts" yaml:"timeouts"`

	// Retry 重试策略。
	Retry xretry.Policy `koanf:"retry" json:"retry" yaml:"retry"`

	// Pool 连接池策略。
	Pool PoolPolicy `koanf:"pool" json:"pool" yaml:"pool"`

	// Breaker 熔断器配置。
	Breaker xbreaker.Config `koanf:"breaker" json:"breaker" yaml:"breaker"`

	// ConditionalCache 条件缓存配置。
	ConditionalCache CacheConfig `koanf:"conditional_cache" json:"conditional_cache" yaml:"conditional_cache"`

	// UserAgent 客户端标识，默认 DefaultUserAgent。
	UserAgent string `koanf:"user_agent" json:"user_agent" yaml:"user_agent"`

	// Deduplicate 合并并发的相同 GET 请求。
	Deduplicate bool `koanf:"deduplicate" json:"deduplicate" yaml:"deduplicate"`
}

// DefaultConfig 返回默认配置（BaseURL 与 Token 需调用方填写）。
func DefaultConfig() Config {
	return Config{
		Timeout:          DefaultTimeout,
		Timeouts:         TimeoutsFromTotal(DefaultTimeout),
		Retry:            xretry.DefaultPolicy(),
		Pool:             DefaultPoolPolicy(),
		Breaker:          xbreaker.DefaultConfig(),
		ConditionalCache: CacheConfig{Store: CacheStoreMemory},
		UserAgent:        DefaultUserAgent,
	}
}

// ApplyDefaults 为零值即非法的字段填充默认值。
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Timeouts = c.Timeouts.withDefaults(c.Timeout)
	if c.Pool == (PoolPolicy{}) {
		c.Pool = DefaultPoolPolicy()
	}
	c.Breaker.ApplyDefaults()
	if c.ConditionalCache.Store == "" {
		c.ConditionalCache.Store = CacheStoreMemory
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

// Validate 验证配置有效性。所有错误都可以用 errors.Is(err, ErrInvalidConfig) 判断。
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.validateBaseURL(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	if err := c.Timeouts.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	switch c.ConditionalCache.Store {
	case CacheStoreMemory:
	case CacheStoreLRU:
		if c.ConditionalCache.Capacity <= 0 {
			return fmt.Errorf("%w: lru capacity must be > 0", ErrInvalidCacheStore)
		}
	case CacheStoreRedis:
		r := c.ConditionalCache.Redis
		if strings.TrimSpace(r.Addr) == "" {
			return fmt.Errorf("%w: redis addr is required", ErrInvalidCacheStore)
		}
		if r.DB < 0 || r.TTL < 0 {
			return fmt.Errorf("%w: redis db and ttl must be >= 0", ErrInvalidCacheStore)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheStore, c.ConditionalCache.Store)
	}
	return nil
}

// validateBaseURL 校验 BaseURL 格式和协议安全性。
func (c *Config) validateBaseURL() error {
	raw := strings.TrimSpace(c.BaseURL)
	if raw == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidBaseURL
	}
	if u.Scheme == "http" && !c.AllowInsecure {
		return fmt.Errorf("%w: http:// requires allow_insecure", ErrInvalidBaseURL)
	}
	return nil
}

// Clone 深拷贝配置。
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Retry.RetryableStatuses = slices.Clone(c.Retry.RetryableStatuses)
	return &clone
}

// String 返回脱敏后的配置摘要，Token 不会输出。
func (c *Config) String() string {
	return fmt.Sprintf("base_url=%s timeout=%s max_retries=%d breaker_disabled=%t breaker_impl=%s cache_store=%s",
		c.BaseURL, c.Timeout, c.Retry.MaxRetries, c.Breaker.Disabled, c.Breaker.Impl, c.ConditionalCache.Store)
}
