package xtransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// 连接池默认值
const (
	DefaultMaxConnections     = 100
	DefaultMaxIdleConnections = 20
	DefaultIdleExpiry         = 30 * time.Second
)

// PoolPolicy 连接池策略，构建 Transport 时一次性映射到 http.Transport，之后不再修改。
type PoolPolicy struct {
	// MaxConnections 每个主机最大连接数，>= 1。
	MaxConnections int `koanf:"max_connections" json:"max_connections" yaml:"max_connections"`
	// MaxIdleConnections 最大空闲（keep-alive）连接数，0 <= n <= MaxConnections。
	MaxIdleConnections int `koanf:"max_idle_connections" json:"max_idle_connections" yaml:"max_idle_connections"`
	// IdleExpiry 空闲连接过期时间，0 表示不过期。
	IdleExpiry time.Duration `koanf:"idle_expiry" json:"idle_expiry" yaml:"idle_expiry"`
	// Multiplexed 是否启用 HTTP/2 多路复用。
	Multiplexed bool `koanf:"multiplexed" json:"multiplexed" yaml:"multiplexed"`
}

// DefaultPoolPolicy 返回默认连接池策略：100 连接，20 空闲，30s 过期，不启用 HTTP/2。
func DefaultPoolPolicy() PoolPolicy {
	return PoolPolicy{
		MaxConnections:     DefaultMaxConnections,
		MaxIdleConnections: DefaultMaxIdleConnections,
		IdleExpiry:         DefaultIdleExpiry,
	}
}

// Validate 校验连接池策略
func (p PoolPolicy) Validate() error {
	switch {
	case p.MaxConnections < 1:
		return fmt.Errorf("%w: max_connections=%d must be >= 1", ErrInvalidPoolPolicy, p.MaxConnections)
	case p.MaxIdleConnections < 0:
		return fmt.Errorf("%w: max_idle_connections=%d must be >= 0", ErrInvalidPoolPolicy, p.MaxIdleConnections)
	case p.MaxIdleConnections > p.MaxConnections:
		return fmt.Errorf("%w: max_idle_connections=%d exceeds max_connections=%d",
			ErrInvalidPoolPolicy, p.MaxIdleConnections, p.MaxConnections)
	case p.IdleExpiry < 0:
		return fmt.Errorf("%w: idle_expiry=%s must be >= 0", ErrInvalidPoolPolicy, p.IdleExpiry)
	}
	return nil
}

// newHTTPTransport 按连接池策略和超时策略构建 http.Transport
//
// 超时映射：
//   - Connect：Dialer.Timeout 与 TLSHandshakeTimeout
//   - Read：ResponseHeaderTimeout（响应体读取由 Transport 单独计时）
//   - Write：每次 Write 前刷新连接写截止时间
//   - PoolAcquire：由 Transport 借助 httptrace 计时
func newHTTPTransport(pool PoolPolicy, timeouts TimeoutPolicy, tlsConfig *tls.Config) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeouts.Connect,
		KeepAlive: 30 * time.Second,
	}
	// 设计决策: MaxIdleConns 为 0 时 http.Transport 视为不限制，
	// 这里改用 DisableKeepAlives 表达"不保留空闲连接"。
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, write: timeouts.Write}, nil
		},
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   timeouts.Connect,
		ResponseHeaderTimeout: timeouts.Read,
		MaxConnsPerHost:       pool.MaxConnections,
		MaxIdleConns:          pool.MaxIdleConnections,
		MaxIdleConnsPerHost:   pool.MaxIdleConnections,
		IdleConnTimeout:       pool.IdleExpiry,
		DisableKeepAlives:     pool.MaxIdleConnections == 0,
		ForceAttemptHTTP2:     pool.Multiplexed,
	}
	if !pool.Multiplexed {
		// 非 nil 的空 map 禁用 HTTP/2
		t.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
	}
	return t
}

// deadlineConn 在每次写之前设置写截止时间
type deadlineConn struct {
	net.Conn
	write time.Duration
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// newRedisClient 为 redis 条件缓存存储创建客户端。
// 连接惰性建立，Redis 不可达时缓存读写失败只记录日志，不影响请求。
func newRedisClient(cfg RedisCacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: strings.TrimSpace(cfg.Addr),
		DB:   cfg.DB,
	})
}
