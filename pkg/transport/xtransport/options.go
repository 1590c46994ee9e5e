package xtransport

import (
	"crypto/tls"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xrest/pkg/observability/xmetrics"
	"github.com/omeyang/xrest/pkg/resilience/xbreaker"
	"github.com/omeyang/xrest/pkg/transport/xetag"
)

// Options 定义 Transport 的可选依赖。
type Options struct {
	// Logger 日志记录器，默认 slog.Default()。
	Logger *slog.Logger

	// Observer 可观测性接口，默认空实现。
	Observer xmetrics.Observer

	// Doer 自定义 HTTP 执行器。设置后连接池策略不生效，阶段超时仍由 Transport 计时。
	Doer Doer

	// Gate 自定义熔断器，例如 xbreaker.NewGobreakerGate。默认按 Config.Breaker 创建 xbreaker.Breaker。
	Gate xbreaker.Gate

	// ConditionalCache 自定义条件缓存，例如基于 xetag.RedisStore 的共享缓存。
	ConditionalCache *xetag.Cache

	// Propagator 追踪上下文传播器，默认使用 otel 全局传播器。
	Propagator propagation.TextMapPropagator

	// TLSConfig 自定义 TLS 配置。
	TLSConfig *tls.Config
}

// Option 定义配置选项函数。
type Option func(*Options)

// defaultOptions 返回默认选项。
func defaultOptions() *Options {
	return &Options{
		Logger:   slog.Default(),
		Observer: xmetrics.NoopObserver{},
	}
}

// applyOptions 应用选项。
func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithObserver 设置可观测性接口。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *Options) {
		if observer != nil {
			o.Observer = observer
		}
	}
}

// WithDoer 设置自定义 HTTP 执行器。
func WithDoer(d Doer) Option {
	return func(o *Options) {
		o.Doer = d
	}
}

// WithGate 设置自定义熔断器。
func WithGate(g xbreaker.Gate) Option {
	return func(o *Options) {
		o.Gate = g
	}
}

// WithConditionalCache 设置自定义条件缓存。
func WithConditionalCache(c *xetag.Cache) Option {
	return func(o *Options) {
		o.ConditionalCache = c
	}
}

// WithPropagator 设置追踪上下文传播器。
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *Options) {
		o.Propagator = p
	}
}

// WithTLSConfig 设置 TLS 配置。
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = cfg
	}
}
