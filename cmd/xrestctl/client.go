package main

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrest/pkg/config/xconf"
	"github.com/omeyang/xrest/pkg/observability/xlog"
	"github.com/omeyang/xrest/pkg/observability/xmetrics"
	"github.com/omeyang/xrest/pkg/transport/xtransport"
)

// loadConfig 合成生效配置：默认值 < 配置文件 < 命令行参数。
func loadConfig(cmd *cli.Command) (xtransport.Config, error) {
	cfg := xtransport.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := xconf.Load(path, "", cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if cmd.IsSet("base-url") {
		cfg.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("token") {
		cfg.Token = cmd.String("token")
	}
	if cmd.IsSet("insecure") {
		cfg.AllowInsecure = cmd.Bool("insecure")
	}
	if cmd.IsSet("breaker-impl") {
		cfg.Breaker.Impl = cmd.String("breaker-impl")
	}
	if cmd.IsSet("redis-addr") {
		cfg.ConditionalCache.Store = xtransport.CacheStoreRedis
		cfg.ConditionalCache.Redis.Addr = cmd.String("redis-addr")
	}
	if cmd.IsSet("timeout") {
		// 阶段超时重新由总超时派生
		cfg.Timeout = cmd.Duration("timeout")
		cfg.Timeouts = xtransport.TimeoutPolicy{}
	}
	return cfg, nil
}

// newLogger 创建日志记录器，默认写往 stderr，指定 --log-file 时写入轮转文件。
func newLogger(cmd *cli.Command) (*slog.Logger, func() error, error) {
	b := xlog.New()
	if path := cmd.String("log-file"); path != "" {
		b.SetRotation(path, xlog.DefaultRotation())
	} else {
		b.SetOutput(cmd.Root().ErrWriter)
	}
	return b.
		SetLevelString(cmd.String("log-level")).
		SetFormat(cmd.String("log-format")).
		SetAttrs(xlog.Component("xrestctl")).
		Build()
}

// newTransport 按全局参数创建 Transport。返回的 cleanup 关闭连接并刷新日志。
func newTransport(cmd *cli.Command) (*xtransport.Transport, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, &usageError{msg: err.Error()}
	}
	logger, closeLog, err := newLogger(cmd)
	if err != nil {
		return nil, nil, &usageError{msg: err.Error()}
	}
	observer, err := xmetrics.NewOTelObserver()
	if err != nil {
		_ = closeLog() //nolint:errcheck // best-effort cleanup
		return nil, nil, err
	}

	t, err := xtransport.New(cfg,
		xtransport.WithLogger(logger),
		xtransport.WithObserver(observer),
	)
	if err != nil {
		_ = closeLog() //nolint:errcheck // best-effort cleanup
		return nil, nil, &usageError{msg: err.Error()}
	}
	return t, func() {
		_ = t.Close()   //nolint:errcheck // best-effort cleanup
		_ = closeLog() //nolint:errcheck // best-effort cleanup
	}, nil
}
