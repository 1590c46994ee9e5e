package xtransport

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout 默认总超时，各阶段超时由此派生。
	DefaultTimeout = 30 * time.Second

	maxConnectTimeout = 5 * time.Second
	maxPoolTimeout    = 10 * time.Second
)

// TimeoutPolicy 各阶段超时
//
// 每个阶段独立计时，没有端到端的总超时；调用方需要总超时时通过 ctx 设置。
type TimeoutPolicy struct {
	// Connect 建立连接（含 TLS 握手）。
	Connect time.Duration `koanf:"connect" json:"connect" yaml:"connect"`
	// Read 等待响应头，以及读取响应体。
	Read time.Duration `koanf:"read" json:"read" yaml:"read"`
	// Write 每次写请求数据。
	Write time.Duration `koanf:"write" json:"write" yaml:"write"`
	// PoolAcquire 等待连接池分配连接。
	PoolAcquire time.Duration `koanf:"pool_acquire" json:"pool_acquire" yaml:"pool_acquire"`
}

// TimeoutsFromTotal 由总超时派生各阶段超时：
// Connect = min(5s, total/6)，PoolAcquire = min(10s, total/3)，Read = Write = total。
func TimeoutsFromTotal(total time.Duration) TimeoutPolicy {
	return TimeoutPolicy{
		Connect:     min(maxConnectTimeout, total/6),
		Read:        total,
		Write:       total,
		PoolAcquire: min(maxPoolTimeout, total/3),
	}
}

// Validate 校验所有阶段超时 > 0
func (p TimeoutPolicy) Validate() error {
	switch {
	case p.Connect <= 0:
		return fmt.Errorf("%w: connect=%s", ErrInvalidTimeout, p.Connect)
	case p.Read <= 0:
		return fmt.Errorf("%w: read=%s", ErrInvalidTimeout, p.Read)
	case p.Write <= 0:
		return fmt.Errorf("%w: write=%s", ErrInvalidTimeout, p.Write)
	case p.PoolAcquire <= 0:
		return fmt.Errorf("%w: pool_acquire=%s", ErrInvalidTimeout, p.PoolAcquire)
	}
	return nil
}

// withDefaults 用 total 派生值填充零值字段
func (p TimeoutPolicy) withDefaults(total time.Duration) TimeoutPolicy {
	d := TimeoutsFromTotal(total)
	if p.Connect == 0 {
		p.Connect = d.Connect
	}
	if p.Read == 0 {
		p.Read = d.Read
	}
	if p.Write == 0 {
		p.Write = d.Write
	}
	if p.PoolAcquire == 0 {
		p.PoolAcquire = d.PoolAcquire
	}
	return p
}
