package xlog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认配置
const (
	// DefaultMaxSizeMB 默认单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30
)

// ErrEmptyFilename 轮转文件名为空
var ErrEmptyFilename = errors.New("xlog: rotation filename is empty")

// Rotation 基于文件大小的日志轮转配置
type Rotation struct {
	// MaxSizeMB 单个文件最大大小，<= 0 使用默认值。
	MaxSizeMB int `koanf:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups 保留的备份数量，0 表示不限制。
	MaxBackups int `koanf:"max_backups" json:"max_backups" yaml:"max_backups"`
	// MaxAgeDays 备份保留天数，0 表示不按天数清理。
	MaxAgeDays int `koanf:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	// Compress 是否 gzip 压缩备份。
	Compress bool `koanf:"compress" json:"compress" yaml:"compress"`
}

// DefaultRotation 返回默认轮转配置
func DefaultRotation() Rotation {
	return Rotation{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
}

// newRotator 创建 lumberjack 轮转写入器
func newRotator(filename string, r Rotation) (*lumberjack.Logger, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		return nil, fmt.Errorf("xlog: invalid rotation %+v", r)
	}
	if r.MaxSizeMB <= 0 {
		r.MaxSizeMB = DefaultMaxSizeMB
	}
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}, nil
}
