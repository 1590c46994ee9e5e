package xlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownLevel 无法识别的日志级别
var ErrUnknownLevel = errors.New("xlog: unknown level")

// Level 日志级别，可直接作为 koanf/JSON 配置字段
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// String 与 slog.Level 一致：DEBUG、INFO、WARN、ERROR，其他值形如 "INFO+2"。
func (l Level) String() string {
	return slog.Level(l).String()
}

// Slog 转换为 slog.Level
func (l Level) Slog() slog.Level {
	return slog.Level(l)
}

// MarshalText 实现 encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析 debug/info/warn/warning/error，忽略大小写和首尾空白。
// 失败时返回 LevelInfo 和 ErrUnknownLevel。
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}
