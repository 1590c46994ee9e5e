package xlog

import (
	"log/slog"
	"strings"
)

// RedactedValue 脱敏后的占位值
const RedactedValue = "***"

// DefaultRedactKeys 默认脱敏的属性 key（大小写不敏感）
var DefaultRedactKeys = []string{"authorization", "token", "api_token", "password", "secret"}

// ReplaceAttrFunc 属性替换函数类型
//
// 用于日志治理场景：字段重命名、敏感信息脱敏、字段过滤等。
// 返回空 Key 的 Attr 时该属性会被移除。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Redactor 按 key 脱敏的 ReplaceAttrFunc
//
// 分组内的同名属性同样会被脱敏，例如 header.authorization。
func Redactor(keys ...string) ReplaceAttrFunc {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if _, ok := set[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, RedactedValue)
		}
		return a
	}
}

// chainReplace 依次执行多个替换函数，任一返回空 Key 时停止
func chainReplace(fns ...ReplaceAttrFunc) ReplaceAttrFunc {
	var active []ReplaceAttrFunc
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range active {
			a = fn(groups, a)
			if a.Key == "" {
				return a
			}
		}
		return a
	}
}
