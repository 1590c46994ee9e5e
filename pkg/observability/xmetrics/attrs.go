package xmetrics

import "time"

// AttrAttempts 结果属性中的尝试次数，OTel 实现会将其累加到 xrest.request.attempts。
const AttrAttempts = "attempts"

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性，例如 HTTP 状态码。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Int64 创建 int64 属性。
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 创建时间间隔属性，OTel 中以纳秒记录。
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// Attempts 创建尝试次数属性。
func Attempts(n int) Attr {
	return Int(AttrAttempts, n)
}

// attemptsOf 从结果属性中取出尝试次数
func attemptsOf(attrs []Attr) (int64, bool) {
	for _, attr := range attrs {
		if attr.Key != AttrAttempts {
			continue
		}
		switch v := attr.Value.(type) {
		case int:
			return int64(v), true
		case int64:
			return v, true
		}
	}
	return 0, false
}
