package xconf

import "errors"

// 参数错误
var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrReloadFromBytes   = errors.New("xconf: config created from bytes cannot be reloaded")
)

// 加载错误，分别对应读取文件、解析内容和映射到结构体三个阶段
var (
	ErrLoadFailed      = errors.New("xconf: read config failed")
	ErrParseFailed     = errors.New("xconf: parse config failed")
	ErrUnmarshalFailed = errors.New("xconf: unmarshal config failed")
)
