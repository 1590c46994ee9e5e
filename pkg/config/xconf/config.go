package xconf

import "github.com/knadh/koanf/v2"

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 定义配置接口。
// 只提供增值功能，基础操作请直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回底层的 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 将指定路径的配置反序列化到目标结构体。
	// path 为空字符串时反序列化整个配置。
	// 目标结构体中已有的字段值会被保留，只有配置中出现的键会覆盖它们，
	// 因此可以先填充默认值再 Unmarshal。
	Unmarshal(path string, target any) error

	// Reload 重新加载配置文件，并发安全。
	// 从字节数据创建的 Config 调用会返回 ErrReloadFromBytes。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建的 Config 返回空字符串。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// MustUnmarshal 与 Config.Unmarshal 相同，但失败时 panic。
// 适用于程序启动时的必要配置加载。
func MustUnmarshal(c Config, path string, target any) {
	if err := c.Unmarshal(path, target); err != nil {
		panic(err)
	}
}

// Load 读取配置文件，并把 path 下的内容覆盖到 base 上返回。
//
//	cfg, err := xconf.Load("xrest.yaml", "", xtransport.DefaultConfig())
func Load[T any](file, path string, base T, opts ...Option) (T, error) {
	c, err := New(file, opts...)
	if err != nil {
		return base, err
	}
	if err := c.Unmarshal(path, &base); err != nil {
		return base, err
	}
	return base, nil
}
