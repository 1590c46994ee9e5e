// Package xconf 提供配置文件的加载和反序列化，基于 koanf 实现。
//
// xconf 只负责加载和反序列化。默认值与校验由配置结构体自身负责，
// 例如 xtransport.Config 的 ApplyDefaults/Validate。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 覆盖语义
//
// Unmarshal 不会清零目标结构体，配置中缺失的键保持原值。
// 典型用法是先取默认配置，再用文件覆盖：
//
//	cfg, err := xconf.Load("xrest.yaml", "", xtransport.DefaultConfig())
//
// 时长字段接受 "500ms"、"30s" 这样的字符串。
//
// # 并发安全
//
// Reload 通过互斥锁串行执行，解析成功后原子替换 koanf 实例，失败时保留旧配置。
// Client() 返回的指针在 Reload() 后仍然有效，但指向旧配置。
package xconf
