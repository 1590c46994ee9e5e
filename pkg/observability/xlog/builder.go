package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 输出格式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Builder 日志配置构建器
//
// first-error-wins：遇到第一个配置错误后，后续 Set 操作的错误不会覆盖它，
// 错误在 Build 时返回。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	redactKeys  []string
	replaceAttr ReplaceAttrFunc
	rotator     *lumberjack.Logger
	attrs       []slog.Attr
	err         error
}

// New 创建配置构建器：stderr、Info 级别、text 格式，默认脱敏 DefaultRedactKeys。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:     os.Stderr,
		levelVar:   levelVar,
		format:     FormatText,
		redactKeys: DefaultRedactKeys,
	}
}

func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w == nil {
		return b.setErr(fmt.Errorf("xlog: nil output"))
	}
	b.output = w
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(level.Slog())
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.setErr(err)
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = FormatText
	case FormatText, FormatJSON:
		b.format = normalized
	default:
		return b.setErr(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetRedactKeys 替换需要脱敏的属性 key，不传参数表示关闭脱敏。
func (b *Builder) SetRedactKeys(keys ...string) *Builder {
	b.redactKeys = keys
	return b
}

// SetReplaceAttr 设置额外的属性替换函数，在脱敏之后执行。
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// SetRotation 将日志写入可轮转的文件
func (b *Builder) SetRotation(filename string, r Rotation) *Builder {
	rotator, err := newRotator(filename, r)
	if err != nil {
		return b.setErr(err)
	}
	b.rotator = rotator
	b.output = rotator
	return b
}

// SetAttrs 添加每条日志都携带的固定属性
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// LevelVar 返回共享的级别变量，可在运行时调整级别。
func (b *Builder) LevelVar() *slog.LevelVar {
	return b.levelVar
}

// Build 构建 Logger
//
// 返回值：
//   - *slog.Logger: 日志实例
//   - func() error: 清理函数，关闭轮转文件；可重复调用
//   - error: 配置错误
func (b *Builder) Build() (*slog.Logger, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	var redact ReplaceAttrFunc
	if len(b.redactKeys) > 0 {
		redact = Redactor(b.redactKeys...)
	}
	if fn := chainReplace(redact, b.replaceAttr); fn != nil {
		opts.ReplaceAttr = fn
	}

	var handler slog.Handler
	switch b.format {
	case FormatJSON:
		handler = slog.NewJSONHandler(b.output, opts)
	default:
		handler = slog.NewTextHandler(b.output, opts)
	}
	if len(b.attrs) > 0 {
		handler = handler.WithAttrs(b.attrs)
	}

	return slog.New(handler), b.cleanup(), nil
}

// cleanup 创建清理函数
func (b *Builder) cleanup() func() error {
	var once sync.Once
	rotator := b.rotator

	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
