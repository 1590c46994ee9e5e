package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrest/pkg/transport/xapierr"
	"github.com/omeyang/xrest/pkg/transport/xtransport"
)

// exitError 表示需要非零退出码但已完成输出的场景。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createGetCommand(),
		createPostCommand(),
		createHealthCommand(),
		createConfigCommand(),
	}
}

// requestFlags get/post 共用的请求参数。
func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "查询参数 key=value，可重复",
		},
		&cli.StringSliceFlag{
			Name:    "header",
			Aliases: []string{"H"},
			Usage:   "附加请求头 'Key: Value'，可重复",
		},
		&cli.BoolFlag{
			Name:    "include",
			Aliases: []string{"i"},
			Usage:   "输出状态码、尝试次数和请求 ID",
		},
	}
}

// createGetCommand 创建 get 子命令。
func createGetCommand() *cli.Command {
	flags := append(requestFlags(),
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "跳过条件缓存",
		},
		&cli.IntFlag{
			Name:  "repeat",
			Usage: "并发发送 N 次相同请求，输出汇总与熔断器状态",
			Value: 1,
		},
	)
	return &cli.Command{
		Name:      "get",
		Usage:     "发送 GET 请求",
		ArgsUsage: "<path>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := buildRequest(cmd, http.MethodGet)
			if err != nil {
				return err
			}
			req.NoConditionalCache = cmd.Bool("no-cache")
			if n := cmd.Int("repeat"); n > 1 {
				return cmdRepeat(ctx, cmd, req, n)
			}
			return cmdRequest(ctx, cmd, req)
		},
	}
}

// createPostCommand 创建 post 子命令。
func createPostCommand() *cli.Command {
	flags := append(requestFlags(),
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "JSON 请求体，@file 表示从文件读取，@- 表示从 stdin 读取",
		},
	)
	return &cli.Command{
		Name:      "post",
		Usage:     "发送 POST 请求",
		ArgsUsage: "<path>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := buildRequest(cmd, http.MethodPost)
			if err != nil {
				return err
			}
			if data := cmd.String("data"); data != "" {
				body, err := readData(cmd, data)
				if err != nil {
					return err
				}
				req.Body = body
			}
			return cmdRequest(ctx, cmd, req)
		},
	}
}

// createHealthCommand 创建 health 子命令。
func createHealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "健康检查",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "health-timeout",
				Usage: "健康检查超时",
				Value: xtransport.DefaultHealthTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdHealth(ctx, cmd, cmd.Duration("health-timeout"))
		},
	}
}

// createConfigCommand 创建 config 子命令。
func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "输出生效的配置（不含 Token）",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdConfig(cmd)
		},
	}
}

// =============================================================================
// 命令实现
// =============================================================================

func cmdRequest(ctx context.Context, cmd *cli.Command, req xtransport.Request) error {
	t, cleanup, err := newTransport(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := t.Execute(ctx, req)
	if err != nil {
		printError(cmd.Root().ErrWriter, err)
		return &exitError{code: 1}
	}
	printResponse(cmd, resp)
	return nil
}

// cmdRepeat 通过异步接口并发发送 n 次请求。
func cmdRepeat(ctx context.Context, cmd *cli.Command, req xtransport.Request, n int) error {
	t, cleanup, err := newTransport(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	futures := make([]*xtransport.Future, n)
	for i := range futures {
		futures[i] = t.Go(ctx, req)
	}

	w := cmd.Root().Writer
	failed := 0
	for i, f := range futures {
		resp, err := f.Wait(ctx)
		if err != nil {
			failed++
			fmt.Fprintf(w, "#%d error kind=%s: %v\n", i+1, xapierr.KindOf(err), err)
			continue
		}
		fmt.Fprintf(w, "#%d status=%d attempts=%d not_modified=%t\n",
			i+1, resp.StatusCode, resp.Attempts, resp.NotModified)
	}
	fmt.Fprintf(w, "total=%d failed=%d circuit=%s\n", n, failed, t.CircuitState())
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func cmdHealth(ctx context.Context, cmd *cli.Command, timeout time.Duration) error {
	t, cleanup, err := newTransport(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w := cmd.Root().Writer
	if !t.HealthCheck(ctx, timeout) {
		fmt.Fprintf(w, "unhealthy (circuit=%s)\n", t.CircuitState())
		return &exitError{code: 1}
	}
	fmt.Fprintln(w, "healthy")
	return nil
}

func cmdConfig(cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return &usageError{msg: err.Error()}
	}
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// =============================================================================
// 辅助函数
// =============================================================================

func buildRequest(cmd *cli.Command, method string) (xtransport.Request, error) {
	req := xtransport.Request{Method: method}
	if cmd.NArg() != 1 {
		return req, &usageError{msg: cmd.Name + " 需要且只需要一个 <path> 参数"}
	}
	req.Path = cmd.Args().First()

	query, err := parseQuery(cmd.StringSlice("query"))
	if err != nil {
		return req, err
	}
	req.Query = query

	header, err := parseHeaders(cmd.StringSlice("header"))
	if err != nil {
		return req, err
	}
	req.Header = header
	return req, nil
}

// parseQuery 解析 key=value 形式的查询参数。
func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, &usageError{msg: fmt.Sprintf("无效的查询参数 %q，应为 key=value", p)}
		}
		q.Add(k, v)
	}
	return q, nil
}

// parseHeaders 解析 'Key: Value' 形式的请求头。
func parseHeaders(lines []string) (http.Header, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	h := http.Header{}
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, &usageError{msg: fmt.Sprintf("无效的请求头 %q，应为 'Key: Value'", line)}
		}
		h.Add(k, strings.TrimSpace(v))
	}
	return h, nil
}

// readData 读取请求体并校验为合法 JSON。
func readData(cmd *cli.Command, data string) ([]byte, error) {
	var body []byte
	switch {
	case data == "@-":
		b, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return nil, fmt.Errorf("读取 stdin 失败: %w", err)
		}
		body = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, &usageError{msg: fmt.Sprintf("读取请求体文件失败: %v", err)}
		}
		body = b
	default:
		body = []byte(data)
	}
	if !json.Valid(body) {
		return nil, &usageError{msg: "请求体不是合法的 JSON"}
	}
	return body, nil
}

func printResponse(cmd *cli.Command, resp *xtransport.Response) {
	w := cmd.Root().Writer
	if cmd.Bool("include") {
		fmt.Fprintf(w, "status=%d attempts=%d request_id=%s not_modified=%t\n\n",
			resp.StatusCode, resp.Attempts, resp.RequestID, resp.NotModified)
	}
	_, _ = w.Write(resp.Body) //nolint:errcheck // stdout
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Fprintln(w)
	}
}

// printError 输出失败原因，结构化错误附带分类、状态码和请求 ID。
func printError(w io.Writer, err error) {
	apiErr, ok := xapierr.As(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(w, "已取消")
			return
		}
		fmt.Fprintf(w, "错误: %v\n", err)
		return
	}
	fmt.Fprintf(w, "错误: kind=%s status=%d request_id=%s\n%s\n",
		apiErr.Kind, apiErr.StatusCode, apiErr.RequestID, apiErr.Error())
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel() // 第一次信号: 优雅取消

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130) // 第二次信号: 强制退出
	}()
}
