// xrestctl 是 xtransport 的命令行客户端，用于调试 JSON API 与验证配置。
//
// 用法:
//
//	xrestctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（.yaml/.yml/.json）
//	-u, --base-url    API 基础地址，覆盖配置文件
//	    --token       Bearer 凭据，也可通过环境变量 XREST_API_TOKEN 提供
//	    --insecure    允许 http:// 地址
//	-t, --timeout     总超时，覆盖配置文件
//	    --log-level   日志级别 (debug/info/warn/error，默认 warn)
//	    --log-format  日志格式 (text/json)
//
// 命令:
//
//	get <path>        发送 GET 请求
//	post <path>       发送 POST 请求
//	health            健康检查
//	config            输出生效的配置（不含 Token）
//
// 退出码:
//
//	0: 成功（health 命令: 服务健康）
//	1: 请求失败或服务不健康
//	2: 参数错误
//
// 示例:
//
//	xrestctl -u https://api.example.com --token $TOKEN get works.list -q page=2
//	xrestctl -c xrest.yaml post works.create -d '{"title":"a"}'
//	xrestctl -c xrest.yaml get works.list --repeat 20
//	xrestctl -c xrest.yaml health
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrest/pkg/transport/xtransport"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// envToken Token 环境变量名
const envToken = "XREST_API_TOKEN"

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xrestctl",
		Usage:   "JSON API 命令行客户端",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Aliases: []string{"u"},
				Usage:   "API 基础地址",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer 凭据",
				Sources: cli.EnvVars(envToken),
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "允许 http:// 地址",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "总超时",
				Value:   xtransport.DefaultTimeout,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志写入可轮转的文件而不是 stderr",
			},
			&cli.StringFlag{
				Name:  "breaker-impl",
				Usage: "熔断器实现 (builtin/gobreaker)",
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "条件缓存使用 Redis 共享存储 host:port",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(args []string) int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return exitCode(app.Run(ctx, args))
}

// exitCode 把命令返回的错误映射为退出码。
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 识别 flag 解析器产生的参数错误，错误详情已由框架输出。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"invalid value",
		"flag needs an argument",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
