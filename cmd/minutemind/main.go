// Command minutemind 是 MinuteMind studio 的命令行客户端：生成脚本、提交渲染、查看视频目录。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/WPeytz/MinuteMind/internal/config"
	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("minutemind", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file path (default: ./config.yaml, $HOME/.minutemind, /etc/minutemind)")
	global.Usage = func() { usage(global, stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		usage(global, stderr)
		return exitUsage
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(global, stderr)
		return exitUsage
	}

	cfg, err := config.LoadFile(strings.TrimSpace(*configPath))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitError
	}
	zl, err := logger.Init(cfg.Log.LoggerOptions())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "init logger: %v\n", err)
		return exitError
	}
	logger.ReplaceGlobal(zl)
	defer logger.Sync()

	app, cleanup, err := initializeApplication(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer cleanup()

	c := &cli{app: app, stdout: stdout, stderr: stderr}
	if err := cmd.run(c, ctx, global.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			_, _ = fmt.Fprintf(stderr, "%s: %v\n", name, usageErr.err)
			return exitUsage
		}
		printError(stderr, err)
		return exitError
	}
	return exitOK
}

func usage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: minutemind [-config path] <command> [flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	_, _ = fmt.Fprintln(w)
	fs.PrintDefaults()
}

// printError 输出一行错误；studio 错误附带分类与状态码。
func printError(w io.Writer, err error) {
	var appErr *infraerrors.ApplicationError
	if errors.As(err, &appErr) {
		_, _ = fmt.Fprintf(w, "error: %s (%d): %s\n", appErr.Reason, appErr.Code, appErr.Message)
		return
	}
	_, _ = fmt.Fprintf(w, "error: %v\n", err)
}
