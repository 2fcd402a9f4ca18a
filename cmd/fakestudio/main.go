// Command fakestudio 在本地运行内存版 studio，供 minutemind 命令行联调。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/WPeytz/MinuteMind/internal/server/fakestudio"
	"github.com/gin-gonic/gin"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	basePath := flag.String("base-path", "/api", "path prefix for the studio routes")
	advance := flag.Duration("advance", 2*time.Second, "render status advance interval (0 disables)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := run(strings.TrimSpace(*addr), strings.TrimSpace(*basePath), *advance, *logLevel); err != nil {
		log.Fatalf("fakestudio failed: %v", err)
	}
}

func run(addr, basePath string, advance time.Duration, logLevel string) error {
	zl, err := logger.Init(logger.Options{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	logger.ReplaceGlobal(zl)
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)
	studio := fakestudio.New()
	srv := &http.Server{
		Addr:              addr,
		Handler:           studio.Handler(basePath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if advance > 0 {
		go studio.RunAutoAdvance(ctx, advance)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LegacyPrintf("fakestudio", "fakestudio listening on %s (base path %s)", addr, basePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.LegacyPrintf("fakestudio", "fakestudio shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
