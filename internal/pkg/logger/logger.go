// Package logger 提供全局 zap 日志实例。
//
// Init 之前 L() 返回 no-op logger，库代码可以无条件调用。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志初始化参数。
type Options struct {
	Level  string // debug / info / warn / error
	Format string // json / console
	Output string // stdout / stderr / file

	File FileOptions
}

// FileOptions 滚动日志文件参数（Output=file 时生效）。
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the global logger from opts and returns it.
func Init(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	sink, err := buildSink(opts)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	l := zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller())
	ReplaceGlobal(l)
	return l, nil
}

func buildSink(opts Options) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Output)) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "file":
		path := strings.TrimSpace(opts.File.Path)
		if path == "" {
			return nil, fmt.Errorf("log file path is required when output=file")
		}
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported log output %q", opts.Output)
	}
}

// ParseLevel 解析日志级别，空字符串视为 info。
func ParseLevel(raw string) (zapcore.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// NewWriterLogger 把日志写到 w，测试里用来断言输出。
func NewWriterLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level))
}

// ReplaceGlobal swaps the global logger; nil restores the no-op logger.
func ReplaceGlobal(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L 返回全局 logger。
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// With 返回带 component 字段的子 logger。
func With(component string) *zap.Logger {
	return L().With(zap.String("component", component))
}

// LegacyPrintf 兼容 printf 风格的调用点，按 info 级别输出。
func LegacyPrintf(component, format string, args ...any) {
	L().With(zap.String("component", component)).Info(fmt.Sprintf(format, args...))
}

// Sync flushes the global logger; errors from syncing a terminal are ignored.
func Sync() {
	_ = L().Sync()
}
