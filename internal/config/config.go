// Package config 加载客户端配置：可选的 config.yaml + MINUTEMIND_ 前缀环境变量。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WPeytz/MinuteMind/internal/pkg/httpclient"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/WPeytz/MinuteMind/internal/pkg/proxyurl"
	"github.com/spf13/viper"
)

const envPrefix = "MINUTEMIND"

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// APIConfig 描述 studio 服务的访问方式。
type APIConfig struct {
	// BaseURL 可以是相对路径（/api，按 Origin 解析）或完整 URL。
	BaseURL      string        `mapstructure:"base_url"`
	Origin       string        `mapstructure:"origin"`
	Timeout      time.Duration `mapstructure:"timeout"` // 0 表示不设超时
	MaxRedirects int           `mapstructure:"max_redirects"`
	ProxyURL     string        `mapstructure:"proxy_url"`
	UserAgent    string        `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	Output string        `mapstructure:"output"`
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// HistoryConfig 本地脚本历史（SQLite）。
type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ArchiveConfig 媒体归档到 S3 兼容存储。
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	CDNURL          string `mapstructure:"cdn_url"`
	Concurrency     int    `mapstructure:"concurrency"`
}

type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LoggerOptions 转换为 logger.Init 参数。
func (c LogConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:  c.Level,
		Format: c.Format,
		Output: c.Output,
		File: logger.FileOptions{
			Path:       c.File.Path,
			MaxSizeMB:  c.File.MaxSizeMB,
			MaxBackups: c.File.MaxBackups,
			MaxAgeDays: c.File.MaxAgeDays,
			Compress:   c.File.Compress,
		},
	}
}

// Load reads configuration from the default search paths and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 与 Load 相同，但 path 非空时只读取该文件（文件必须存在）。
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.minutemind")
		v.AddConfigPath("/etc/minutemind")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", httpclient.DefaultBasePath)
	v.SetDefault("api.origin", "http://localhost:8000")
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("api.max_redirects", httpclient.DefaultMaxRedirects)
	v.SetDefault("api.proxy_url", "")
	v.SetDefault("api.user_agent", httpclient.DefaultUserAgent)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 14)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.sqlite_path", "minutemind-history.db")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "minutemind")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.force_path_style", false)
	v.SetDefault("archive.cdn_url", "")
	v.SetDefault("archive.concurrency", 4)

	v.SetDefault("watch.poll_interval", 3*time.Second)
	v.SetDefault("watch.timeout", 10*time.Minute)
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	c.API.Origin = strings.TrimSpace(c.API.Origin)
	c.API.ProxyURL = strings.TrimSpace(c.API.ProxyURL)
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
	if c.Archive.Concurrency <= 0 {
		c.Archive.Concurrency = 1
	}
}

// Validate 校验配置，失败时返回第一条错误。
func (c *Config) Validate() error {
	if c.API.MaxRedirects < 0 || c.API.MaxRedirects > 20 {
		return fmt.Errorf("api.max_redirects must be within [0, 20], got %d", c.API.MaxRedirects)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if _, err := c.API.ResolvedBaseURL(); err != nil {
		return err
	}
	if _, _, err := proxyurl.Parse(c.API.ProxyURL); err != nil {
		return fmt.Errorf("api.proxy_url: %w", err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if strings.EqualFold(c.Log.Output, "file") && strings.TrimSpace(c.Log.File.Path) == "" {
		return fmt.Errorf("log.file.path is required when log.output=file")
	}
	if c.History.Enabled && strings.TrimSpace(c.History.SQLitePath) == "" {
		return fmt.Errorf("history.sqlite_path is required when history is enabled")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive")
	}
	return nil
}

// ResolvedBaseURL 返回规范化后的绝对 base URL。
func (c APIConfig) ResolvedBaseURL() (string, error) {
	return httpclient.ResolveBaseURL(c.Origin, c.BaseURL)
}

// ClientOptions 转换为 httpclient.New 参数。
func (c APIConfig) ClientOptions() (httpclient.Options, error) {
	base, err := c.ResolvedBaseURL()
	if err != nil {
		return httpclient.Options{}, err
	}
	return httpclient.Options{
		BaseURL:      base,
		Timeout:      c.Timeout,
		MaxRedirects: c.MaxRedirects,
		ProxyURL:     c.ProxyURL,
		UserAgent:    c.UserAgent,
	}, nil
}
