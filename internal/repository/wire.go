package repository

import (
	"context"

	"github.com/WPeytz/MinuteMind/internal/config"
	"github.com/WPeytz/MinuteMind/internal/pkg/httpclient"
	"github.com/WPeytz/MinuteMind/internal/service"

	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for all repositories
var ProviderSet = wire.NewSet(
	ProvideHTTPClient,
	NewStudioAPIClient,
	NewMediaFetcher,
	ProvideScriptHistoryRepository,
	ProvideMediaStore,
)

// ProvideHTTPClient 按 api 配置创建共享的 studio HTTP 客户端。
func ProvideHTTPClient(cfg *config.Config) (*httpclient.Client, error) {
	opts, err := cfg.API.ClientOptions()
	if err != nil {
		return nil, err
	}
	return httpclient.New(opts)
}

// ProvideScriptHistoryRepository 历史未启用时返回 nil，ScriptHistoryService 视为关闭。
func ProvideScriptHistoryRepository(cfg *config.Config) (service.ScriptHistoryRepository, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	db, err := OpenSQLite(context.Background(), cfg.History.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	repo := NewScriptHistoryRepository(db)
	return repo, func() { _ = repo.Close() }, nil
}

// ProvideMediaStore 归档未启用时返回 nil。
func ProvideMediaStore(cfg *config.Config) (service.MediaStore, error) {
	return NewS3MediaStore(context.Background(), cfg.Archive)
}
