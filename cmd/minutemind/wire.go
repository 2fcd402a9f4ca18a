//go:build wireinject
// +build wireinject

package main

import (
	"github.com/WPeytz/MinuteMind/internal/config"
	"github.com/WPeytz/MinuteMind/internal/repository"
	"github.com/WPeytz/MinuteMind/internal/service"

	"github.com/google/wire"
)

type Application struct {
	Config  *config.Config
	Studio  *service.StudioService
	Watcher *service.VideoWatcher
	History *service.ScriptHistoryService
	Archive *service.MediaArchiveService
}

func initializeApplication(cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		repository.ProviderSet,
		service.ProviderSet,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
