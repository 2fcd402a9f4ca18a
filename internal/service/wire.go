package service

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for all services
var ProviderSet = wire.NewSet(
	NewStudioService,
	NewVideoWatcher,
	NewScriptHistoryService,
	NewMediaArchiveService,
	wire.Bind(new(VideoCatalog), new(*StudioService)),
)
