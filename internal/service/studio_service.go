package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"go.uber.org/zap"
)

// StudioAPI 是 studio 的三个流水线接口（加上删除），由 repository 层用 HTTP 实现。
// 每次调用恰好一次网络往返：不重试、不缓存。
type StudioAPI interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error)
	RenderVideo(ctx context.Context, script *ScriptResponse) (*VideoMetadata, error)
	ListVideos(ctx context.Context) ([]VideoMetadata, error)
	DeleteVideo(ctx context.Context, videoID string) error
}

// VideoCatalog is the read-only slice of StudioAPI used by watchers.
type VideoCatalog interface {
	ListVideos(ctx context.Context) ([]VideoMetadata, error)
}

// StudioService 在 StudioAPI 之上做输入校验与日志，错误原样透传。
type StudioService struct {
	api StudioAPI
}

// NewStudioService 创建 StudioService。
func NewStudioService(api StudioAPI) *StudioService {
	return &StudioService{api: api}
}

// GenerateScript validates req locally, then issues exactly one generation call.
func (s *StudioService) GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resp, err := s.api.GenerateScript(ctx, req)
	if err != nil {
		logger.With("service.studio").Warn("studio.generate_failed",
			zap.String("topic", req.Topic),
			zap.String("reason", infraerrors.Reason(err)),
			zap.Error(err),
		)
		return nil, err
	}

	log := logger.With("service.studio").With(
		zap.String("script_id", resp.Script.ScriptID),
		zap.Int("scenes", len(resp.Script.Scenes)),
		zap.Int("audio", len(resp.Audio)),
		zap.Float64("total_seconds", resp.Script.TotalSeconds()),
	)
	if missing := resp.MissingAudio(); len(missing) > 0 {
		// 音频缺失是合法状态，交给调用方决定如何展示。
		log = log.With(zap.Strings("scenes_without_audio", missing))
	}
	if orphans := resp.OrphanAudio(); len(orphans) > 0 {
		log = log.With(zap.Int("orphan_audio", len(orphans)))
	}
	log.Info("studio.script_generated")
	return resp, nil
}

// RenderVideo submits script unmodified. The returned status is the initial acceptance
// state and is usually not terminal; use VideoWatcher to observe completion.
func (s *StudioService) RenderVideo(ctx context.Context, script *ScriptResponse) (*VideoMetadata, error) {
	if script == nil {
		return nil, infraerrors.New(http.StatusBadRequest, ReasonInvalidArgument, "script response is required")
	}
	video, err := s.api.RenderVideo(ctx, script)
	if err != nil {
		logger.With("service.studio").Warn("studio.render_failed",
			zap.String("script_id", script.Script.ScriptID),
			zap.String("reason", infraerrors.Reason(err)),
			zap.Int("status", StatusCode(err)),
			zap.Error(err),
		)
		return nil, err
	}
	logger.With("service.studio").Info("studio.render_submitted",
		zap.String("video_id", video.VideoID),
		zap.String("script_id", video.ScriptID),
		zap.String("status", video.Status.String()),
	)
	return video, nil
}

// ListVideos returns the catalog in service order. An empty catalog is not an error.
func (s *StudioService) ListVideos(ctx context.Context) ([]VideoMetadata, error) {
	return s.api.ListVideos(ctx)
}

// GetVideo finds one video in the catalog.
func (s *StudioService) GetVideo(ctx context.Context, videoID string) (*VideoMetadata, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, infraerrors.New(http.StatusBadRequest, ReasonInvalidArgument, "video id is required")
	}
	videos, err := s.api.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	video, ok := FindVideo(videos, videoID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	return &video, nil
}

// DeleteVideo removes a video and its metadata on the studio.
func (s *StudioService) DeleteVideo(ctx context.Context, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return infraerrors.New(http.StatusBadRequest, ReasonInvalidArgument, "video id is required")
	}
	if err := s.api.DeleteVideo(ctx, videoID); err != nil {
		return err
	}
	logger.With("service.studio").Info("studio.video_deleted", zap.String("video_id", videoID))
	return nil
}
