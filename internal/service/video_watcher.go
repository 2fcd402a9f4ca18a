package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/WPeytz/MinuteMind/internal/config"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"go.uber.org/zap"
)

const defaultWatchPollInterval = 3 * time.Second

// VideoWatcher 通过反复拉取目录观察渲染状态变化（studio 不推送）。
type VideoWatcher struct {
	catalog  VideoCatalog
	interval time.Duration
	timeout  time.Duration
}

// NewVideoWatcher 创建 VideoWatcher，参数来自 watch 配置。
func NewVideoWatcher(catalog VideoCatalog, cfg *config.Config) *VideoWatcher {
	w := &VideoWatcher{catalog: catalog, interval: defaultWatchPollInterval}
	if cfg != nil {
		if cfg.Watch.PollInterval > 0 {
			w.interval = cfg.Watch.PollInterval
		}
		w.timeout = cfg.Watch.Timeout
	}
	return w
}

// Wait polls the catalog until videoID shows a terminal status.
//
// onUpdate, when non-nil, is called each time the observed status changes.
// Catalog errors abort the wait unchanged. On timeout or cancellation the last observed
// metadata (if any) is returned together with ErrVideoNotTerminal or ErrVideoNotFound.
func (w *VideoWatcher) Wait(ctx context.Context, videoID string, onUpdate func(VideoMetadata)) (*VideoMetadata, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("video id is required")
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	log := logger.With("service.video_watcher").With(zap.String("video_id", videoID))
	var (
		last *VideoMetadata
		seen VideoStatus
	)
	giveUp := func() (*VideoMetadata, error) {
		if last == nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrVideoNotFound, videoID, ctx.Err())
		}
		return last, fmt.Errorf("%w: %s last status %q: %w", ErrVideoNotTerminal, videoID, last.Status, ctx.Err())
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return giveUp()
		case <-timer.C:
		}

		videos, err := w.catalog.ListVideos(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return giveUp()
			}
			return last, err
		}
		if video, ok := FindVideo(videos, videoID); ok {
			changed := last == nil || video.Status != seen
			last = &video
			if changed {
				seen = video.Status
				log.Debug("studio.video_status_changed", zap.String("status", seen.String()), zap.Bool("known", seen.Known()))
				if onUpdate != nil {
					onUpdate(video)
				}
			}
			if video.Status.Terminal() {
				return last, nil
			}
		}
		timer.Reset(w.interval)
	}
}
