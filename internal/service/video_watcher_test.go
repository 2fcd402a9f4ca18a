package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/WPeytz/MinuteMind/internal/config"
	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(catalog VideoCatalog, timeout time.Duration) *VideoWatcher {
	return NewVideoWatcher(catalog, &config.Config{Watch: config.WatchConfig{
		PollInterval: time.Millisecond,
		Timeout:      timeout,
	}})
}

func TestVideoWatcher_ReachesTerminal(t *testing.T) {
	api := &stubStudioAPI{listResp: [][]VideoMetadata{
		{},
		{{VideoID: "v1", Status: VideoStatusQueued}},
		{{VideoID: "v1", Status: VideoStatusQueued}},
		{{VideoID: "v1", Status: VideoStatusRendering}},
		{{VideoID: "v1", Status: VideoStatusReady}},
	}}

	var seen []VideoStatus
	video, err := newTestWatcher(api, time.Second).Wait(context.Background(), "v1", func(v VideoMetadata) {
		seen = append(seen, v.Status)
	})
	require.NoError(t, err)
	require.Equal(t, VideoStatusReady, video.Status)
	require.Equal(t, []VideoStatus{VideoStatusQueued, VideoStatusRendering, VideoStatusReady}, seen)
	require.Equal(t, 5, api.listCalls)
}

func TestVideoWatcher_EmptyFirstStatusReported(t *testing.T) {
	api := &stubStudioAPI{listResp: [][]VideoMetadata{
		{{VideoID: "v1", Status: VideoStatus("")}},
		{{VideoID: "v1", Status: VideoStatus("")}},
		{{VideoID: "v1", Status: VideoStatusReady}},
	}}

	var seen []VideoStatus
	_, err := newTestWatcher(api, time.Second).Wait(context.Background(), "v1", func(v VideoMetadata) {
		seen = append(seen, v.Status)
	})
	require.NoError(t, err)
	require.Equal(t, []VideoStatus{VideoStatus(""), VideoStatusReady}, seen)
}

func TestVideoWatcher_FailedIsTerminal(t *testing.T) {
	api := &stubStudioAPI{listResp: [][]VideoMetadata{{{VideoID: "v1", Status: VideoStatusFailed}}}}
	video, err := newTestWatcher(api, time.Second).Wait(context.Background(), "v1", nil)
	require.NoError(t, err)
	require.False(t, video.Status.Succeeded())
}

func TestVideoWatcher_TimeoutKeepsLastStatus(t *testing.T) {
	api := &stubStudioAPI{listResp: [][]VideoMetadata{{{VideoID: "v1", Status: VideoStatus("transcoding")}}}}
	video, err := newTestWatcher(api, 20*time.Millisecond).Wait(context.Background(), "v1", nil)
	require.ErrorIs(t, err, ErrVideoNotTerminal)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, video)
	require.Equal(t, VideoStatus("transcoding"), video.Status)
}

func TestVideoWatcher_NeverListed(t *testing.T) {
	api := &stubStudioAPI{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	video, err := newTestWatcher(api, 0).Wait(ctx, "v1", nil)
	require.ErrorIs(t, err, ErrVideoNotFound)
	require.Nil(t, video)
}

func TestVideoWatcher_CatalogErrorAborts(t *testing.T) {
	upstream := infraerrors.New(http.StatusInternalServerError, ReasonStudioService, "boom")
	api := &stubStudioAPI{listErr: upstream}

	_, err := newTestWatcher(api, time.Second).Wait(context.Background(), "v1", nil)
	require.ErrorIs(t, err, upstream)
	require.False(t, errors.Is(err, ErrVideoNotTerminal))
	require.Equal(t, 1, api.listCalls)
}

func TestVideoWatcher_RequiresID(t *testing.T) {
	_, err := newTestWatcher(&stubStudioAPI{}, time.Second).Wait(context.Background(), " ", nil)
	require.Error(t, err)
}

func TestNewVideoWatcher_Defaults(t *testing.T) {
	w := NewVideoWatcher(&stubStudioAPI{}, nil)
	require.Equal(t, defaultWatchPollInterval, w.interval)
	require.Zero(t, w.timeout)
}
