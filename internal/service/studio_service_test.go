package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/stretchr/testify/require"
)

// stubStudioAPI 记录调用并返回预设结果。
type stubStudioAPI struct {
	mu sync.Mutex

	generateResp *ScriptResponse
	generateErr  error
	renderResp   *VideoMetadata
	renderErr    error
	listResp     [][]VideoMetadata // 逐次返回，最后一项重复
	listErr      error
	deleteErr    error

	generateCalls int
	renderCalls   int
	listCalls     int
	deleted       []string
	lastRender    *ScriptResponse
}

func (s *stubStudioAPI) GenerateScript(_ context.Context, _ ScriptRequest) (*ScriptResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateCalls++
	return s.generateResp, s.generateErr
}

func (s *stubStudioAPI) RenderVideo(_ context.Context, script *ScriptResponse) (*VideoMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderCalls++
	s.lastRender = script
	return s.renderResp, s.renderErr
}

func (s *stubStudioAPI) ListVideos(_ context.Context) ([]VideoMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.listResp) == 0 {
		return []VideoMetadata{}, nil
	}
	idx := s.listCalls - 1
	if idx >= len(s.listResp) {
		idx = len(s.listResp) - 1
	}
	return s.listResp[idx], nil
}

func (s *stubStudioAPI) DeleteVideo(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, videoID)
	return s.deleteErr
}

func TestStudioService_GenerateValidatesLocally(t *testing.T) {
	api := &stubStudioAPI{}
	svc := NewStudioService(api)

	_, err := svc.GenerateScript(context.Background(), ScriptRequest{Topic: "", DurationMinutes: 2})
	require.Equal(t, ReasonInvalidScriptRequest, infraerrors.Reason(err))
	require.Zero(t, api.generateCalls)
}

func TestStudioService_GenerateSingleAttempt(t *testing.T) {
	upstream := infraerrors.New(http.StatusServiceUnavailable, ReasonStudioService, "busy")
	api := &stubStudioAPI{generateErr: upstream}
	svc := NewStudioService(api)

	_, err := svc.GenerateScript(context.Background(), ScriptRequest{Topic: "volcanoes", DurationMinutes: 2})
	require.ErrorIs(t, err, upstream)
	require.Equal(t, 1, api.generateCalls)
	require.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestStudioService_GenerateAllowsMissingAudio(t *testing.T) {
	api := &stubStudioAPI{generateResp: decodeSample(t)}
	resp, err := NewStudioService(api).GenerateScript(context.Background(), ScriptRequest{Topic: "volcanoes", DurationMinutes: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"scene-2"}, resp.MissingAudio())
}

func TestStudioService_RenderPassesScriptThrough(t *testing.T) {
	script := decodeSample(t)
	api := &stubStudioAPI{renderResp: &VideoMetadata{VideoID: "v1", ScriptID: "s1", Status: VideoStatusQueued}}

	video, err := NewStudioService(api).RenderVideo(context.Background(), script)
	require.NoError(t, err)
	require.Same(t, script, api.lastRender)
	require.Equal(t, script.Script.ScriptID, video.ScriptID)
}

func TestStudioService_RenderNil(t *testing.T) {
	api := &stubStudioAPI{}
	_, err := NewStudioService(api).RenderVideo(context.Background(), nil)
	require.Equal(t, ReasonInvalidArgument, infraerrors.Reason(err))
	require.Zero(t, api.renderCalls)
}

func TestStudioService_RenderError(t *testing.T) {
	api := &stubStudioAPI{renderErr: infraerrors.New(http.StatusBadGateway, ReasonStudioTransport, "down")}
	_, err := NewStudioService(api).RenderVideo(context.Background(), decodeSample(t))
	require.True(t, IsTransportFailure(err))
	require.Zero(t, StatusCode(err))
}

func TestStudioService_ListEmpty(t *testing.T) {
	videos, err := NewStudioService(&stubStudioAPI{}).ListVideos(context.Background())
	require.NoError(t, err)
	require.NotNil(t, videos)
	require.Empty(t, videos)
}

func TestStudioService_GetVideo(t *testing.T) {
	api := &stubStudioAPI{listResp: [][]VideoMetadata{{{VideoID: "v1", Status: VideoStatusRendering}}}}
	svc := NewStudioService(api)

	v, err := svc.GetVideo(context.Background(), " v1 ")
	require.NoError(t, err)
	require.Equal(t, VideoStatusRendering, v.Status)

	_, err = svc.GetVideo(context.Background(), "v2")
	require.ErrorIs(t, err, ErrVideoNotFound)

	_, err = svc.GetVideo(context.Background(), "")
	require.Equal(t, ReasonInvalidArgument, infraerrors.Reason(err))
}

func TestStudioService_DeleteVideo(t *testing.T) {
	api := &stubStudioAPI{}
	svc := NewStudioService(api)

	require.NoError(t, svc.DeleteVideo(context.Background(), "v1"))
	require.Equal(t, []string{"v1"}, api.deleted)

	require.Error(t, svc.DeleteVideo(context.Background(), "  "))
	require.Len(t, api.deleted, 1)

	api.deleteErr = infraerrors.New(http.StatusNotFound, ReasonStudioService, "missing")
	err := svc.DeleteVideo(context.Background(), "v2")
	require.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestErrorClassifiers(t *testing.T) {
	transport := infraerrors.New(http.StatusBadGateway, ReasonStudioTransport, "x").WithCause(context.DeadlineExceeded)
	require.True(t, IsTransportFailure(transport))
	require.False(t, IsServiceError(transport))
	require.True(t, IsCanceled(transport))

	contract := infraerrors.New(http.StatusBadGateway, ReasonStudioContract, "x")
	require.True(t, IsContractViolation(contract))
	require.Zero(t, StatusCode(contract))

	require.False(t, IsTransportFailure(nil))
	require.False(t, IsServiceError(errors.New("plain")))
	require.Zero(t, StatusCode(nil))
}
