package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/WPeytz/MinuteMind/internal/pkg/httpclient"
	"github.com/WPeytz/MinuteMind/internal/service"
	"github.com/WPeytz/MinuteMind/internal/util/logredact"
	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

// studio 接口路径，相对于 base URL。
const (
	scriptsGeneratePath = "/scripts/generate"
	videosRenderPath    = "/videos/render"
	videosListPath      = "/videos/"
	videoItemPathPrefix = "/videos/"
)

// 错误元数据中保留的响应体上限。
const maxErrorBodyBytes = 2048

type studioAPIClient struct {
	http *httpclient.Client
}

// NewStudioAPIClient 基于共享的 httpclient 创建 service.StudioAPI 实现。
func NewStudioAPIClient(client *httpclient.Client) service.StudioAPI {
	return &studioAPIClient{http: client}
}

func (c *studioAPIClient) GenerateScript(ctx context.Context, in service.ScriptRequest) (*service.ScriptResponse, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode script request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, scriptsGeneratePath, payload)
	if err != nil {
		return nil, err
	}
	if violations := checkScriptResponse(body); len(violations) > 0 {
		return nil, contractViolation(http.MethodPost, c.http.Endpoint(scriptsGeneratePath), violations, nil)
	}
	resp, err := service.DecodeScriptResponse(body)
	if err != nil {
		return nil, contractViolation(http.MethodPost, c.http.Endpoint(scriptsGeneratePath), []string{err.Error()}, err)
	}
	return resp, nil
}

func (c *studioAPIClient) RenderVideo(ctx context.Context, script *service.ScriptResponse) (*service.VideoMetadata, error) {
	// 解码得到的响应按原始字节提交；代码构造的才重新编码。
	payload := script.Raw()
	if payload == nil {
		var err error
		if payload, err = json.Marshal(script); err != nil {
			return nil, fmt.Errorf("encode script response: %w", err)
		}
	}
	body, err := c.do(ctx, http.MethodPost, videosRenderPath, payload)
	if err != nil {
		return nil, err
	}
	result := gjson.ParseBytes(body)
	if violations := checkVideo(result, ""); len(violations) > 0 {
		return nil, contractViolation(http.MethodPost, c.http.Endpoint(videosRenderPath), violations, nil)
	}
	var video service.VideoMetadata
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, contractViolation(http.MethodPost, c.http.Endpoint(videosRenderPath), []string{err.Error()}, err)
	}
	return &video, nil
}

func (c *studioAPIClient) ListVideos(ctx context.Context) ([]service.VideoMetadata, error) {
	body, err := c.do(ctx, http.MethodGet, videosListPath, nil)
	if err != nil {
		return nil, err
	}
	if violations := checkVideoList(body); len(violations) > 0 {
		return nil, contractViolation(http.MethodGet, c.http.Endpoint(videosListPath), violations, nil)
	}
	videos := []service.VideoMetadata{}
	if err := json.Unmarshal(body, &videos); err != nil {
		return nil, contractViolation(http.MethodGet, c.http.Endpoint(videosListPath), []string{err.Error()}, err)
	}
	if videos == nil {
		videos = []service.VideoMetadata{}
	}
	return videos, nil
}

func (c *studioAPIClient) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := c.do(ctx, http.MethodDelete, videoItemPathPrefix+url.PathEscape(videoID), nil)
	return err
}

// do 执行一次往返并归类失败：无响应为传输错误，非 2xx 为服务端错误。
func (c *studioAPIClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint := c.http.Endpoint(path)
	resp, err := c.http.Send(ctx, method, path, payload)
	if err != nil {
		return nil, transportFailure(method, endpoint, err)
	}
	body, err := resp.ToBytes()
	if err != nil {
		return nil, transportFailure(method, endpoint, err)
	}
	if !resp.IsSuccessState() {
		return nil, serviceError(method, endpoint, resp, body)
	}
	return body, nil
}

func transportFailure(method, endpoint string, cause error) error {
	return infraerrors.Newf(http.StatusBadGateway, service.ReasonStudioTransport, "%s %s: no response from studio", method, logredact.RedactURL(endpoint)).
		WithCause(cause).
		WithMetadata(map[string]string{
			service.ErrMetaMethod: method,
			service.ErrMetaURL:    logredact.RedactURL(endpoint),
		})
}

func serviceError(method, endpoint string, resp *req.Response, body []byte) error {
	detail := extractDetail(body)
	msg := fmt.Sprintf("%s %s: studio returned %d", method, logredact.RedactURL(endpoint), resp.StatusCode)
	if detail != "" {
		msg += ": " + detail
	}
	meta := map[string]string{
		service.ErrMetaMethod: method,
		service.ErrMetaURL:    logredact.RedactURL(endpoint),
		service.ErrMetaStatus: strconv.Itoa(resp.StatusCode),
		service.ErrMetaBody:   truncateBody(logredact.RedactText(string(body))),
	}
	if detail != "" {
		meta[service.ErrMetaDetail] = detail
	}
	if resp.Request != nil {
		if id := resp.Request.Headers.Get(httpclient.RequestIDHeader); id != "" {
			meta[service.ErrMetaRequestID] = id
		}
	}
	return infraerrors.New(resp.StatusCode, service.ReasonStudioService, msg).WithMetadata(meta)
}

func contractViolation(method, endpoint string, violations []string, cause error) error {
	err := infraerrors.Newf(http.StatusBadGateway, service.ReasonStudioContract, "%s %s: unexpected response: %s",
		method, logredact.RedactURL(endpoint), strings.Join(violations, "; ")).
		WithMetadata(map[string]string{
			service.ErrMetaMethod:     method,
			service.ErrMetaURL:        logredact.RedactURL(endpoint),
			service.ErrMetaViolations: strings.Join(violations, "; "),
		})
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// extractDetail 读取 FastAPI 风格的 {"detail": ...}。detail 可能是字符串或校验错误数组。
func extractDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case !detail.Exists():
		return ""
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		var parts []string
		detail.ForEach(func(_, item gjson.Result) bool {
			if m := item.Get("msg"); m.Exists() {
				loc := item.Get("loc")
				if loc.IsArray() {
					var segs []string
					for _, s := range loc.Array() {
						segs = append(segs, s.String())
					}
					parts = append(parts, strings.Join(segs, ".")+": "+m.String())
				} else {
					parts = append(parts, m.String())
				}
			} else {
				parts = append(parts, item.Raw)
			}
			return true
		})
		return strings.Join(parts, "; ")
	default:
		return detail.Raw
	}
}

func truncateBody(s string) string {
	if len(s) <= maxErrorBodyBytes {
		return s
	}
	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}

func checkScriptResponse(body []byte) []string {
	if !gjson.ValidBytes(body) {
		return []string{"body is not valid JSON"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return []string{"body is not a JSON object"}
	}
	var violations []string
	script := root.Get("script")
	if !script.IsObject() {
		violations = append(violations, "script: missing or not an object")
	} else {
		violations = append(violations, requireString(script, "script_id", "script.")...)
		scenes := script.Get("scenes")
		if !scenes.IsArray() {
			violations = append(violations, "script.scenes: missing or not an array")
		} else {
			for i, scene := range scenes.Array() {
				prefix := fmt.Sprintf("script.scenes.%d.", i)
				violations = append(violations, requireString(scene, "scene_id", prefix)...)
				violations = append(violations, requireNumber(scene, "duration_seconds", prefix)...)
			}
		}
	}
	audio := root.Get("audio")
	if !audio.IsArray() {
		violations = append(violations, "audio: missing or not an array")
	} else {
		for i, item := range audio.Array() {
			prefix := fmt.Sprintf("audio.%d.", i)
			violations = append(violations, requireString(item, "scene_id", prefix)...)
			violations = append(violations, requireString(item, "audio_url", prefix)...)
			if d := item.Get("duration_seconds"); d.Exists() && d.Type != gjson.Null && d.Type != gjson.Number {
				violations = append(violations, prefix+"duration_seconds: not a number")
			}
		}
	}
	if images := root.Get("images"); images.Exists() && images.Type != gjson.Null && !images.IsArray() {
		violations = append(violations, "images: not an array")
	}
	return violations
}

func checkVideoList(body []byte) []string {
	if !gjson.ValidBytes(body) {
		return []string{"body is not valid JSON"}
	}
	root := gjson.ParseBytes(body)
	if root.Type == gjson.Null {
		return nil
	}
	if !root.IsArray() {
		return []string{"body is not a JSON array"}
	}
	var violations []string
	for i, item := range root.Array() {
		violations = append(violations, checkVideo(item, fmt.Sprintf("%d.", i))...)
	}
	return violations
}

func checkVideo(v gjson.Result, prefix string) []string {
	if !v.IsObject() {
		if prefix == "" {
			return []string{"body is not a JSON object"}
		}
		return []string{strings.TrimSuffix(prefix, ".") + ": not an object"}
	}
	var violations []string
	violations = append(violations, requireString(v, "video_id", prefix)...)
	violations = append(violations, requireString(v, "script_id", prefix)...)
	violations = append(violations, requireString(v, "status", prefix)...)
	for _, optional := range []string{"storage_path", "thumbnail_url", "title", "created_at"} {
		if f := v.Get(optional); f.Exists() && f.Type != gjson.Null && f.Type != gjson.String {
			violations = append(violations, prefix+optional+": not a string")
		}
	}
	return violations
}

func requireString(v gjson.Result, field, prefix string) []string {
	f := v.Get(field)
	if !f.Exists() || f.Type != gjson.String {
		return []string{prefix + field + ": missing or not a string"}
	}
	return nil
}

func requireNumber(v gjson.Result, field, prefix string) []string {
	f := v.Get(field)
	if !f.Exists() || f.Type != gjson.Number {
		return []string{prefix + field + ": missing or not a number"}
	}
	return nil
}
