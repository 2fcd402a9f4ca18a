package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/WPeytz/MinuteMind/internal/config"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 归档资源类型
const (
	MediaKindAudio     = "audio"
	MediaKindImage     = "image"
	MediaKindThumbnail = "thumbnail"
)

// MediaObject 是一次下载得到的媒体流，调用方负责关闭 Body。
type MediaObject struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 表示未知
}

// MediaFetcher 下载 studio 返回的媒体 URL。
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*MediaObject, error)
}

// MediaStore 存放归档的媒体，返回可访问位置。
type MediaStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// ArchivedAsset 描述一个已归档的媒体文件。
type ArchivedAsset struct {
	Kind      string `json:"kind"`
	SceneID   string `json:"scene_id,omitempty"`
	SourceURL string `json:"source_url"`
	Key       string `json:"key"`
	Location  string `json:"location"`
	Size      int64  `json:"size"`
}

// ArchiveReport 汇总一次归档。SkippedScenes 为没有音频的场景，不算失败。
type ArchiveReport struct {
	ScriptID      string          `json:"script_id,omitempty"`
	VideoID       string          `json:"video_id,omitempty"`
	Assets        []ArchivedAsset `json:"assets"`
	SkippedScenes []string        `json:"skipped_scenes,omitempty"`
}

type archiveJob struct {
	kind     string
	sceneID  string
	source   string
	keyScope string
}

// MediaArchiveService 把脚本音频、配图与视频缩略图复制到 MediaStore。
type MediaArchiveService struct {
	fetcher     MediaFetcher
	store       MediaStore
	prefix      string
	origin      *url.URL
	concurrency int
}

// NewMediaArchiveService 创建归档服务；store 为 nil 表示未启用归档。
func NewMediaArchiveService(fetcher MediaFetcher, store MediaStore, cfg *config.Config) *MediaArchiveService {
	s := &MediaArchiveService{fetcher: fetcher, store: store, concurrency: 1}
	if cfg != nil {
		s.prefix = strings.Trim(cfg.Archive.Prefix, "/")
		if cfg.Archive.Concurrency > 0 {
			s.concurrency = cfg.Archive.Concurrency
		}
		if base, err := cfg.API.ResolvedBaseURL(); err == nil {
			s.origin, _ = url.Parse(base)
		}
	}
	return s
}

// Enabled reports whether archiving is configured.
func (s *MediaArchiveService) Enabled() bool {
	return s != nil && s.store != nil && s.fetcher != nil
}

// ArchiveScript copies every scene audio and image of resp. Scenes without audio are
// reported in SkippedScenes. The first failing download or upload aborts the run.
func (s *MediaArchiveService) ArchiveScript(ctx context.Context, resp *ScriptResponse) (*ArchiveReport, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if resp == nil || strings.TrimSpace(resp.Script.ScriptID) == "" {
		return nil, fmt.Errorf("script response with script_id is required")
	}

	scope := path.Join("scripts", resp.Script.ScriptID)
	var jobs []archiveJob
	for _, scene := range resp.Script.Scenes {
		if audio, ok := resp.AudioFor(scene.SceneID); ok && audio.AudioURL != "" {
			jobs = append(jobs, archiveJob{kind: MediaKindAudio, sceneID: scene.SceneID, source: audio.AudioURL, keyScope: scope})
		}
		if img, ok := resp.ImageFor(scene.SceneID); ok && img.ImageURL != "" {
			jobs = append(jobs, archiveJob{kind: MediaKindImage, sceneID: scene.SceneID, source: img.ImageURL, keyScope: scope})
		}
	}

	assets, err := s.run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	report := &ArchiveReport{
		ScriptID:      resp.Script.ScriptID,
		Assets:        assets,
		SkippedScenes: resp.MissingAudio(),
	}
	logger.With("service.media_archive").Info("archive.script_completed",
		zap.String("script_id", report.ScriptID),
		zap.Int("assets", len(report.Assets)),
		zap.Int("skipped", len(report.SkippedScenes)),
	)
	return report, nil
}

// ArchiveVideo copies the thumbnail of video when one is available.
func (s *MediaArchiveService) ArchiveVideo(ctx context.Context, video VideoMetadata) (*ArchiveReport, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	report := &ArchiveReport{VideoID: video.VideoID, ScriptID: video.ScriptID, Assets: []ArchivedAsset{}}
	if video.ThumbnailURL == nil || *video.ThumbnailURL == "" {
		return report, nil
	}
	assets, err := s.run(ctx, []archiveJob{{
		kind:     MediaKindThumbnail,
		source:   *video.ThumbnailURL,
		keyScope: path.Join("videos", video.VideoID),
	}})
	if err != nil {
		return nil, err
	}
	report.Assets = assets
	return report, nil
}

func (s *MediaArchiveService) run(ctx context.Context, jobs []archiveJob) ([]ArchivedAsset, error) {
	assets := make([]ArchivedAsset, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			asset, err := s.archiveOne(gctx, job)
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *MediaArchiveService) archiveOne(ctx context.Context, job archiveJob) (ArchivedAsset, error) {
	source := s.resolve(job.source)
	obj, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return ArchivedAsset{}, fmt.Errorf("fetch %s for scene %q: %w", job.kind, job.sceneID, err)
	}
	defer func() { _ = obj.Body.Close() }()

	key := s.objectKey(job, source, obj.ContentType)
	location, err := s.store.Put(ctx, key, obj.Body, obj.ContentLength, obj.ContentType)
	if err != nil {
		return ArchivedAsset{}, fmt.Errorf("store %s: %w", key, err)
	}
	return ArchivedAsset{
		Kind:      job.kind,
		SceneID:   job.sceneID,
		SourceURL: job.source,
		Key:       key,
		Location:  location,
		Size:      obj.ContentLength,
	}, nil
}

// resolve 把 /media/... 这类相对地址按 API origin 解析。
func (s *MediaArchiveService) resolve(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || s.origin == nil {
		return raw
	}
	return s.origin.ResolveReference(u).String()
}

// objectKey 格式: {prefix}/{scope}/{scene}-{kind}-{xxhash(url)}{ext}
// 同一来源 URL 总是得到同一个 key，重复归档会覆盖而不是堆积。
func (s *MediaArchiveService) objectKey(job archiveJob, source, contentType string) string {
	name := job.kind
	if job.sceneID != "" {
		name = sanitizeKeySegment(job.sceneID) + "-" + job.kind
	}
	name = fmt.Sprintf("%s-%016x%s", name, xxhash.Sum64String(source), mediaExt(source, contentType))
	return path.Join(s.prefix, job.keyScope, name)
}

func mediaExt(source, contentType string) string {
	if u, err := url.Parse(source); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 6 {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/mpeg":
			return ".mp3"
		case "audio/wav", "audio/x-wav":
			return ".wav"
		case "image/jpeg":
			return ".jpg"
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".bin"
}

func sanitizeKeySegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
