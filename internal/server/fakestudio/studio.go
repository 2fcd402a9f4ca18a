// Package fakestudio 是 studio HTTP 接口的内存实现，用于本地联调与测试。
//
// 它只模拟接口契约：脚本内容是确定性的模板，渲染不会产生真实视频，
// 状态按 queued → rendering → ready 推进（手动 Advance 或定时自动推进）。
package fakestudio

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 渲染状态
const (
	StatusQueued    = "queued"
	StatusRendering = "rendering"
	StatusReady     = "ready"
	StatusFailed    = "failed"
)

// 单个场景的目标时长，场景数按总时长折算。
const (
	targetSceneSeconds = 40
	maxScenes          = 12
)

// naiveTimeLayout 与 Python datetime.utcnow().isoformat() 的输出一致（无时区）。
const naiveTimeLayout = "2006-01-02T15:04:05.000000"

type scene struct {
	SceneID         string  `json:"scene_id"`
	Title           string  `json:"title"`
	Visual          string  `json:"visual"`
	Narration       string  `json:"narration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type script struct {
	ScriptID        string  `json:"script_id"`
	Topic           string  `json:"topic"`
	DurationMinutes float64 `json:"duration_minutes"`
	Scenes          []scene `json:"scenes"`
	CreatedAt       string  `json:"created_at"`
}

type sceneAudio struct {
	SceneID         string   `json:"scene_id"`
	AudioURL        string   `json:"audio_url"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

type sceneImage struct {
	SceneID  string `json:"scene_id"`
	ImageURL string `json:"image_url"`
}

type scriptResponse struct {
	Script script       `json:"script"`
	Audio  []sceneAudio `json:"audio"`
	Images []sceneImage `json:"images"`
}

// Video 是 fakestudio 目录中的一条记录，JSON 形态与 studio 的 VideoMetadata 一致。
type Video struct {
	VideoID      string  `json:"video_id"`
	ScriptID     string  `json:"script_id"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	StoragePath  *string `json:"storage_path"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

type injectedFailure struct {
	status int
	detail any
}

// Studio 保存全部内存状态，并发安全。
type Studio struct {
	mu           sync.Mutex
	videos       []*Video
	failures     map[string][]injectedFailure
	audioGaps    map[string]bool
	renderBodies [][]byte
	now          func() time.Time
}

// New 创建一个空目录的 Studio。
func New() *Studio {
	return &Studio{
		failures:  make(map[string][]injectedFailure),
		audioGaps: make(map[string]bool),
		now:       time.Now,
	}
}

// FailNext 让下一次 method+route 请求返回 status 与 {"detail": detail}。
// route 为不含 base path 的路由，例如 "/scripts/generate"。可多次调用排队。
func (s *Studio) FailNext(method, route string, status int, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := failureKey(method, route)
	s.failures[key] = append(s.failures[key], injectedFailure{status: status, detail: detail})
}

// OmitAudio 让之后生成的脚本不为给定 scene 合成音频。
func (s *Studio) OmitAudio(sceneIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sceneIDs {
		s.audioGaps[id] = true
	}
}

// RenderBodies 返回收到的渲染请求体副本，按到达顺序。
func (s *Studio) RenderBodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.renderBodies))
	for i, b := range s.renderBodies {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// Videos 返回目录快照。
func (s *Studio) Videos() []Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Advance 把 videoID 推进到下一个状态，返回新状态；终态保持不变。
func (s *Studio) Advance(videoID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.VideoID == videoID {
			advanceLocked(v)
			return v.Status, true
		}
	}
	return "", false
}

// AdvanceAll 推进所有未到终态的视频，返回被推进的数量。
func (s *Studio) AdvanceAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.videos {
		if v.Status == StatusReady || v.Status == StatusFailed {
			continue
		}
		advanceLocked(v)
		n++
	}
	return n
}

// SetStatus 直接设置状态，便于模拟失败或未知状态。
func (s *Studio) SetStatus(videoID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.VideoID == videoID {
			v.Status = status
			return true
		}
	}
	return false
}

// RunAutoAdvance 每隔 interval 推进一次所有视频，直到 ctx 结束。
func (s *Studio) RunAutoAdvance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.AdvanceAll(); n > 0 {
				logger.With("fakestudio").Debug("fakestudio.advanced", zap.Int("videos", n))
			}
		}
	}
}

func advanceLocked(v *Video) {
	switch v.Status {
	case StatusQueued:
		v.Status = StatusRendering
	case StatusRendering:
		v.Status = StatusReady
		storage := "/media/" + v.VideoID + ".mp4"
		thumb := "/media/" + v.VideoID + ".jpg"
		v.StoragePath = &storage
		v.ThumbnailURL = &thumb
	}
}

func (s *Studio) takeFailure(method, route string) (injectedFailure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := failureKey(method, route)
	queue := s.failures[key]
	if len(queue) == 0 {
		return injectedFailure{}, false
	}
	f := queue[0]
	if len(queue) == 1 {
		delete(s.failures, key)
	} else {
		s.failures[key] = queue[1:]
	}
	return f, true
}

func (s *Studio) generate(topic string, minutes float64, tone, mediaBase string) scriptResponse {
	s.mu.Lock()
	gaps := make(map[string]bool, len(s.audioGaps))
	for k, v := range s.audioGaps {
		gaps[k] = v
	}
	now := s.now().UTC()
	s.mu.Unlock()

	scriptID := uuid.NewString()
	scenes := buildScenes(topic, minutes, tone)
	resp := scriptResponse{
		Script: script{
			ScriptID:        scriptID,
			Topic:           topic,
			DurationMinutes: minutes,
			Scenes:          scenes,
			CreatedAt:       now.Format(naiveTimeLayout),
		},
		Audio:  []sceneAudio{},
		Images: []sceneImage{},
	}
	for _, sc := range scenes {
		resp.Images = append(resp.Images, sceneImage{
			SceneID:  sc.SceneID,
			ImageURL: fmt.Sprintf("%s/media/%s-%s-image.png", mediaBase, scriptID, sc.SceneID),
		})
		if gaps[sc.SceneID] {
			continue
		}
		resp.Audio = append(resp.Audio, sceneAudio{
			SceneID:  sc.SceneID,
			AudioURL: fmt.Sprintf("%s/media/%s-%s.mp3", mediaBase, scriptID, sc.SceneID),
		})
	}
	return resp
}

// buildScenes 把总时长平均分到若干场景，最后一个场景吸收取整误差，保证总和精确。
func buildScenes(topic string, minutes float64, tone string) []scene {
	total := minutes * 60
	count := int(math.Ceil(total / targetSceneSeconds))
	if count < 1 {
		count = 1
	}
	if count > maxScenes {
		count = maxScenes
	}
	per := math.Floor(total / float64(count))
	if tone == "" {
		tone = "engaging"
	}

	scenes := make([]scene, 0, count)
	remaining := total
	for i := 0; i < count; i++ {
		d := per
		if i == count-1 {
			d = remaining
		}
		remaining -= d
		scenes = append(scenes, scene{
			SceneID:         fmt.Sprintf("scene-%d", i+1),
			Title:           sceneTitle(i, count),
			Visual:          fmt.Sprintf("Illustration of %s, part %d", topic, i+1),
			Narration:       fmt.Sprintf("In a %s tone: part %d of %d about %s.", tone, i+1, count, topic),
			DurationSeconds: d,
		})
	}
	return scenes
}

func sceneTitle(i, count int) string {
	switch {
	case i == 0:
		return "Hook"
	case i == count-1:
		return "Takeaway"
	default:
		return "Core Idea"
	}
}

func (s *Studio) render(body []byte, topic, scriptID string) Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderBodies = append(s.renderBodies, append([]byte(nil), body...))
	v := &Video{
		VideoID:   uuid.NewString(),
		ScriptID:  scriptID,
		Title:     topic,
		Status:    StatusQueued,
		CreatedAt: s.now().UTC().Format(naiveTimeLayout),
	}
	s.videos = append(s.videos, v)
	return *v
}

func (s *Studio) delete(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.videos {
		if v.VideoID == videoID {
			s.videos = append(s.videos[:i], s.videos[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Studio) snapshotLocked() []Video {
	out := make([]Video, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, *v)
	}
	return out
}

func failureKey(method, route string) string {
	return strings.ToUpper(method) + " " + route
}
