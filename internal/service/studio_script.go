package service

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
)

// ScriptRequest 生成脚本的输入。Tone 为空时由 studio 使用默认语气。
type ScriptRequest struct {
	Topic           string  `json:"topic"`
	DurationMinutes float64 `json:"duration_minutes"`
	Tone            string  `json:"tone,omitempty"`
}

// Validate 在发起网络请求前检查输入约束。
func (r ScriptRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return infraerrors.New(http.StatusBadRequest, ReasonInvalidScriptRequest, "topic must not be empty")
	}
	if math.IsNaN(r.DurationMinutes) || math.IsInf(r.DurationMinutes, 0) || r.DurationMinutes <= 0 {
		return infraerrors.Newf(http.StatusBadRequest, ReasonInvalidScriptRequest, "duration_minutes must be a positive number, got %v", r.DurationMinutes)
	}
	return nil
}

// Scene is one narrated segment; it has no lifecycle outside its Script.
type Scene struct {
	SceneID         string  `json:"scene_id"`
	Title           string  `json:"title"`
	Visual          string  `json:"visual"`
	Narration       string  `json:"narration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Script 的 Scenes 顺序即叙事顺序，也是下游渲染顺序。
type Script struct {
	ScriptID        string    `json:"script_id"`
	Topic           string    `json:"topic"`
	DurationMinutes float64   `json:"duration_minutes"`
	Scenes          []Scene   `json:"scenes"`
	CreatedAt       Timestamp `json:"created_at"`
}

// TotalSeconds sums the scene durations.
func (s Script) TotalSeconds() float64 {
	var total float64
	for _, scene := range s.Scenes {
		total += scene.DurationSeconds
	}
	return total
}

// SceneIDs returns scene ids in narrative order.
func (s Script) SceneIDs() []string {
	ids := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		ids = append(ids, scene.SceneID)
	}
	return ids
}

// Scene looks up a scene by id.
func (s Script) Scene(sceneID string) (Scene, bool) {
	for _, scene := range s.Scenes {
		if scene.SceneID == sceneID {
			return scene, true
		}
	}
	return Scene{}, false
}

// SceneAudio 是某个 Scene 的合成语音。DurationSeconds 为 nil 表示未知。
type SceneAudio struct {
	SceneID         string   `json:"scene_id"`
	AudioURL        string   `json:"audio_url"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// SceneImage 是某个 Scene 的配图，studio 生成失败时可能整体缺失。
type SceneImage struct {
	SceneID  string `json:"scene_id"`
	ImageURL string `json:"image_url"`
}

// ScriptResponse 是生成阶段的输出，也是渲染阶段的输入。
//
// 从 JSON 解码得到的值会记住原始字节，再次编码时原样输出，
// 因此 render 收到的就是 generate 返回的内容。收到后不要修改字段。
type ScriptResponse struct {
	Script Script       `json:"script"`
	Audio  []SceneAudio `json:"audio"`
	Images []SceneImage `json:"images,omitempty"`

	raw []byte
}

type scriptResponseAlias ScriptResponse

func (r *ScriptResponse) UnmarshalJSON(data []byte) error {
	var alias scriptResponseAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = ScriptResponse(alias)
	r.raw = append([]byte(nil), data...)
	return nil
}

func (r ScriptResponse) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return append([]byte(nil), r.raw...), nil
	}
	alias := scriptResponseAlias(r)
	if alias.Audio == nil {
		alias.Audio = []SceneAudio{}
	}
	if alias.Script.Scenes == nil {
		alias.Script.Scenes = []Scene{}
	}
	return json.Marshal(alias)
}

// DecodeScriptResponse decodes data and keeps it as the pass-through payload.
func DecodeScriptResponse(data []byte) (*ScriptResponse, error) {
	var resp ScriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode script response: %w", err)
	}
	return &resp, nil
}

// Raw returns a copy of the bytes the response was decoded from, nil if built in code.
func (r ScriptResponse) Raw() []byte {
	if len(r.raw) == 0 {
		return nil
	}
	return append([]byte(nil), r.raw...)
}

// AudioFor returns the audio entry for sceneID. A missing entry is a valid state.
func (r ScriptResponse) AudioFor(sceneID string) (SceneAudio, bool) {
	for _, a := range r.Audio {
		if a.SceneID == sceneID {
			return a, true
		}
	}
	return SceneAudio{}, false
}

// ImageFor returns the image entry for sceneID.
func (r ScriptResponse) ImageFor(sceneID string) (SceneImage, bool) {
	for _, img := range r.Images {
		if img.SceneID == sceneID {
			return img, true
		}
	}
	return SceneImage{}, false
}

// MissingAudio lists scene ids without audio, in narrative order.
func (r ScriptResponse) MissingAudio() []string {
	have := make(map[string]struct{}, len(r.Audio))
	for _, a := range r.Audio {
		have[a.SceneID] = struct{}{}
	}
	var missing []string
	for _, scene := range r.Script.Scenes {
		if _, ok := have[scene.SceneID]; !ok {
			missing = append(missing, scene.SceneID)
		}
	}
	return missing
}

// OrphanAudio lists audio entries that reference no scene of the script.
func (r ScriptResponse) OrphanAudio() []SceneAudio {
	known := make(map[string]struct{}, len(r.Script.Scenes))
	for _, scene := range r.Script.Scenes {
		known[scene.SceneID] = struct{}{}
	}
	var orphans []SceneAudio
	for _, a := range r.Audio {
		if _, ok := known[a.SceneID]; !ok {
			orphans = append(orphans, a)
		}
	}
	return orphans
}
