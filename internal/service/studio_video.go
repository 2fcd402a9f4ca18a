package service

// VideoStatus 是 studio 定义的渲染生命周期状态。
// 词表由服务端决定：未知取值原样保留，不视为错误。
type VideoStatus string

const (
	VideoStatusPending   VideoStatus = "pending"
	VideoStatusQueued    VideoStatus = "queued"
	VideoStatusRendering VideoStatus = "rendering"
	VideoStatusReady     VideoStatus = "ready"
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusFailed    VideoStatus = "failed"
)

var knownVideoStatuses = map[VideoStatus]bool{
	VideoStatusPending:   true,
	VideoStatusQueued:    true,
	VideoStatusRendering: true,
	VideoStatusReady:     true,
	VideoStatusCompleted: true,
	VideoStatusFailed:    true,
}

// Known reports whether s is one of the statuses this client understands.
func (s VideoStatus) Known() bool {
	return knownVideoStatuses[s]
}

// Terminal 表示渲染已结束（成功或失败）。未知状态不是终态。
func (s VideoStatus) Terminal() bool {
	switch s {
	case VideoStatusReady, VideoStatusCompleted, VideoStatusFailed:
		return true
	default:
		return false
	}
}

// Succeeded reports a terminal success state.
func (s VideoStatus) Succeeded() bool {
	return s == VideoStatusReady || s == VideoStatusCompleted
}

func (s VideoStatus) String() string { return string(s) }

// VideoMetadata 描述一次渲染任务。StoragePath/ThumbnailURL 为 nil 表示尚不可用。
type VideoMetadata struct {
	VideoID      string      `json:"video_id"`
	ScriptID     string      `json:"script_id"`
	Title        string      `json:"title"`
	Status       VideoStatus `json:"status"`
	CreatedAt    Timestamp   `json:"created_at"`
	StoragePath  *string     `json:"storage_path"`
	ThumbnailURL *string     `json:"thumbnail_url"`
}

// FindVideo returns the entry with videoID from a catalog listing.
func FindVideo(videos []VideoMetadata, videoID string) (VideoMetadata, bool) {
	for _, v := range videos {
		if v.VideoID == videoID {
			return v, true
		}
	}
	return VideoMetadata{}, false
}
