package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
)

const (
	defaultHistoryListLimit = 20
	maxHistoryListLimit     = 500
)

// ScriptRecord 是本地保存的一次生成结果。Payload 为 studio 返回的原始 JSON。
type ScriptRecord struct {
	ScriptID        string
	Topic           string
	Tone            string
	DurationMinutes float64
	SceneCount      int
	AudioCount      int
	Payload         []byte
	GeneratedAt     time.Time // script.created_at，可能为零值
	SavedAt         time.Time
}

// ScriptHistoryRepository 脚本历史持久化接口。
type ScriptHistoryRepository interface {
	// Upsert 按 script_id 覆盖写入。
	Upsert(ctx context.Context, rec *ScriptRecord) error
	// GetByScriptID 不存在时返回 ErrScriptNotFound。
	GetByScriptID(ctx context.Context, scriptID string) (*ScriptRecord, error)
	// ListRecent 按保存时间倒序返回，不含 Payload。
	ListRecent(ctx context.Context, limit int) ([]ScriptRecord, error)
	Close() error
}

// ScriptHistoryService 记录生成过的脚本，便于之后原样提交渲染。
type ScriptHistoryService struct {
	repo ScriptHistoryRepository
	now  func() time.Time
}

// NewScriptHistoryService 创建脚本历史服务；repo 为 nil 时所有操作返回错误。
func NewScriptHistoryService(repo ScriptHistoryRepository) *ScriptHistoryService {
	return &ScriptHistoryService{repo: repo, now: time.Now}
}

// Enabled reports whether a backing store is configured.
func (s *ScriptHistoryService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Save stores resp exactly as received from the studio.
func (s *ScriptHistoryService) Save(ctx context.Context, req ScriptRequest, resp *ScriptResponse) error {
	if !s.Enabled() {
		return fmt.Errorf("script history is disabled")
	}
	if resp == nil || strings.TrimSpace(resp.Script.ScriptID) == "" {
		return infraerrors.New(http.StatusBadRequest, ReasonInvalidArgument, "script response with script_id is required")
	}
	payload := resp.Raw()
	if payload == nil {
		encoded, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode script response: %w", err)
		}
		payload = encoded
	}
	rec := &ScriptRecord{
		ScriptID:        resp.Script.ScriptID,
		Topic:           resp.Script.Topic,
		Tone:            req.Tone,
		DurationMinutes: resp.Script.DurationMinutes,
		SceneCount:      len(resp.Script.Scenes),
		AudioCount:      len(resp.Audio),
		Payload:         payload,
		GeneratedAt:     resp.Script.CreatedAt.Time(),
		SavedAt:         s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("save script %s: %w", rec.ScriptID, err)
	}
	logger.LegacyPrintf("service.script_history", "[ScriptHistory] saved script_id=%s scenes=%d audio=%d", rec.ScriptID, rec.SceneCount, rec.AudioCount)
	return nil
}

// Get loads a stored response; its Raw() is the stored payload byte for byte.
func (s *ScriptHistoryService) Get(ctx context.Context, scriptID string) (*ScriptResponse, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("script history is disabled")
	}
	scriptID = strings.TrimSpace(scriptID)
	if scriptID == "" {
		return nil, infraerrors.New(http.StatusBadRequest, ReasonInvalidArgument, "script id is required")
	}
	rec, err := s.repo.GetByScriptID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	return DecodeScriptResponse(rec.Payload)
}

// List returns the most recent records, newest first.
func (s *ScriptHistoryService) List(ctx context.Context, limit int) ([]ScriptRecord, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("script history is disabled")
	}
	if limit <= 0 {
		limit = defaultHistoryListLimit
	}
	if limit > maxHistoryListLimit {
		limit = maxHistoryListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// Close releases the backing store.
func (s *ScriptHistoryService) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.Close()
}
