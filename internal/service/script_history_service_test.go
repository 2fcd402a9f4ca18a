package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryHistoryRepo struct {
	mu      sync.Mutex
	records map[string]ScriptRecord
	closed  bool
}

func newMemoryHistoryRepo() *memoryHistoryRepo {
	return &memoryHistoryRepo{records: make(map[string]ScriptRecord)}
}

func (r *memoryHistoryRepo) Upsert(_ context.Context, rec *ScriptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ScriptID] = *rec
	return nil
}

func (r *memoryHistoryRepo) GetByScriptID(_ context.Context, scriptID string) (*ScriptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[scriptID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, scriptID)
	}
	return &rec, nil
}

func (r *memoryHistoryRepo) ListRecent(_ context.Context, limit int) ([]ScriptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ScriptRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec.Payload = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryHistoryRepo) Close() error {
	r.closed = true
	return nil
}

func TestScriptHistoryService_SaveAndGetVerbatim(t *testing.T) {
	repo := newMemoryHistoryRepo()
	svc := NewScriptHistoryService(repo)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC) }
	resp := decodeSample(t)

	require.NoError(t, svc.Save(context.Background(), ScriptRequest{Topic: "volcanoes", DurationMinutes: 2, Tone: "educational"}, resp))

	rec := repo.records["s1"]
	require.Equal(t, "educational", rec.Tone)
	require.Equal(t, 3, rec.SceneCount)
	require.Equal(t, 3, rec.AudioCount)
	require.Equal(t, sampleScriptResponse, string(rec.Payload))
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), rec.GeneratedAt)

	loaded, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	out, err := json.Marshal(loaded)
	require.NoError(t, err)
	require.Equal(t, sampleScriptResponse, string(out))
}

func TestScriptHistoryService_SaveKeepsFormattedPayload(t *testing.T) {
	const body = `{
  "script": {"script_id": "s-amp", "topic": "a & b <c>", "scenes": [
    {"scene_id": "1", "title": "One", "narration": "rock & roll", "duration_seconds": 30}
  ]},
  "audio": []
}`
	repo := newMemoryHistoryRepo()
	svc := NewScriptHistoryService(repo)
	resp, err := DecodeScriptResponse([]byte(body))
	require.NoError(t, err)

	require.NoError(t, svc.Save(context.Background(), ScriptRequest{Topic: "a & b <c>"}, resp))
	require.Equal(t, body, string(repo.records["s-amp"].Payload))
	require.Equal(t, "a & b <c>", repo.records["s-amp"].Topic)

	loaded, err := svc.Get(context.Background(), "s-amp")
	require.NoError(t, err)
	require.Equal(t, body, string(loaded.Raw()))
}

func TestScriptHistoryService_SaveBuiltInCode(t *testing.T) {
	repo := newMemoryHistoryRepo()
	svc := NewScriptHistoryService(repo)
	resp := &ScriptResponse{Script: Script{ScriptID: "local", Topic: "tides"}}

	require.NoError(t, svc.Save(context.Background(), ScriptRequest{Topic: "tides"}, resp))
	payload := repo.records["local"].Payload
	require.NotEmpty(t, payload)
	require.True(t, json.Valid(payload))

	loaded, err := svc.Get(context.Background(), "local")
	require.NoError(t, err)
	require.Equal(t, "tides", loaded.Script.Topic)
}

func TestScriptHistoryService_GetMissing(t *testing.T) {
	svc := NewScriptHistoryService(newMemoryHistoryRepo())
	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrScriptNotFound)

	_, err = svc.Get(context.Background(), "")
	require.Error(t, err)
}

func TestScriptHistoryService_SaveRequiresScriptID(t *testing.T) {
	svc := NewScriptHistoryService(newMemoryHistoryRepo())
	require.Error(t, svc.Save(context.Background(), ScriptRequest{}, nil))
	require.Error(t, svc.Save(context.Background(), ScriptRequest{}, &ScriptResponse{}))
}

func TestScriptHistoryService_ListLimits(t *testing.T) {
	repo := newMemoryHistoryRepo()
	svc := NewScriptHistoryService(repo)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		require.NoError(t, repo.Upsert(context.Background(), &ScriptRecord{ScriptID: fmt.Sprintf("s%02d", i), SavedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, defaultHistoryListLimit)
	require.Equal(t, "s29", list[0].ScriptID)

	list, err = svc.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 5)
}

func TestScriptHistoryService_Disabled(t *testing.T) {
	svc := NewScriptHistoryService(nil)
	require.False(t, svc.Enabled())
	require.Error(t, svc.Save(context.Background(), ScriptRequest{}, decodeSample(t)))
	_, err := svc.Get(context.Background(), "s1")
	require.Error(t, err)
	_, err = svc.List(context.Background(), 1)
	require.Error(t, err)
	require.NoError(t, svc.Close())
}

func TestScriptHistoryService_Close(t *testing.T) {
	repo := newMemoryHistoryRepo()
	require.NoError(t, NewScriptHistoryService(repo).Close())
	require.True(t, repo.closed)
}
