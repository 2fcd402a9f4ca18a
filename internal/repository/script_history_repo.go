package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/WPeytz/MinuteMind/internal/service"

	_ "modernc.org/sqlite" // 注册 "sqlite" 驱动
)

// scriptHistoryTableDDL 定义脚本历史表。
// - payload: studio 返回的原始 JSON，渲染时原样提交
// - generated_at: script.created_at，studio 未返回时为 NULL
// - saved_at: 本地写入时间（RFC 3339，UTC），用于排序
const scriptHistoryTableDDL = `
CREATE TABLE IF NOT EXISTS script_history (
	script_id        TEXT PRIMARY KEY,
	topic            TEXT NOT NULL,
	tone             TEXT NOT NULL DEFAULT '',
	duration_minutes REAL NOT NULL,
	scene_count      INTEGER NOT NULL,
	audio_count      INTEGER NOT NULL,
	payload          BLOB NOT NULL,
	generated_at     TEXT NULL,
	saved_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_script_history_saved_at ON script_history (saved_at DESC);
`

const sqliteBusyTimeoutMS = 5000

// storedTimeLayout 定宽，保证按文本排序即按时间排序。
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// scriptHistoryRepository 实现 service.ScriptHistoryRepository，使用原生 SQL 操作 script_history 表。
type scriptHistoryRepository struct {
	sql *sql.DB
}

// NewScriptHistoryRepository 创建脚本历史仓储实例。调用方需先执行 EnsureScriptHistorySchema。
func NewScriptHistoryRepository(sqlDB *sql.DB) service.ScriptHistoryRepository {
	return &scriptHistoryRepository{sql: sqlDB}
}

// OpenSQLite 打开（必要时创建）path 处的 SQLite 数据库并建表。
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite 单写者；单连接避免 SQLITE_BUSY。
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMS)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := EnsureScriptHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureScriptHistorySchema 幂等建表。
func EnsureScriptHistorySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, scriptHistoryTableDDL); err != nil {
		return fmt.Errorf("create script_history table: %w", err)
	}
	return nil
}

func (r *scriptHistoryRepository) Upsert(ctx context.Context, rec *service.ScriptRecord) error {
	if rec == nil {
		return fmt.Errorf("script record is nil")
	}
	_, err := r.sql.ExecContext(ctx, `
		INSERT INTO script_history (
			script_id, topic, tone, duration_minutes,
			scene_count, audio_count, payload, generated_at, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(script_id) DO UPDATE SET
			topic = excluded.topic,
			tone = excluded.tone,
			duration_minutes = excluded.duration_minutes,
			scene_count = excluded.scene_count,
			audio_count = excluded.audio_count,
			payload = excluded.payload,
			generated_at = excluded.generated_at,
			saved_at = excluded.saved_at
	`,
		rec.ScriptID, rec.Topic, rec.Tone, rec.DurationMinutes,
		rec.SceneCount, rec.AudioCount, rec.Payload, formatNullableTime(rec.GeneratedAt), formatTime(rec.SavedAt),
	)
	return err
}

func (r *scriptHistoryRepository) GetByScriptID(ctx context.Context, scriptID string) (*service.ScriptRecord, error) {
	row := r.sql.QueryRowContext(ctx, `
		SELECT script_id, topic, tone, duration_minutes,
			scene_count, audio_count, payload, generated_at, saved_at
		FROM script_history WHERE script_id = ?
	`, scriptID)

	rec := &service.ScriptRecord{}
	var generatedAt sql.NullString
	var savedAt string
	err := row.Scan(
		&rec.ScriptID, &rec.Topic, &rec.Tone, &rec.DurationMinutes,
		&rec.SceneCount, &rec.AudioCount, &rec.Payload, &generatedAt, &savedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrScriptNotFound, scriptID)
		}
		return nil, err
	}
	if rec.GeneratedAt, err = parseNullableTime(generatedAt); err != nil {
		return nil, err
	}
	if rec.SavedAt, err = parseTime(savedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *scriptHistoryRepository) ListRecent(ctx context.Context, limit int) ([]service.ScriptRecord, error) {
	rows, err := r.sql.QueryContext(ctx, `
		SELECT script_id, topic, tone, duration_minutes,
			scene_count, audio_count, generated_at, saved_at
		FROM script_history
		ORDER BY saved_at DESC, script_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]service.ScriptRecord, 0, limit)
	for rows.Next() {
		var rec service.ScriptRecord
		var generatedAt sql.NullString
		var savedAt string
		if err := rows.Scan(
			&rec.ScriptID, &rec.Topic, &rec.Tone, &rec.DurationMinutes,
			&rec.SceneCount, &rec.AudioCount, &generatedAt, &savedAt,
		); err != nil {
			return nil, err
		}
		if rec.GeneratedAt, err = parseNullableTime(generatedAt); err != nil {
			return nil, err
		}
		if rec.SavedAt, err = parseTime(savedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *scriptHistoryRepository) Close() error {
	return r.sql.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func formatNullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullableTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}
