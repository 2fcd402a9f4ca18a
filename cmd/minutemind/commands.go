package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/WPeytz/MinuteMind/internal/service"
)

type command struct {
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commandOrder = []string{"generate", "render", "videos", "watch", "delete", "history", "archive"}

var commands = map[string]command{
	"generate": {"generate a narrated script for a topic", (*cli).generate},
	"render":   {"submit a generated script for rendering", (*cli).render},
	"videos":   {"list the video catalog", (*cli).videos},
	"watch":    {"poll a video until it finishes rendering", (*cli).watch},
	"delete":   {"delete a video", (*cli).delete},
	"history":  {"list locally saved scripts", (*cli).history},
	"archive":  {"copy script media or a video thumbnail to object storage", (*cli).archive},
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

func usagef(format string, a ...any) error {
	return &usageError{err: fmt.Errorf(format, a...)}
}

type cli struct {
	app    *Application
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{err: err}
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func (c *cli) generate(ctx context.Context, args []string) error {
	fs := c.flagSet("generate")
	topic := fs.String("topic", "", "topic to cover (required)")
	minutes := fs.Float64("minutes", 1, "target duration in minutes")
	tone := fs.String("tone", "", "narration tone (studio default when empty)")
	save := fs.Bool("save", c.app.History.Enabled(), "save the script to local history")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	req := service.ScriptRequest{Topic: strings.TrimSpace(*topic), DurationMinutes: *minutes, Tone: strings.TrimSpace(*tone)}
	resp, err := c.app.Studio.GenerateScript(ctx, req)
	if err != nil {
		return err
	}
	if missing := resp.MissingAudio(); len(missing) > 0 {
		_, _ = fmt.Fprintf(c.stderr, "note: no audio yet for scenes %s\n", strings.Join(missing, ", "))
	}
	if err := writeJSON(c.stdout, resp); err != nil {
		return err
	}
	// 脚本已生成并输出，保存失败只告警。
	if *save {
		if err := c.app.History.Save(ctx, req, resp); err != nil {
			_, _ = fmt.Fprintf(c.stderr, "warning: script not saved to history: %v\n", err)
		}
	}
	return nil
}

// loadScript 从本地历史或 JSON 文件（"-" 为标准输入）读取 ScriptResponse。
func (c *cli) loadScript(ctx context.Context, scriptID, file string) (*service.ScriptResponse, error) {
	switch {
	case scriptID != "" && file != "":
		return nil, usagef("-script-id and -file are mutually exclusive")
	case scriptID != "":
		return c.app.History.Get(ctx, scriptID)
	case file != "":
		var (
			data []byte
			err  error
		)
		if file == "-" {
			in := c.stdin
			if in == nil {
				in = os.Stdin
			}
			data, err = io.ReadAll(in)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		return service.DecodeScriptResponse(data)
	default:
		return nil, usagef("one of -script-id or -file is required")
	}
}

func (c *cli) render(ctx context.Context, args []string) error {
	fs := c.flagSet("render")
	scriptID := fs.String("script-id", "", "render a script from local history")
	file := fs.String("file", "", "render a script response JSON file (- for stdin)")
	watch := fs.Bool("watch", false, "wait until the video reaches a terminal status")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	script, err := c.loadScript(ctx, strings.TrimSpace(*scriptID), strings.TrimSpace(*file))
	if err != nil {
		return err
	}
	video, err := c.app.Studio.RenderVideo(ctx, script)
	if err != nil {
		return err
	}
	if *watch {
		return c.waitFor(ctx, video.VideoID)
	}
	return writeJSON(c.stdout, video)
}

func (c *cli) videos(ctx context.Context, args []string) error {
	if err := parseFlags(c.flagSet("videos"), args); err != nil {
		return err
	}
	videos, err := c.app.Studio.ListVideos(ctx)
	if err != nil {
		return err
	}
	return writeJSON(c.stdout, videos)
}

func (c *cli) watch(ctx context.Context, args []string) error {
	fs := c.flagSet("watch")
	videoID := fs.String("video-id", "", "video to watch (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*videoID) == "" {
		return usagef("-video-id is required")
	}
	return c.waitFor(ctx, strings.TrimSpace(*videoID))
}

func (c *cli) waitFor(ctx context.Context, videoID string) error {
	video, err := c.app.Watcher.Wait(ctx, videoID, func(v service.VideoMetadata) {
		_, _ = fmt.Fprintf(c.stderr, "%s  %s  %s\n", time.Now().Format(time.TimeOnly), v.VideoID, v.Status)
	})
	if err != nil {
		return err
	}
	if err := writeJSON(c.stdout, video); err != nil {
		return err
	}
	if !video.Status.Succeeded() {
		return fmt.Errorf("video %s finished with status %q", video.VideoID, video.Status)
	}
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := c.flagSet("delete")
	videoID := fs.String("video-id", "", "video to delete (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*videoID) == "" {
		return usagef("-video-id is required")
	}
	if err := c.app.Studio.DeleteVideo(ctx, *videoID); err != nil {
		return err
	}
	return writeJSON(c.stdout, map[string]string{"video_id": strings.TrimSpace(*videoID), "status": "deleted"})
}

// historyEntry 是 history 命令的输出行。
type historyEntry struct {
	ScriptID        string     `json:"script_id"`
	Topic           string     `json:"topic"`
	Tone            string     `json:"tone,omitempty"`
	DurationMinutes float64    `json:"duration_minutes"`
	Scenes          int        `json:"scenes"`
	Audio           int        `json:"audio"`
	GeneratedAt     *time.Time `json:"generated_at"`
	SavedAt         time.Time  `json:"saved_at"`
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := c.flagSet("history")
	limit := fs.Int("limit", 20, "maximum number of entries")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	records, err := c.app.History.List(ctx, *limit)
	if err != nil {
		return err
	}
	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entry := historyEntry{
			ScriptID:        rec.ScriptID,
			Topic:           rec.Topic,
			Tone:            rec.Tone,
			DurationMinutes: rec.DurationMinutes,
			Scenes:          rec.SceneCount,
			Audio:           rec.AudioCount,
			SavedAt:         rec.SavedAt,
		}
		if !rec.GeneratedAt.IsZero() {
			generated := rec.GeneratedAt
			entry.GeneratedAt = &generated
		}
		out = append(out, entry)
	}
	return writeJSON(c.stdout, out)
}

func (c *cli) archive(ctx context.Context, args []string) error {
	fs := c.flagSet("archive")
	scriptID := fs.String("script-id", "", "archive media of a script from local history")
	file := fs.String("file", "", "archive media of a script response JSON file (- for stdin)")
	videoID := fs.String("video-id", "", "archive the thumbnail of a catalog video")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !c.app.Archive.Enabled() {
		return service.ErrArchiveDisabled
	}

	if id := strings.TrimSpace(*videoID); id != "" {
		if *scriptID != "" || *file != "" {
			return usagef("-video-id cannot be combined with -script-id or -file")
		}
		video, err := c.app.Studio.GetVideo(ctx, id)
		if err != nil {
			return err
		}
		report, err := c.app.Archive.ArchiveVideo(ctx, *video)
		if err != nil {
			return err
		}
		return writeJSON(c.stdout, report)
	}

	script, err := c.loadScript(ctx, strings.TrimSpace(*scriptID), strings.TrimSpace(*file))
	if err != nil {
		return err
	}
	report, err := c.app.Archive.ArchiveScript(ctx, script)
	if err != nil {
		return err
	}
	return writeJSON(c.stdout, report)
}
