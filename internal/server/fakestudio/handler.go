package fakestudio

import (
	"net/http"
	"path"
	"strings"
	"time"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
	"github.com/WPeytz/MinuteMind/internal/pkg/httputil"
	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const maxRequestBodyBytes = 4 << 20

// 路由（相对 base path）
const (
	routeGenerate = "/scripts/generate"
	routeRender   = "/videos/render"
	routeList     = "/videos/"
	routeItem     = "/videos/:video_id"
)

// Handler 返回挂载在 basePath 下的 gin 引擎；/media 与 /health 始终挂在根路径。
func (s *Studio) Handler(basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/media/*file", s.serveMedia)

	api := r.Group(strings.TrimSuffix(basePath, "/"))
	{
		api.POST(routeGenerate, s.handleGenerate)
		api.POST(routeRender, s.handleRender)
		api.GET(routeList, s.handleList)
		api.DELETE(routeItem, s.handleDelete)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.With("fakestudio").Info("fakestudio.request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

// failInjected 检查是否有排队的故障；有则写出响应并返回 true。
func (s *Studio) failInjected(c *gin.Context, route string) bool {
	f, ok := s.takeFailure(c.Request.Method, route)
	if !ok {
		return false
	}
	c.JSON(f.status, gin.H{"detail": f.detail})
	return true
}

// writeError 以 FastAPI 的 {"detail": message} 形式返回错误。
func writeError(c *gin.Context, err error) {
	status, body := infraerrors.ToHTTP(err)
	c.JSON(status, gin.H{"detail": body.Message})
}

// validationError 仿照 FastAPI 的 422 响应体。
func validationError(c *gin.Context, loc []string, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"loc": loc, "msg": msg, "type": "value_error"}},
	})
}

func (s *Studio) handleGenerate(c *gin.Context) {
	if s.failInjected(c, routeGenerate) {
		return
	}
	body, err := httputil.ReadRequestBody(c.Request, maxRequestBodyBytes)
	if err != nil {
		writeError(c, infraerrors.New(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error()))
		return
	}
	if !gjson.ValidBytes(body) {
		validationError(c, []string{"body"}, "JSON decode error")
		return
	}
	topic := gjson.GetBytes(body, "topic")
	if topic.Type != gjson.String || strings.TrimSpace(topic.String()) == "" {
		validationError(c, []string{"body", "topic"}, "field required")
		return
	}
	minutes := 1.0
	if d := gjson.GetBytes(body, "duration_minutes"); d.Exists() {
		if d.Type != gjson.Number {
			validationError(c, []string{"body", "duration_minutes"}, "value is not a valid number")
			return
		}
		minutes = d.Float()
	}
	if minutes < 1 || minutes > 30 {
		validationError(c, []string{"body", "duration_minutes"}, "ensure this value is between 1 and 30")
		return
	}
	tone := gjson.GetBytes(body, "tone").String()

	c.JSON(http.StatusOK, s.generate(topic.String(), minutes, tone, mediaBase(c)))
}

func (s *Studio) handleRender(c *gin.Context) {
	if s.failInjected(c, routeRender) {
		return
	}
	body, err := httputil.ReadRequestBody(c.Request, maxRequestBodyBytes)
	if err != nil {
		writeError(c, infraerrors.New(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error()))
		return
	}
	if !gjson.ValidBytes(body) {
		validationError(c, []string{"body"}, "JSON decode error")
		return
	}
	scriptID := gjson.GetBytes(body, "script.script_id")
	if scriptID.Type != gjson.String || scriptID.String() == "" {
		validationError(c, []string{"body", "script", "script_id"}, "field required")
		return
	}
	if !gjson.GetBytes(body, "audio").IsArray() {
		validationError(c, []string{"body", "audio"}, "field required")
		return
	}
	video := s.render(body, gjson.GetBytes(body, "script.topic").String(), scriptID.String())
	c.JSON(http.StatusOK, video)
}

func (s *Studio) handleList(c *gin.Context) {
	if s.failInjected(c, routeList) {
		return
	}
	c.JSON(http.StatusOK, s.Videos())
}

func (s *Studio) handleDelete(c *gin.Context) {
	if s.failInjected(c, routeItem) {
		return
	}
	videoID := c.Param("video_id")
	if !s.delete(videoID) {
		writeError(c, infraerrors.Newf(http.StatusNotFound, "VIDEO_NOT_FOUND", "Video %s not found", videoID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

// serveMedia 返回占位内容，类型按扩展名决定。
func (s *Studio) serveMedia(c *gin.Context) {
	name := path.Base(c.Param("file"))
	contentType := "application/octet-stream"
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		contentType = "audio/mpeg"
	case ".png":
		contentType = "image/png"
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".mp4":
		contentType = "video/mp4"
	}
	c.Data(http.StatusOK, contentType, []byte("fakestudio:"+name))
}

func mediaBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
