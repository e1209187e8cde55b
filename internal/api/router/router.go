package router

import (
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/api/handlers/pixverse"
	"github.com/aliskhannn/birthday-stream/internal/api/handlers/stream"
	"github.com/aliskhannn/birthday-stream/internal/api/handlers/submission"
	"github.com/aliskhannn/birthday-stream/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	PixVerse   *pixverse.Handler
	Submission *submission.Handler
	Stream     *stream.Handler
}

// Setup builds the engine. X-Forwarded-For is honoured only from
// trustedProxies (none when empty). apiMiddleware runs on every /api route,
// typically the rate limiter.
func Setup(h Handlers, trustedProxies []string, apiMiddleware ...gin.HandlerFunc) *ginext.Engine {
	r := ginext.New()

	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/health", pixverse.Health)

	api := r.Group("/api", apiMiddleware...)

	px := api.Group("/pixverse")
	px.POST("/upload-image", h.PixVerse.UploadImage)     // upload image to provider
	px.POST("/generate-video", h.PixVerse.GenerateVideo) // start image-to-video job
	px.GET("/status/:videoId", h.PixVerse.Status)        // poll job status

	api.POST("/submissions", h.Submission.Create) // submit a birthday
	api.GET("/submissions/:id", h.Submission.Get) // submission progress

	api.GET("/stream", h.Stream.List)          // entries for ?date=MM-DD
	api.GET("/stream/counts", h.Stream.Counts) // entries per day

	return r
}
