package pixverse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/api/respond"
	"github.com/aliskhannn/birthday-stream/internal/gateway"
	"github.com/aliskhannn/birthday-stream/internal/model"
	provider "github.com/aliskhannn/birthday-stream/internal/pixverse"
)

// service defines the gateway operations exposed over HTTP.
type service interface {
	UploadImage(ctx context.Context, imageBase64 string) (int64, error)
	GenerateVideo(ctx context.Context, imgID int64, prompt string, duration int) (string, error)
	GetStatus(ctx context.Context, videoID string) (model.ProviderStatus, error)
}

// Handler is the proxy surface in front of the video provider. Responses
// keep the provider's {ErrCode, ErrMsg, Resp} envelope; errors are {error}.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// UploadImage handles POST /api/pixverse/upload-image.
func (h *Handler) UploadImage(c *ginext.Context) {
	var req gateway.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("image data is required"))
		return
	}

	id, err := h.service.UploadImage(c.Request.Context(), req.Image)
	if err != nil {
		h.fail(c, "upload", err)
		return
	}

	zlog.Logger.Info().Int64("img_id", id).Msg("image uploaded")

	respond.JSON(c, http.StatusOK, success(gateway.UploadResult{ImgID: id}))
}

// GenerateVideo handles POST /api/pixverse/generate-video.
func (h *Handler) GenerateVideo(c *ginext.Context) {
	var req gateway.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	id, err := h.service.GenerateVideo(c.Request.Context(), req.ImgID, req.Prompt, req.Duration)
	if err != nil {
		h.fail(c, "generate", err)
		return
	}

	zlog.Logger.Info().Int64("img_id", req.ImgID).Str("video_id", id).Msg("video generation requested")

	respond.JSON(c, http.StatusOK, success(gateway.GenerateResult{VideoID: provider.FlexibleID(id)}))
}

// Status handles GET /api/pixverse/status/:videoId.
func (h *Handler) Status(c *ginext.Context) {
	st, err := h.service.GetStatus(c.Request.Context(), c.Param("videoId"))
	if err != nil {
		h.fail(c, "status", err)
		return
	}

	respond.JSON(c, http.StatusOK, success(gateway.StatusResult{Status: st.Code, URL: st.URL}))
}

// fail maps gateway errors to status codes: bad input and provider
// rejections are 400, everything else is 500.
func (h *Handler) fail(c *ginext.Context, op string, err error) {
	switch {
	case errors.Is(err, gateway.ErrInvalidImage),
		errors.Is(err, gateway.ErrInvalidImageID),
		errors.Is(err, gateway.ErrInvalidDuration),
		errors.Is(err, gateway.ErrInvalidVideoID):
		zlog.Logger.Warn().Err(err).Str("op", op).Msg("invalid gateway request")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if pe, ok := provider.AsProviderError(err); ok && pe.Rejected() {
		zlog.Logger.Warn().Err(err).Str("op", op).Msg("provider rejected request")
		msg := pe.Message
		if msg == "" {
			msg = op + " failed"
		}
		respond.Fail(c, http.StatusBadRequest, errors.New(msg))
		return
	}

	zlog.Logger.Error().Err(err).Str("op", op).Msg("gateway request failed")
	respond.Fail(c, http.StatusInternalServerError, err)
}

func success(resp any) gateway.Envelope {
	return gateway.Envelope{ErrCode: 0, ErrMsg: "success", Resp: resp}
}

// Health handles GET /health.
func Health(c *ginext.Context) {
	respond.JSON(c, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "birthday stream is running",
	})
}
