package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/api/respond"
	"github.com/aliskhannn/birthday-stream/internal/model"
	submissionsvc "github.com/aliskhannn/birthday-stream/internal/service/submission"
)

// service defines the submission operations exposed over HTTP.
type service interface {
	Submit(ctx context.Context, req model.SubmissionRequest) (uuid.UUID, error)
	Progress(ctx context.Context, id uuid.UUID) (model.Progress, error)
}

// Handler provides HTTP handlers for submissions.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Create accepts a submission and queues it for video generation.
func (h *Handler) Create(c *ginext.Context) {
	var req model.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to decode submission")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	id, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, submissionsvc.ErrInvalidRequest) {
			zlog.Logger.Warn().Err(err).Msg("invalid submission")
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Err(err).Msg("failed to submit")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to submit"))
		return
	}

	respond.Accepted(c, map[string]interface{}{"id": id})
}

// Get returns the progress of a submission.
func (h *Handler) Get(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return
	}

	p, err := h.service.Progress(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, submissionsvc.ErrNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("submission not found"))
			return
		}

		zlog.Logger.Err(err).Str("id", id.String()).Msg("failed to get progress")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get progress"))
		return
	}

	respond.OK(c, p)
}
