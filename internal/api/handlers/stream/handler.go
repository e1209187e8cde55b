package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/api/respond"
	"github.com/aliskhannn/birthday-stream/internal/model"
	streamsvc "github.com/aliskhannn/birthday-stream/internal/service/stream"
)

type service interface {
	ByDay(ctx context.Context, month, day int) ([]model.ApprovedEntry, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// Handler serves the public birthday stream.
type Handler struct {
	service service
	now     func() time.Time
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s, now: time.Now}
}

// List returns the entries for ?date=MM-DD, or for today when date is absent.
func (h *Handler) List(c *ginext.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.now().Format("01-02")
	}

	month, day, err := streamsvc.ParseDay(date)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	entries, err := h.service.ByDay(c.Request.Context(), month, day)
	if err != nil {
		if errors.Is(err, streamsvc.ErrInvalidDay) {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Err(err).Str("date", date).Msg("failed to list stream")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to list stream"))
		return
	}

	respond.OK(c, entries)
}

// Counts returns the number of playable entries per day.
func (h *Handler) Counts(c *ginext.Context) {
	counts, err := h.service.Counts(c.Request.Context())
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to count stream entries")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to count entries"))
		return
	}

	respond.OK(c, counts)
}
