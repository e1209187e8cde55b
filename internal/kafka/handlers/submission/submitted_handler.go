package submission

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/model"
)

// service defines the interface for processing queued submissions.
type service interface {
	Process(ctx context.Context, sub model.Submission) error
}

// SubmittedHandler handles Kafka messages for newly accepted submissions.
type SubmittedHandler struct {
	service service
}

// NewSubmittedHandler creates a new handler with the given service.
func NewSubmittedHandler(s service) *SubmittedHandler {
	return &SubmittedHandler{service: s}
}

// Handle unmarshals the submission and runs the generation pipeline for it.
func (h *SubmittedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var sub model.Submission
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		return fmt.Errorf("unmarshal submission: %w", err)
	}

	if err := h.service.Process(ctx, sub); err != nil {
		return fmt.Errorf("process submission %s: %w", sub.ID, err)
	}

	zlog.Logger.Printf("submission processed: %s", sub.ID)

	return nil
}
