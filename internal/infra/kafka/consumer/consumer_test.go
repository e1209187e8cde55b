package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/birthday-stream/internal/config"
)

type flakyHandler struct {
	failures int
	calls    int
}

func (h *flakyHandler) Handle(_ context.Context, _ kafka.Message) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("database unavailable")
	}
	return nil
}

func newTestConsumer(h messageHandler) *Consumer {
	return &Consumer{
		handler:  h,
		cfg:      &config.Kafka{Topic: "birthday-submissions"},
		strategy: retry.Strategy{Attempts: 3, Delay: time.Millisecond, Backoff: 1},
	}
}

func TestHandleRetriesFailedMessage(t *testing.T) {
	h := &flakyHandler{failures: 1}
	c := newTestConsumer(h)

	commit := c.handle(context.Background(), kafka.Message{Key: []byte("id")})

	assert.True(t, commit)
	assert.Equal(t, 2, h.calls)
}

func TestHandleSkipsMessageThatKeepsFailing(t *testing.T) {
	h := &flakyHandler{failures: 100}
	c := newTestConsumer(h)

	commit := c.handle(context.Background(), kafka.Message{Key: []byte("id")})

	assert.True(t, commit)
	assert.GreaterOrEqual(t, h.calls, 2)
}

func TestHandleLeavesMessageUncommittedOnShutdown(t *testing.T) {
	h := &flakyHandler{}
	c := newTestConsumer(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	commit := c.handle(ctx, kafka.Message{Key: []byte("id")})

	assert.False(t, commit)
	assert.Zero(t, h.calls)
}
