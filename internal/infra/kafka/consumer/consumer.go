package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/config"
)

// messageHandler processes one submission message.
type messageHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads submissions from Kafka one at a time and hands them to
// the submission handler.
type Consumer struct {
	Client   *wbfkafka.Consumer
	handler  messageHandler
	cfg      *config.Kafka
	strategy retry.Strategy
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy
// - h: handler for submission messages
func New(
	cfg *config.Kafka,
	s retry.Strategy,
	h messageHandler,
) *Consumer {
	consumer := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &Consumer{
		Client:   consumer,
		handler:  h,
		cfg:      cfg,
		strategy: s,
	}
}

// Consume fetches messages until ctx is canceled. A message is committed
// only after the handler returns without error.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Msg("starting consumer")

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)

		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if !c.handle(ctx, msg) {
			continue
		}

		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Msg("message committed")
	}
}

// handle runs the handler, retrying failures with the consumer's strategy.
// It reports whether msg should be committed. A message that still fails after
// the retries is logged and committed so the partition keeps moving. Nothing
// is committed once ctx is canceled, so the message is redelivered on restart.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	err := retry.Do(func() error {
		if ctx.Err() != nil {
			return nil
		}
		return c.handler.Handle(ctx, msg)
	}, c.strategy)

	if ctx.Err() != nil {
		zlog.Logger.Warn().
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Msg("shutdown during processing, message left uncommitted")
		return false
	}

	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Msg("failed to process submission after retries, skipping")
	}

	return true
}
