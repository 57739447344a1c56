// Package subscriber consumes notification events from JetStream and hands them to a Handler.
package subscriber

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

// ErrUnprocessable marks a message that will never succeed; it is terminated instead of redelivered.
var ErrUnprocessable = errors.New("unprocessable message")

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, subject string, data []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, subject string, data []byte) error

func (f HandlerFunc) Handle(ctx context.Context, subject string, data []byte) error {
	return f(ctx, subject, data)
}

// ackableMsg is the part of jetstream.Msg the subscriber relies on.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Headers() nats.Header
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// Start creates the durable consumer and runs cfg.Workers fetch loops until ctx is done.
func Start(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig, handler Handler, logger *slog.Logger) error {
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
	})
	if err != nil {
		return err
	}
	logger = logger.With("component", "subscriber", "stream", cfg.Stream, "consumer", cfg.Consumer)

	g, gCtx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, handler, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, handler Handler, logger *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			logger.ErrorContext(ctx, "Failed to fetch messages", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, cfg, handler, logger)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && ctx.Err() == nil {
			logger.WarnContext(ctx, "Fetch ended with error", "error", err)
		}
	}
}

// handleMessage acks on success, terminates unprocessable or exhausted messages and
// schedules a delayed redelivery otherwise.
func handleMessage(ctx context.Context, msg ackableMsg, cfg config.SubscriberConfig, handler Handler, logger *slog.Logger) {
	if msg == nil {
		logger.Error("Received nil message")
		return
	}
	delivered := uint64(1)
	if meta, err := msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}
	log := logger.With("subject", msg.Subject(), "delivery", delivered)
	if h := msg.Headers(); h != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
	}

	err := handler.Handle(ctx, msg.Subject(), msg.Data())
	switch {
	case err == nil:
		if err := msg.Ack(); err != nil {
			log.Error("Failed to ack message", "error", err)
		}
	case errors.Is(err, ErrUnprocessable):
		log.Error("Dropping unprocessable message", "error", err)
		if err := msg.Term(); err != nil {
			log.Error("Failed to terminate message", "error", err)
		}
	case delivered >= uint64(cfg.MaxDeliver):
		log.Error("Dropping message after exhausting delivery attempts", "max_deliver", cfg.MaxDeliver, "error", err)
		if err := msg.Term(); err != nil {
			log.Error("Failed to terminate message", "error", err)
		}
	default:
		delay := cfg.RedeliveryDelay(delivered)
		log.Warn("Message handling failed, scheduling redelivery", "delay", delay, "error", err)
		if err := msg.NakWithDelay(delay); err != nil {
			log.Error("Failed to nak message", "error", err)
		}
	}
}
