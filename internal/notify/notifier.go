// Package notify publishes user notifications without blocking the request that triggered them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/bazaarhq/bazaar/pkg/messaging"
	"github.com/bazaarhq/bazaar/pkg/messaging/events"
	"github.com/bazaarhq/bazaar/pkg/resilience"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// Notifier sends notifications asynchronously. Calls return immediately and never fail;
// delivery problems are retried in the background and logged when they persist.
type Notifier interface {
	NotifyOrderReceived(ctx context.Context, email string, orderID uuid.UUID, totalPrice int64)
	NotifyPaymentConfirmed(ctx context.Context, email string, orderID uuid.UUID, amount, referenceID int64)
	NotifyOTP(ctx context.Context, username, email, code string, expiresAt time.Time)
}

var _ Notifier = (*EventNotifier)(nil)

// EventNotifier publishes notification events to the message broker.
type EventNotifier struct {
	publisher messaging.Publisher
	retry     config.RetryConfig
	logger    *slog.Logger
	failures  metric.Int64Counter

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewEventNotifier(publisher messaging.Publisher, retry config.RetryConfig, logger *slog.Logger) *EventNotifier {
	failures, err := otel.Meter("bazaar/notify").Int64Counter("notifications_failed",
		metric.WithDescription("Notifications dropped after exhausting publish retries"))
	if err != nil {
		logger.Warn("Failed to create notifications_failed counter", "error", err)
	}
	return &EventNotifier{
		publisher: publisher,
		retry:     retry,
		logger:    logger.With("component", "notifier"),
		failures:  failures,
	}
}

func (n *EventNotifier) NotifyOrderReceived(ctx context.Context, email string, orderID uuid.UUID, totalPrice int64) {
	n.publish(ctx, events.OrderReceivedEvent{
		Carrier:    carrierFrom(ctx),
		Email:      email,
		OrderID:    orderID,
		TotalPrice: totalPrice,
		PlacedAt:   time.Now().UTC(),
	})
}

func (n *EventNotifier) NotifyPaymentConfirmed(ctx context.Context, email string, orderID uuid.UUID, amount, referenceID int64) {
	n.publish(ctx, events.PaymentConfirmedEvent{
		Carrier:     carrierFrom(ctx),
		Email:       email,
		OrderID:     orderID,
		Amount:      amount,
		ReferenceID: referenceID,
	})
}

func (n *EventNotifier) NotifyOTP(ctx context.Context, username, email, code string, expiresAt time.Time) {
	n.publish(ctx, events.OTPRequestedEvent{
		Carrier:   carrierFrom(ctx),
		Username:  username,
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
	})
}

// Close stops accepting notifications and blocks until in-flight ones finish or ctx is done.
// Notifications sent after Close are dropped.
func (n *EventNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EventNotifier) publish(ctx context.Context, event messaging.Event) {
	// the request context is cancelled as soon as the response is written
	bg := context.WithoutCancel(ctx)
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.WarnContext(bg, "Notification dropped, notifier is closed",
			"subject", event.Subject(), "message_id", event.MessageID())
		n.countFailure(bg)
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()
	go func() {
		defer n.wg.Done()
		err := resilience.Retry(bg, n.retry, func(ctx context.Context) error {
			return n.publisher.Publish(ctx, event)
		})
		if err != nil {
			n.logger.ErrorContext(bg, "Notification dropped after retries",
				"subject", event.Subject(), "message_id", event.MessageID(), "error", err)
			n.countFailure(bg)
			return
		}
		n.logger.DebugContext(bg, "Notification published", "subject", event.Subject(), "message_id", event.MessageID())
	}()
}

func (n *EventNotifier) countFailure(ctx context.Context) {
	if n.failures != nil {
		n.failures.Add(ctx, 1)
	}
}

func carrierFrom(ctx context.Context) propagation.MapCarrier {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}
