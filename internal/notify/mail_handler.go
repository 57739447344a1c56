package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar/internal/mail"
	"github.com/bazaarhq/bazaar/internal/notify/subscriber"
	"github.com/bazaarhq/bazaar/pkg/messaging"
	"github.com/bazaarhq/bazaar/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ subscriber.Handler = (*MailHandler)(nil)

// MailHandler turns notification events into emails.
type MailHandler struct {
	sender mail.Sender
	tracer trace.Tracer
}

func NewMailHandler(sender mail.Sender) *MailHandler {
	return &MailHandler{sender: sender, tracer: otel.Tracer("bazaar/notifier")}
}

func (h *MailHandler) Handle(ctx context.Context, subject string, data []byte) error {
	var (
		msg     mail.Message
		carrier propagation.MapCarrier
		err     error
	)
	switch subject {
	case messaging.OrderReceivedSubject:
		var e events.OrderReceivedEvent
		if err = json.Unmarshal(data, &e); err == nil {
			carrier = e.Carrier
			msg = mail.Message{
				To:       e.Email,
				Subject:  "We received your order",
				Template: mail.TemplateOrderReceived,
				Data:     e,
			}
		}
	case messaging.PaymentConfirmedSubject:
		var e events.PaymentConfirmedEvent
		if err = json.Unmarshal(data, &e); err == nil {
			carrier = e.Carrier
			msg = mail.Message{
				To:       e.Email,
				Subject:  "Payment confirmed",
				Template: mail.TemplatePaymentConfirmed,
				Data:     e,
			}
		}
	case messaging.OTPRequestedSubject:
		var e events.OTPRequestedEvent
		if err = json.Unmarshal(data, &e); err == nil {
			carrier = e.Carrier
			msg = mail.Message{
				To:       e.Email,
				Subject:  "Your verification code",
				Template: mail.TemplateOTP,
				Data: map[string]string{
					"Username":  e.Username,
					"Code":      e.Code,
					"ExpiresAt": e.ExpiresAt.Format(time.RFC1123),
				},
			}
		}
	default:
		return fmt.Errorf("%w: unknown subject %q", subscriber.ErrUnprocessable, subject)
	}
	if err != nil {
		return fmt.Errorf("%w: decode %s: %w", subscriber.ErrUnprocessable, subject, err)
	}
	if msg.To == "" {
		return fmt.Errorf("%w: %s has no recipient", subscriber.ErrUnprocessable, subject)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := h.tracer.Start(ctx, "send "+msg.Template)
	defer span.End()

	if err := h.sender.Send(ctx, msg); err != nil {
		span.RecordError(err)
		if errors.Is(err, mail.ErrTemplate) {
			return fmt.Errorf("%w: %w", subscriber.ErrUnprocessable, err)
		}
		return err
	}
	return nil
}
