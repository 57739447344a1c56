package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

var (
	_ messaging.Event = OrderReceivedEvent{}
	_ messaging.Event = PaymentConfirmedEvent{}
	_ messaging.Event = OTPRequestedEvent{}
)

// OrderReceivedEvent is published after an order has been committed.
type OrderReceivedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Email      string                 `json:"email"`
	OrderID    uuid.UUID              `json:"order_id"`
	TotalPrice int64                  `json:"total_price"`
	PlacedAt   time.Time              `json:"placed_at"`
}

func (e OrderReceivedEvent) Subject() string { return messaging.OrderReceivedSubject }

func (e OrderReceivedEvent) MessageID() string { return "order-received:" + e.OrderID.String() }

func (e OrderReceivedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

// PaymentConfirmedEvent is published once per order, when its payment is verified.
type PaymentConfirmedEvent struct {
	Carrier     propagation.MapCarrier `json:"carrier,omitempty"`
	Email       string                 `json:"email"`
	OrderID     uuid.UUID              `json:"order_id"`
	Amount      int64                  `json:"amount"`
	ReferenceID int64                  `json:"reference_id"`
}

func (e PaymentConfirmedEvent) Subject() string { return messaging.PaymentConfirmedSubject }

func (e PaymentConfirmedEvent) MessageID() string { return "payment-confirmed:" + e.OrderID.String() }

func (e PaymentConfirmedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

// OTPRequestedEvent carries a freshly issued one-time code to the user.
type OTPRequestedEvent struct {
	Carrier   propagation.MapCarrier `json:"carrier,omitempty"`
	Username  string                 `json:"username"`
	Email     string                 `json:"email"`
	Code      string                 `json:"code"`
	ExpiresAt time.Time              `json:"expires_at"`
}

func (e OTPRequestedEvent) Subject() string { return messaging.OTPRequestedSubject }

func (e OTPRequestedEvent) MessageID() string {
	return fmt.Sprintf("otp:%s:%d", e.Username, e.ExpiresAt.Unix())
}

func (e OTPRequestedEvent) Payload() ([]byte, error) { return json.Marshal(e) }
