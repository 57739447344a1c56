// Package messaging defines the events exchanged between the API and the notification worker.
package messaging

import (
	"context"
)

// NotificationsStream is the JetStream stream carrying every notification subject.
const NotificationsStream = "NOTIFICATIONS"

const (
	NotificationsSubjects   = "notifications.>"
	OrderReceivedSubject    = "notifications.order.received"
	PaymentConfirmedSubject = "notifications.payment.confirmed"
	OTPRequestedSubject     = "notifications.otp.requested"
)

type Event interface {
	Subject() string
	// MessageID identifies the logical event, so redundant publishes are deduplicated by the broker.
	MessageID() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
