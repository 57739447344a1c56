package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/internal/mail"
	"github.com/bazaarhq/bazaar/internal/notify/subscriber"
	"github.com/bazaarhq/bazaar/pkg/messaging"
	"github.com/bazaarhq/bazaar/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMailHandler_Handle(t *testing.T) {
	orderID := uuid.New()

	testCases := []struct {
		name         string
		subject      string
		data         func(t *testing.T) []byte
		senderErr    error
		wantTemplate string
		wantTo       string
		wantErr      error
	}{
		{
			name:    "order received",
			subject: messaging.OrderReceivedSubject,
			data: func(t *testing.T) []byte {
				return mustJSON(t, events.OrderReceivedEvent{Email: "buyer@example.com", OrderID: orderID, TotalPrice: 300})
			},
			wantTemplate: mail.TemplateOrderReceived,
			wantTo:       "buyer@example.com",
		},
		{
			name:    "payment confirmed",
			subject: messaging.PaymentConfirmedSubject,
			data: func(t *testing.T) []byte {
				return mustJSON(t, events.PaymentConfirmedEvent{Email: "buyer@example.com", OrderID: orderID, Amount: 300, ReferenceID: 201})
			},
			wantTemplate: mail.TemplatePaymentConfirmed,
			wantTo:       "buyer@example.com",
		},
		{
			name:    "otp",
			subject: messaging.OTPRequestedSubject,
			data: func(t *testing.T) []byte {
				return mustJSON(t, events.OTPRequestedEvent{Username: "alice", Email: "alice@example.com", Code: "123456", ExpiresAt: time.Now()})
			},
			wantTemplate: mail.TemplateOTP,
			wantTo:       "alice@example.com",
		},
		{
			name:    "malformed payload",
			subject: messaging.OrderReceivedSubject,
			data:    func(*testing.T) []byte { return []byte("invalid data") },
			wantErr: subscriber.ErrUnprocessable,
		},
		{
			name:    "unknown subject",
			subject: "notifications.unknown",
			data:    func(*testing.T) []byte { return []byte(`{}`) },
			wantErr: subscriber.ErrUnprocessable,
		},
		{
			name:    "missing recipient",
			subject: messaging.OrderReceivedSubject,
			data: func(t *testing.T) []byte {
				return mustJSON(t, events.OrderReceivedEvent{OrderID: orderID})
			},
			wantErr: subscriber.ErrUnprocessable,
		},
		{
			name:    "smtp failure is retryable",
			subject: messaging.OrderReceivedSubject,
			data: func(t *testing.T) []byte {
				return mustJSON(t, events.OrderReceivedEvent{Email: "buyer@example.com", OrderID: orderID})
			},
			senderErr: errors.New("dial tcp: connection refused"),
			wantErr:   errors.New("dial tcp: connection refused"),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			sender := &fakeSender{err: tc.senderErr}
			h := NewMailHandler(sender)

			// when
			err := h.Handle(context.Background(), tc.subject, tc.data(t))

			// then
			if tc.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tc.wantErr, subscriber.ErrUnprocessable) {
					assert.ErrorIs(t, err, subscriber.ErrUnprocessable)
				} else {
					assert.NotErrorIs(t, err, subscriber.ErrUnprocessable)
					assert.EqualError(t, err, tc.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tc.wantTemplate, sender.sent[0].Template)
			assert.Equal(t, tc.wantTo, sender.sent[0].To)
		})
	}
}
