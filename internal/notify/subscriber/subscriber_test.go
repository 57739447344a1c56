package subscriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/mock"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Subject() string {
	return "notifications.order.received"
}

func (m *mockAckableMsg) Headers() nats.Header {
	return nil
}

func (m *mockAckableMsg) Metadata() (*jetstream.MsgMetadata, error) {
	args := m.Called()
	meta, _ := args.Get(0).(*jetstream.MsgMetadata)
	return meta, args.Error(1)
}

func (m *mockAckableMsg) Ack() error {
	return m.Called().Error(0)
}

func (m *mockAckableMsg) NakWithDelay(delay time.Duration) error {
	return m.Called(delay).Error(0)
}

func (m *mockAckableMsg) Term() error {
	return m.Called().Error(0)
}

func Test_handleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.SubscriberConfig{
		MaxDeliver: 3,
		Backoff:    []time.Duration{time.Second, 5 * time.Second},
	}
	errSMTP := errors.New("smtp: 421 service not available")

	testCases := []struct {
		name       string
		delivered  uint64
		handlerErr error
		expect     func(m *mockAckableMsg)
	}{
		{
			name:      "handled message is acked",
			delivered: 1,
			expect: func(m *mockAckableMsg) {
				m.On("Ack").Return(nil).Once()
			},
		},
		{
			name:       "transient failure on first delivery waits first backoff",
			delivered:  1,
			handlerErr: errSMTP,
			expect: func(m *mockAckableMsg) {
				m.On("NakWithDelay", time.Second).Return(nil).Once()
			},
		},
		{
			name:       "transient failure on second delivery waits second backoff",
			delivered:  2,
			handlerErr: errSMTP,
			expect: func(m *mockAckableMsg) {
				m.On("NakWithDelay", 5*time.Second).Return(nil).Once()
			},
		},
		{
			name:       "last delivery attempt is terminated",
			delivered:  3,
			handlerErr: errSMTP,
			expect: func(m *mockAckableMsg) {
				m.On("Term").Return(nil).Once()
			},
		},
		{
			name:       "unprocessable message is terminated at once",
			delivered:  1,
			handlerErr: fmt.Errorf("%w: bad json", ErrUnprocessable),
			expect: func(m *mockAckableMsg) {
				m.On("Term").Return(nil).Once()
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			msg := new(mockAckableMsg)
			msg.On("Data").Return([]byte(`{}`)).Once()
			msg.On("Metadata").Return(&jetstream.MsgMetadata{NumDelivered: tc.delivered}, nil).Once()
			tc.expect(msg)
			handler := HandlerFunc(func(context.Context, string, []byte) error { return tc.handlerErr })

			// when
			handleMessage(context.Background(), msg, cfg, handler, logger)

			// then
			msg.AssertExpectations(t)
		})
	}
}
