package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPSender_Send(t *testing.T) {
	// given
	dialer := &recordingDialer{}
	sender, err := newSender("shop@example.com", dialer)
	require.NoError(t, err)

	// when
	err = sender.Send(context.Background(), Message{
		To:       "buyer@example.com",
		Subject:  "Your code",
		Template: TemplateOTP,
		Data:     map[string]any{"Username": "alice", "Code": "482913", "ExpiresAt": "12:05"},
	})

	// then
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)
	m := dialer.sent[0]
	assert.Equal(t, []string{"buyer@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"shop@example.com"}, m.GetHeader("From"))
	assert.Contains(t, render(t, m), "482913")
}

func TestSMTPSender_UnknownTemplate(t *testing.T) {
	sender, err := newSender("shop@example.com", &recordingDialer{})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "a@example.com", Template: "missing"})

	assert.ErrorIs(t, err, ErrTemplate)
}

func TestSMTPSender_DialFailure(t *testing.T) {
	errDial := errors.New("connection refused")
	sender, err := newSender("shop@example.com", &recordingDialer{err: errDial})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "a@example.com", Template: TemplateOrderReceived, Data: map[string]any{"OrderID": "o-1", "TotalPrice": 300}})

	assert.ErrorIs(t, err, errDial)
	assert.NotErrorIs(t, err, ErrTemplate)
}
