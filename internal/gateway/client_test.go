package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	pkgconfig "github.com/bazaarhq/bazaar/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.GatewayConfig{
		BaseURL:     srv.URL,
		StartPayURL: "https://pay.example.com",
		MerchantID:  "merchant-1",
		CallbackURL: "https://bazaar.example.com/api/v1/payments/verify",
		MinAmount:   1000,
		Timeout:     200 * time.Millisecond,
		CircuitBreaker: pkgconfig.CircuitBreakerConfig{
			ConsecutiveFailures: 2,
			OpenTimeout:         time.Minute,
		},
	}
	return NewClient(cfg, &http.Client{Timeout: cfg.Timeout}), srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_Request(t *testing.T) {
	orderID := uuid.MustParse("5f1d7a8e-3c1b-4e54-9a0d-2b8f6c4d1e90")

	testCases := []struct {
		name         string
		status       int
		reply        string
		wantSession  *Session
		wantUpstream *apperrors.UpstreamError
		wantUnavail  bool
	}{
		{
			name:   "accepted",
			status: http.StatusOK,
			reply:  `{"data":{"code":100,"message":"Success","authority":"A00000000000000000000000000217885159","fee":100},"errors":[]}`,
			wantSession: &Session{
				Authority:   "A00000000000000000000000000217885159",
				RedirectURL: "https://pay.example.com/pg/StartPay/A00000000000000000000000000217885159",
			},
		},
		{
			name:         "rejected with errors object",
			status:       http.StatusUnprocessableEntity,
			reply:        `{"data":[],"errors":{"code":-9,"message":"The input params invalid, validation error.","validations":[]}}`,
			wantUpstream: &apperrors.UpstreamError{Code: -9, Message: "The input params invalid, validation error."},
		},
		{
			name:         "unexpected data code",
			status:       http.StatusOK,
			reply:        `{"data":{"code":-12,"message":"Too many attempts"},"errors":[]}`,
			wantUpstream: &apperrors.UpstreamError{Code: -12, Message: "Too many attempts"},
		},
		{
			name:        "server error",
			status:      http.StatusBadGateway,
			reply:       `<html>bad gateway</html>`,
			wantUnavail: true,
		},
		{
			name:        "garbage reply",
			status:      http.StatusOK,
			reply:       `not json`,
			wantUnavail: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var got requestBody
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, requestPath, r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				writeJSON(w, tc.status, tc.reply)
			})

			// when
			session, err := client.Request(context.Background(), PaymentRequest{
				OrderID:     orderID,
				Amount:      25000,
				Description: "Order " + orderID.String(),
				Email:       "buyer@example.com",
			})

			// then
			assert.Equal(t, "merchant-1", got.MerchantID)
			assert.Equal(t, int64(25000), got.Amount)
			assert.Equal(t, orderID.String(), got.Metadata.OrderID)
			assert.Equal(t, "buyer@example.com", got.Metadata.Email)
			switch {
			case tc.wantSession != nil:
				require.NoError(t, err)
				assert.Equal(t, tc.wantSession, session)
			case tc.wantUpstream != nil:
				var upstream *apperrors.UpstreamError
				require.ErrorAs(t, err, &upstream)
				assert.Equal(t, tc.wantUpstream, upstream)
				assert.ErrorIs(t, err, apperrors.ErrUpstream)
			case tc.wantUnavail:
				assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
				assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
			}
		})
	}
}

func TestClient_Request_Timeout(t *testing.T) {
	// given
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	// when
	_, err := client.Request(context.Background(), PaymentRequest{OrderID: uuid.New(), Amount: 5000})

	// then
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
}

func TestClient_Verify(t *testing.T) {
	testCases := []struct {
		name         string
		reply        string
		wantRef      int64
		wantAlready  bool
		wantUpstream bool
	}{
		{
			name:    "verified",
			reply:   `{"data":{"code":100,"message":"Verified","card_pan":"502229******5995","ref_id":201,"fee":250},"errors":[]}`,
			wantRef: 201,
		},
		{
			name:        "already verified",
			reply:       `{"data":{"code":101,"message":"Verified","card_pan":"502229******5995","ref_id":201,"fee":250},"errors":[]}`,
			wantRef:     201,
			wantAlready: true,
		},
		{
			name:         "not paid",
			reply:        `{"data":[],"errors":{"code":-51,"message":"Session is not valid, session is not active paid try."}}`,
			wantUpstream: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var got verifyBody
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, verifyPath, r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				writeJSON(w, http.StatusOK, tc.reply)
			})

			// when
			v, err := client.Verify(context.Background(), "A0001", 25000)

			// then
			assert.Equal(t, "A0001", got.Authority)
			assert.Equal(t, int64(25000), got.Amount)
			if tc.wantUpstream {
				assert.ErrorIs(t, err, apperrors.ErrUpstream)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantRef, v.ReferenceID)
			assert.Equal(t, "502229******5995", v.CardPan)
			assert.Equal(t, int64(250), v.Fee)
			assert.Equal(t, tc.wantAlready, v.AlreadyVerified())
		})
	}
}

func TestClient_BreakerOpensOnUnavailabilityOnly(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[],"errors":{"code":-11,"message":"Request not found."}}`)
	})

	// rejections never trip the breaker
	for range 4 {
		_, err := client.Verify(context.Background(), "A1", 1000)
		require.ErrorIs(t, err, apperrors.ErrUpstream)
	}

	// unavailability does
	failing.Store(true)
	for range 2 {
		_, err := client.Verify(context.Background(), "A1", 1000)
		require.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
	}
	before := calls.Load()
	_, err := client.Verify(context.Background(), "A1", 1000)

	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker must not reach the gateway")
	assert.False(t, errors.Is(err, apperrors.ErrUpstream))
}
