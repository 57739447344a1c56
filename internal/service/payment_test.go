package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/gateway"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthority = "A00000000000000000000000000000000001"

type paymentFixture struct {
	buyer    *db.User
	order    *db.Order
	orders   *fakeOrderStore
	payments *fakePaymentStore
	gw       *fakeGateway
	notifier *recordingNotifier
	svc      *Payments
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	now := time.Now()
	f := &paymentFixture{
		buyer:    &db.User{ID: uuid.New(), Username: "buyer", Email: "buyer@example.com", Phone: ptr("09120000000")},
		orders:   newFakeOrderStore(),
		notifier: &recordingNotifier{},
		gw: &fakeGateway{
			session:      &gateway.Session{Authority: testAuthority, RedirectURL: "https://pay.example.com/pg/StartPay/" + testAuthority},
			verification: &gateway.Verification{Code: 100, ReferenceID: 201, CardPan: "502229******5995", Fee: 10},
		},
	}
	f.order = &db.Order{ID: uuid.New(), UserID: f.buyer.ID, Status: db.OrderStatusPending, TotalPrice: 5000, CreatedAt: now, UpdatedAt: now}
	f.orders.addOrder(f.order, uuid.New())
	f.payments = newFakePaymentStore(f.orders)
	f.svc = NewPaymentService(newFakeUserStore(f.buyer), f.orders, f.payments, f.gw, f.notifier, config.GatewayConfig{MinAmount: 1000})
	return f
}

func (f *paymentFixture) initiate(t *testing.T) {
	t.Helper()
	_, err := f.svc.Initiate(context.Background(), f.buyer.ID, InitiatePaymentDto{OrderID: f.order.ID})
	require.NoError(t, err)
}

func Test_PaymentService_Initiate(t *testing.T) {
	testCases := []struct {
		name        string
		prepare     func(f *paymentFixture)
		caller      func(f *paymentFixture) uuid.UUID
		expectErrIs error
		expectKind  error
		expectCalls int
	}{
		{
			name:        "Success",
			prepare:     func(*paymentFixture) {},
			caller:      func(f *paymentFixture) uuid.UUID { return f.buyer.ID },
			expectCalls: 1,
		},
		{
			name:        "Error - order of another user",
			prepare:     func(*paymentFixture) {},
			caller:      func(*paymentFixture) uuid.UUID { return uuid.New() },
			expectErrIs: apperrors.ErrOrderNotFound,
			expectKind:  apperrors.ErrNotFound,
		},
		{
			name:        "Error - order not pending",
			prepare:     func(f *paymentFixture) { f.order.Status = db.OrderStatusProcessing },
			caller:      func(f *paymentFixture) uuid.UUID { return f.buyer.ID },
			expectErrIs: apperrors.ErrOrderNotPayable,
			expectKind:  apperrors.ErrValidation,
		},
		{
			name:        "Error - below gateway minimum",
			prepare:     func(f *paymentFixture) { f.order.TotalPrice = 999 },
			caller:      func(f *paymentFixture) uuid.UUID { return f.buyer.ID },
			expectErrIs: apperrors.ErrAmountBelowMinimum,
			expectKind:  apperrors.ErrValidation,
		},
		{
			name: "Error - gateway rejects",
			prepare: func(f *paymentFixture) {
				f.gw.requestErr = &apperrors.UpstreamError{Code: -9, Message: "validation error"}
			},
			caller:      func(f *paymentFixture) uuid.UUID { return f.buyer.ID },
			expectErrIs: apperrors.ErrUpstream,
			expectKind:  apperrors.ErrUpstream,
			expectCalls: 1,
		},
		{
			name: "Error - gateway unreachable",
			prepare: func(f *paymentFixture) {
				f.gw.requestErr = fmt.Errorf("request: %w", apperrors.ErrGatewayUnavailable)
			},
			caller:      func(f *paymentFixture) uuid.UUID { return f.buyer.ID },
			expectErrIs: apperrors.ErrGatewayUnavailable,
			expectKind:  apperrors.ErrServiceUnavailable,
			expectCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newPaymentFixture(t)
			tc.prepare(f)

			// when
			actual, err := f.svc.Initiate(context.Background(), tc.caller(f), InitiatePaymentDto{OrderID: f.order.ID})

			// then
			assert.Len(t, f.gw.requests, tc.expectCalls)
			if tc.expectErrIs != nil {
				require.ErrorIs(t, err, tc.expectErrIs)
				assert.ErrorIs(t, err, tc.expectKind)
				assert.Nil(t, actual)
				assert.Zero(t, f.payments.created, "no payment row on failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testAuthority, actual.Authority)
			assert.Equal(t, "https://pay.example.com/pg/StartPay/"+testAuthority, actual.URL)
			assert.Equal(t, int64(5000), f.gw.requests[0].Amount)
			assert.Equal(t, "buyer@example.com", f.gw.requests[0].Email)
			assert.Equal(t, "09120000000", f.gw.requests[0].Mobile)
			payment := f.payments.payments[testAuthority]
			require.NotNil(t, payment)
			assert.Equal(t, db.PaymentStatusPending, payment.Status)
			assert.Equal(t, int64(5000), payment.Amount)
		})
	}
}

func Test_PaymentService_Verify(t *testing.T) {
	testCases := []struct {
		name           string
		prepare        func(f *paymentFixture)
		authority      string
		status         string
		expected       *VerifyOutcomeDto
		expectErrIs    error
		paymentStatus  string
		orderStatus    string
		gatewayCalls   int
		expectNotified bool
	}{
		{
			name:           "Success - settles payment and advances order",
			prepare:        func(*paymentFixture) {},
			authority:      testAuthority,
			status:         "OK",
			expected:       &VerifyOutcomeDto{Status: VerifySuccess, RefID: ptr(int64(201))},
			paymentStatus:  db.PaymentStatusVerified,
			orderStatus:    db.OrderStatusProcessing,
			gatewayCalls:   1,
			expectNotified: true,
		},
		{
			name: "Success - gateway had already verified an unsettled payment",
			prepare: func(f *paymentFixture) {
				f.gw.verification = &gateway.Verification{Code: 101, ReferenceID: 201, CardPan: "502229******5995", Fee: 10}
			},
			authority:      testAuthority,
			status:         "OK",
			expected:       &VerifyOutcomeDto{Status: VerifySuccess, RefID: ptr(int64(201))},
			paymentStatus:  db.PaymentStatusVerified,
			orderStatus:    db.OrderStatusProcessing,
			gatewayCalls:   1,
			expectNotified: true,
		},
		{
			name:        "Error - unknown authority",
			prepare:     func(*paymentFixture) {},
			authority:   "X",
			status:      "OK",
			expectErrIs: apperrors.ErrPaymentNotFound,
		},
		{
			name:          "Cancelled - buyer aborted",
			prepare:       func(*paymentFixture) {},
			authority:     testAuthority,
			status:        "NOK",
			expected:      &VerifyOutcomeDto{Status: VerifyCancelled},
			paymentStatus: db.PaymentStatusPending,
			orderStatus:   db.OrderStatusPending,
		},
		{
			name: "Failed - gateway rejects verification",
			prepare: func(f *paymentFixture) {
				f.gw.verifyErr = &apperrors.UpstreamError{Code: -51, Message: "payment failed"}
			},
			authority:     testAuthority,
			status:        "OK",
			expected:      &VerifyOutcomeDto{Status: VerifyFailed, Message: "payment failed"},
			paymentStatus: db.PaymentStatusPending,
			orderStatus:   db.OrderStatusPending,
			gatewayCalls:  1,
		},
		{
			name: "Error - gateway unavailable leaves state unchanged",
			prepare: func(f *paymentFixture) {
				f.gw.verifyErr = fmt.Errorf("verify: %w", apperrors.ErrGatewayUnavailable)
			},
			authority:     testAuthority,
			status:        "OK",
			expectErrIs:   apperrors.ErrServiceUnavailable,
			paymentStatus: db.PaymentStatusPending,
			orderStatus:   db.OrderStatusPending,
			gatewayCalls:  1,
		},
		{
			name:          "Failed - order was cancelled",
			prepare:       func(f *paymentFixture) { f.order.Status = db.OrderStatusCancelled },
			authority:     testAuthority,
			status:        "OK",
			expected:      &VerifyOutcomeDto{Status: VerifyFailed, Message: "order was cancelled"},
			paymentStatus: db.PaymentStatusPending,
			orderStatus:   db.OrderStatusCancelled,
		},
		{
			name:          "Success - concurrent callback settled first",
			prepare:       func(f *paymentFixture) { f.payments.settleRace = true },
			authority:     testAuthority,
			status:        "OK",
			expected:      &VerifyOutcomeDto{Status: VerifySuccess, RefID: ptr(int64(201))},
			paymentStatus: db.PaymentStatusVerified,
			orderStatus:   db.OrderStatusPending,
			gatewayCalls:  1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newPaymentFixture(t)
			f.initiate(t)
			tc.prepare(f)

			// when
			actual, err := f.svc.Verify(context.Background(), tc.authority, tc.status)

			// then
			assert.Equal(t, tc.gatewayCalls, f.gw.verifies)
			if tc.expectNotified {
				assert.Equal(t, []notification{{kind: "payment_confirmed", email: "buyer@example.com", orderID: f.order.ID}}, f.notifier.all())
			} else {
				assert.Empty(t, f.notifier.all())
			}
			if tc.expectErrIs != nil {
				assert.ErrorIs(t, err, tc.expectErrIs)
				assert.Nil(t, actual)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, actual)
			}
			if tc.paymentStatus != "" {
				assert.Equal(t, tc.paymentStatus, f.payments.payments[testAuthority].Status)
				assert.Equal(t, tc.orderStatus, f.order.Status)
			}
		})
	}
}

func Test_PaymentService_Verify_IsIdempotent(t *testing.T) {
	// given
	f := newPaymentFixture(t)
	f.initiate(t)
	ctx := context.Background()

	// when
	first, err1 := f.svc.Verify(ctx, testAuthority, "OK")
	second, err2 := f.svc.Verify(ctx, testAuthority, "OK")

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.gw.verifies)
	assert.Equal(t, 1, f.payments.settles)
	assert.Len(t, f.notifier.all(), 1)
	assert.Equal(t, db.OrderStatusProcessing, f.order.Status)
}

func Test_PaymentService_Verify_RetryAfterRejection(t *testing.T) {
	// given
	f := newPaymentFixture(t)
	f.initiate(t)
	f.gw.verifyErr = &apperrors.UpstreamError{Code: -51, Message: "payment failed"}
	ctx := context.Background()
	failed, err := f.svc.Verify(ctx, testAuthority, "OK")
	require.NoError(t, err)
	require.Equal(t, VerifyFailed, failed.Status)
	f.gw.verifyErr = nil

	// when
	actual, err := f.svc.Verify(ctx, testAuthority, "OK")

	// then
	require.NoError(t, err)
	assert.Equal(t, VerifySuccess, actual.Status)
	assert.Equal(t, db.OrderStatusProcessing, f.order.Status)
}
