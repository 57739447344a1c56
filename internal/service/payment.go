package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/gateway"
	"github.com/bazaarhq/bazaar/internal/notify"
	"github.com/bazaarhq/bazaar/internal/store"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// VerifyStatusOK is the callback status flag the gateway sends when the buyer completed the payment.
const VerifyStatusOK = "OK"

// PaymentService initiates payments with the gateway and settles them on callback.
type PaymentService interface {
	// Initiate opens a gateway session for the caller's PENDING order.
	// Returns ErrOrderNotFound, ErrOrderNotPayable, ErrAmountBelowMinimum,
	// an *UpstreamError on rejection or ErrGatewayUnavailable. No payment is stored on failure.
	Initiate(ctx context.Context, userID uuid.UUID, dto InitiatePaymentDto) (*PaymentSessionDto, error)

	// Verify settles the payment identified by the gateway authority.
	// A repeated call after success returns the same outcome without side effects.
	// Returns ErrPaymentNotFound for an unknown authority and ErrGatewayUnavailable
	// when the gateway cannot confirm, in which case nothing changes.
	Verify(ctx context.Context, authority, status string) (*VerifyOutcomeDto, error)
}

var _ PaymentService = (*Payments)(nil)

type Payments struct {
	users     store.UserStore
	orders    store.OrderStore
	payments  store.PaymentStore
	gw        gateway.Gateway
	notifier  notify.Notifier
	minAmount int64
	settled   metric.Int64Counter
}

func NewPaymentService(users store.UserStore, orders store.OrderStore, payments store.PaymentStore,
	gw gateway.Gateway, notifier notify.Notifier, cfg config.GatewayConfig) *Payments {
	meter := otel.Meter("bazaar/payments")
	settled, err := meter.Int64Counter("payments_verified", metric.WithDescription("Total number of verified payments"))
	if err != nil {
		panic(fmt.Sprintf("failed to create payments_verified counter: %v", err))
	}
	return &Payments{
		users:     users,
		orders:    orders,
		payments:  payments,
		gw:        gw,
		notifier:  notifier,
		minAmount: cfg.MinAmount,
		settled:   settled,
	}
}

func (s *Payments) Initiate(ctx context.Context, userID uuid.UUID, dto InitiatePaymentDto) (*PaymentSessionDto, error) {
	order, _, err := s.orders.FindOrder(ctx, dto.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.ErrOrderNotFound
	}
	if order.Status != db.OrderStatusPending {
		return nil, apperrors.ErrOrderNotPayable
	}
	if order.TotalPrice < s.minAmount {
		return nil, apperrors.ErrAmountBelowMinimum
	}
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := gateway.PaymentRequest{
		OrderID:     order.ID,
		Amount:      order.TotalPrice,
		Description: fmt.Sprintf("Payment for order %s", order.ID),
		Email:       user.Email,
	}
	if user.Phone != nil {
		req.Mobile = *user.Phone
	}
	session, err := s.gw.Request(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "Payment request failed", "order_id", order.ID, "error", err)
		return nil, err
	}

	payment, err := s.payments.CreatePayment(ctx, db.CreatePaymentParams{
		OrderID:       order.ID,
		TransactionID: session.Authority,
		Amount:        order.TotalPrice,
		Status:        db.PaymentStatusPending,
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Payment initiated", "order_id", order.ID, "payment_id", payment.ID, "authority", session.Authority)
	return &PaymentSessionDto{Authority: session.Authority, URL: session.RedirectURL}, nil
}

func (s *Payments) Verify(ctx context.Context, authority, status string) (*VerifyOutcomeDto, error) {
	if authority == "" {
		return nil, apperrors.ErrPaymentNotFound
	}
	payment, err := s.payments.FindPaymentByAuthority(ctx, authority)
	if err != nil {
		return nil, err
	}
	if payment.Status == db.PaymentStatusVerified {
		return successOutcome(payment), nil
	}
	if status != VerifyStatusOK {
		slog.InfoContext(ctx, "Payment cancelled by buyer", "payment_id", payment.ID, "status", status)
		return &VerifyOutcomeDto{Status: VerifyCancelled}, nil
	}
	if payment.Status != db.PaymentStatusPending {
		return &VerifyOutcomeDto{Status: VerifyFailed, Message: "payment is no longer pending"}, nil
	}
	order, _, err := s.orders.FindOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == db.OrderStatusCancelled {
		return &VerifyOutcomeDto{Status: VerifyFailed, Message: "order was cancelled"}, nil
	}

	verification, err := s.gw.Verify(ctx, authority, payment.Amount)
	if err != nil {
		var upstream *apperrors.UpstreamError
		if errors.As(err, &upstream) {
			// the payment stays PENDING so a later callback can still settle it
			slog.WarnContext(ctx, "Gateway rejected payment verification",
				"payment_id", payment.ID, "gateway_code", upstream.Code, "message", upstream.Message)
			return &VerifyOutcomeDto{Status: VerifyFailed, Message: upstream.Message}, nil
		}
		return nil, err
	}
	if verification.AlreadyVerified() {
		// a previous verify reached the gateway but its settlement never committed
		slog.InfoContext(ctx, "Gateway reports payment already verified, settling locally",
			"payment_id", payment.ID, "ref_id", verification.ReferenceID)
	}

	result, err := s.payments.SettlePayment(ctx, db.MarkPaymentVerifiedParams{
		ID:          payment.ID,
		ReferenceID: &verification.ReferenceID,
		CardPan:     &verification.CardPan,
		Fee:         &verification.Fee,
	}, payment.OrderID)
	if errors.Is(err, apperrors.ErrPaymentAlreadySettled) {
		// a concurrent callback settled it first
		current, err := s.payments.FindPaymentByAuthority(ctx, authority)
		if err != nil {
			return nil, err
		}
		if current.Status == db.PaymentStatusVerified {
			return successOutcome(current), nil
		}
		return &VerifyOutcomeDto{Status: VerifyFailed, Message: "payment is no longer pending"}, nil
	}
	if err != nil {
		return nil, err
	}

	if !result.OrderAdvanced {
		slog.WarnContext(ctx, "Payment verified but order had already left PENDING", "payment_id", payment.ID, "order_id", order.ID)
	}
	slog.InfoContext(ctx, "Payment verified", "payment_id", payment.ID, "order_id", order.ID, "ref_id", verification.ReferenceID)
	s.settled.Add(ctx, 1)

	if buyer, err := s.users.FindUser(ctx, order.UserID); err != nil {
		slog.WarnContext(ctx, "Skipping payment notification, buyer lookup failed", "order_id", order.ID, "error", err)
	} else {
		s.notifier.NotifyPaymentConfirmed(ctx, buyer.Email, order.ID, payment.Amount, verification.ReferenceID)
	}
	return successOutcome(result.Payment), nil
}

func successOutcome(p *db.Payment) *VerifyOutcomeDto {
	return &VerifyOutcomeDto{Status: VerifySuccess, RefID: p.ReferenceID}
}
