package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (p *PgStore) CreatePayment(ctx context.Context, params db.CreatePaymentParams) (*db.Payment, error) {
	payment, err := p.q.CreatePayment(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment for order %s: %w", params.OrderID, err)
	}
	return &payment, nil
}

func (p *PgStore) FindPaymentByAuthority(ctx context.Context, authority string) (*db.Payment, error) {
	payment, err := p.q.FindPaymentByTransactionID(ctx, authority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment %q: %w", authority, err)
	}
	return &payment, nil
}

func (p *PgStore) SettlePayment(ctx context.Context, params db.MarkPaymentVerifiedParams, orderID uuid.UUID) (*SettleResult, error) {
	var result SettleResult

	txErr := p.withTransaction(ctx, pgx.TxOptions{}, func(qtx *db.Queries) error {
		payment, err := qtx.MarkPaymentVerified(ctx, params)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrPaymentAlreadySettled
			}
			return fmt.Errorf("mark payment %s verified: %w", params.ID, err)
		}
		result.Payment = &payment

		_, err = qtx.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{
			ID:         orderID,
			FromStatus: db.OrderStatusPending,
			ToStatus:   db.OrderStatusProcessing,
		})
		switch {
		case err == nil:
			result.OrderAdvanced = true
		case errors.Is(err, pgx.ErrNoRows):
			// the money was captured, so the payment stays verified even if the order moved on
			result.OrderAdvanced = false
		default:
			return fmt.Errorf("advance order %s: %w", orderID, err)
		}
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}
	return &result, nil
}
