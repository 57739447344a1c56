package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, order_id, transaction_id, reference_id, card_pan, amount, fee, status, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.TransactionID,
		&i.ReferenceID,
		&i.CardPan,
		&i.Amount,
		&i.Fee,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, transaction_id, amount, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.TransactionID, arg.Amount, arg.Status))
}

const findPaymentByTransactionID = `-- name: FindPaymentByTransactionID :one
SELECT ` + paymentColumns + `
FROM payments
WHERE transaction_id = $1
`

func (q *Queries) FindPaymentByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, findPaymentByTransactionID, transactionID))
}

const markPaymentVerified = `-- name: MarkPaymentVerified :one
UPDATE payments
SET status       = 'VERIFIED',
    reference_id = $2,
    card_pan     = $3,
    fee          = $4,
    updated_at   = now()
WHERE id = $1
  AND status = 'PENDING'
RETURNING ` + paymentColumns

type MarkPaymentVerifiedParams struct {
	ID          uuid.UUID `json:"id"`
	ReferenceID *int64    `json:"reference_id"`
	CardPan     *string   `json:"card_pan"`
	Fee         *int64    `json:"fee"`
}

// MarkPaymentVerified returns pgx.ErrNoRows when the payment has already left PENDING.
func (q *Queries) MarkPaymentVerified(ctx context.Context, arg MarkPaymentVerifiedParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, markPaymentVerified, arg.ID, arg.ReferenceID, arg.CardPan, arg.Fee))
}
