// Package inventory is the only place that mutates store item stock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier is the subset of db.Queries the ledger needs. Callers pass a
// transaction-scoped instance so stock changes commit or roll back together
// with the order rows they belong to.
type Querier interface {
	ReserveStock(ctx context.Context, arg db.ReserveStockParams) (int32, error)
	RestoreStock(ctx context.Context, arg db.RestoreStockParams) (int32, error)
	FindStoreItemStock(ctx context.Context, id uuid.UUID) (db.FindStoreItemStockRow, error)
}

type Ledger struct {
	q Querier
}

func New(q Querier) *Ledger {
	return &Ledger{q: q}
}

// Reserve decrements the stock of a store item by quantity and returns the remaining stock.
// The decrement is a single conditional UPDATE, so a concurrent reservation that
// drained the item makes this call fail with *errors.InsufficientStockError instead of overselling.
func (l *Ledger) Reserve(ctx context.Context, itemID uuid.UUID, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, apperrors.ErrInvalidQuantity
	}
	remaining, err := l.q.ReserveStock(ctx, db.ReserveStockParams{ID: itemID, Quantity: quantity})
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reserve stock for %s: %w", itemID, err)
	}
	current, err := l.q.FindStoreItemStock(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrStoreItemNotFound
		}
		return 0, fmt.Errorf("read stock for %s: %w", itemID, err)
	}
	return 0, &apperrors.InsufficientStockError{Product: current.ProductName, Remaining: current.Stock}
}

// Restore puts quantity back into the stock of a store item, e.g. when an order is cancelled.
func (l *Ledger) Restore(ctx context.Context, itemID uuid.UUID, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, apperrors.ErrInvalidQuantity
	}
	stock, err := l.q.RestoreStock(ctx, db.RestoreStockParams{ID: itemID, Quantity: quantity})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrStoreItemNotFound
		}
		return 0, fmt.Errorf("restore stock for %s: %w", itemID, err)
	}
	return stock, nil
}
