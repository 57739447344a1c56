package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/inventory"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (p *PgStore) FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*db.Address, error) {
	addr, err := p.q.FindAddressForUser(ctx, db.FindAddressForUserParams{ID: addressID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAddressNotFound
		}
		return nil, fmt.Errorf("find address %s: %w", addressID, err)
	}
	return &addr, nil
}

func (p *PgStore) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*db.Order, []db.OrderItem, error) {
	var createdOrder *db.Order
	var createdItems []db.OrderItem

	txErr := p.withSerializableTransaction(ctx, func(qtx *db.Queries) error {
		// the cart is read again inside the transaction: a concurrent checkout may have emptied it
		lines, err := qtx.FindCartItems(ctx, params.CartID)
		if err != nil {
			return fmt.Errorf("find items of cart %s: %w", params.CartID, err)
		}
		if len(lines) == 0 {
			return apperrors.ErrCartEmpty
		}

		var total int64
		for _, line := range lines {
			total += line.TotalItemPrice
		}

		order, err := qtx.CreateOrder(ctx, db.CreateOrderParams{
			UserID:     params.UserID,
			AddressID:  params.AddressID,
			Status:     db.OrderStatusPending,
			TotalPrice: total,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		ledger := inventory.New(qtx)
		items := make([]db.OrderItem, 0, len(lines))
		for _, line := range lines {
			item, err := qtx.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:     order.ID,
				StoreItemID: line.StoreItemID,
				Quantity:    line.Quantity,
				Price:       line.UnitPrice,
				TotalPrice:  line.TotalItemPrice,
			})
			if err != nil {
				return fmt.Errorf("create order item for %s: %w", line.StoreItemID, err)
			}
			if _, err := ledger.Reserve(ctx, line.StoreItemID, line.Quantity); err != nil {
				return err
			}
			items = append(items, item)
		}

		if _, err := qtx.DeleteCartItemsByCartID(ctx, params.CartID); err != nil {
			return fmt.Errorf("empty cart %s: %w", params.CartID, err)
		}

		createdOrder = &order
		createdItems = items
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return createdOrder, createdItems, nil
}

func (p *PgStore) FindOrder(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error) {
	var order *db.Order
	var orderItems []db.OrderItem

	txErr := p.withTransaction(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(qtx *db.Queries) error {
		o, err := qtx.FindOrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrOrderNotFound
			}
			return fmt.Errorf("find order %s: %w", id, err)
		}
		i, err := qtx.FindOrderItemsByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("find items of order %s: %w", id, err)
		}
		order = &o
		orderItems = i
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return order, orderItems, nil
}

func (p *PgStore) FindOrdersForBuyer(ctx context.Context, params db.FindOrdersForBuyerParams) ([]db.Order, error) {
	orders, err := p.q.FindOrdersForBuyer(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find orders of buyer %s: %w", params.UserID, err)
	}
	return orders, nil
}

func (p *PgStore) FindOrdersForSeller(ctx context.Context, params db.FindOrdersForSellerParams) ([]db.Order, error) {
	orders, err := p.q.FindOrdersForSeller(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find orders of seller %s: %w", params.SellerID, err)
	}
	return orders, nil
}

func (p *PgStore) SellerOwnsOrder(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	owns, err := p.q.SellerOwnsOrder(ctx, db.SellerOwnsOrderParams{OrderID: orderID, SellerID: sellerID})
	if err != nil {
		return false, fmt.Errorf("check seller of order %s: %w", orderID, err)
	}
	return owns, nil
}

func (p *PgStore) TransitionOrder(ctx context.Context, id uuid.UUID, from, to string) (*db.Order, error) {
	order, err := p.q.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{ID: id, FromStatus: from, ToStatus: to})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderStatusConflict
		}
		return nil, fmt.Errorf("move order %s to %s: %w", id, to, err)
	}
	return &order, nil
}

func (p *PgStore) CancelOrder(ctx context.Context, id uuid.UUID) (*db.Order, error) {
	var cancelled *db.Order

	txErr := p.withTransaction(ctx, pgx.TxOptions{}, func(qtx *db.Queries) error {
		order, err := qtx.TransitionOrderStatus(ctx, db.TransitionOrderStatusParams{
			ID:         id,
			FromStatus: db.OrderStatusPending,
			ToStatus:   db.OrderStatusCancelled,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrOrderStatusConflict
			}
			return fmt.Errorf("cancel order %s: %w", id, err)
		}
		items, err := qtx.FindOrderItemsByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("find items of order %s: %w", id, err)
		}
		ledger := inventory.New(qtx)
		for _, item := range items {
			if _, err := ledger.Restore(ctx, item.StoreItemID, item.Quantity); err != nil {
				return err
			}
		}
		cancelled = &order
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}
	return cancelled, nil
}
