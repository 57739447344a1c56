package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/notify"
	"github.com/bazaarhq/bazaar/internal/store"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// OrderService places orders and moves them through their lifecycle.
type OrderService interface {
	// PlaceOrder converts the caller's cart into a PENDING order and empties the cart.
	// Returns ErrCartNotFound, ErrCartEmpty, ErrMissingAddress, ErrAddressNotFound
	// or an *InsufficientStockError naming the first line that cannot be covered.
	PlaceOrder(ctx context.Context, userID uuid.UUID, dto PlaceOrderDto) (*OrderDto, error)

	// FindByID returns an order to its buyer or to a seller of one of its items.
	// Everyone else gets ErrOrderNotFound.
	FindByID(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error)

	// FindForBuyer returns the caller's orders, newest first.
	FindForBuyer(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error)

	// FindForSeller returns the orders that contain an item of the caller's stores.
	// Returns ErrSellerOnly if the caller is not a seller.
	FindForSeller(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error)

	// UpdateStatus lets a seller move a PENDING order to PROCESSING or DELIVERED.
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, dto UpdateStatusDto) (*OrderDto, error)

	// Cancel cancels the caller's PENDING order and restores the reserved stock.
	Cancel(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error)
}

var _ OrderService = (*Orders)(nil)

type Orders struct {
	users         store.UserStore
	carts         store.CartStore
	orders        store.OrderStore
	notifier      notify.Notifier
	ordersCounter metric.Int64Counter
}

func NewOrderService(users store.UserStore, carts store.CartStore, orders store.OrderStore, notifier notify.Notifier) *Orders {
	meter := otel.Meter("bazaar/orders")
	ordersCounter, err := meter.Int64Counter("orders_placed", metric.WithDescription("Total number of placed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_placed counter: %v", err))
	}
	return &Orders{
		users:         users,
		carts:         carts,
		orders:        orders,
		notifier:      notifier,
		ordersCounter: ordersCounter,
	}
}

func (s *Orders) PlaceOrder(ctx context.Context, userID uuid.UUID, dto PlaceOrderDto) (*OrderDto, error) {
	cart, err := s.carts.FindActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.carts.FindCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.ErrCartEmpty
	}
	if dto.AddressID == nil {
		return nil, apperrors.ErrMissingAddress
	}
	if _, err := s.orders.FindAddress(ctx, userID, *dto.AddressID); err != nil {
		return nil, err
	}
	// early answer for the common case; the reservation inside PlaceOrder is what actually guards stock
	for _, line := range lines {
		if line.Quantity > line.Stock {
			slog.WarnContext(ctx, "Insufficient stock", "store_item_id", line.StoreItemID, "requested", line.Quantity, "remaining", line.Stock)
			return nil, &apperrors.InsufficientStockError{Product: line.ProductName, Remaining: line.Stock}
		}
	}

	order, items, err := s.orders.PlaceOrder(ctx, store.PlaceOrderParams{
		UserID:    userID,
		AddressID: *dto.AddressID,
		CartID:    cart.ID,
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order placed", "order_id", order.ID, "total_price", order.TotalPrice, "items", len(items))

	if user, err := s.users.FindUser(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Skipping order notification, buyer lookup failed", "order_id", order.ID, "error", err)
	} else {
		s.notifier.NotifyOrderReceived(ctx, user.Email, order.ID, order.TotalPrice)
	}
	s.ordersCounter.Add(ctx, 1)

	return toOrderDto(order, items), nil
}

func (s *Orders) FindByID(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		owns, err := s.orders.SellerOwnsOrder(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, apperrors.ErrOrderNotFound
		}
	}
	return toOrderDto(order, items), nil
}

func (s *Orders) FindForBuyer(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.orders.FindOrdersForBuyer(ctx, db.FindOrdersForBuyerParams{UserID: userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	return toOrderDtos(orders), nil
}

func (s *Orders) FindForSeller(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsSeller {
		return nil, apperrors.ErrSellerOnly
	}
	orders, err := s.orders.FindOrdersForSeller(ctx, db.FindOrdersForSellerParams{SellerID: userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	return toOrderDtos(orders), nil
}

func (s *Orders) UpdateStatus(ctx context.Context, userID, id uuid.UUID, dto UpdateStatusDto) (*OrderDto, error) {
	order, _, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	owns, err := s.orders.SellerOwnsOrder(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, apperrors.ErrNotSeller
	}
	if dto.Status != db.OrderStatusProcessing && dto.Status != db.OrderStatusDelivered {
		return nil, apperrors.ErrInvalidStatusTransition
	}
	if order.Status != db.OrderStatusPending {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	updated, err := s.orders.TransitionOrder(ctx, id, db.OrderStatusPending, dto.Status)
	if errors.Is(err, apperrors.ErrOrderStatusConflict) {
		return nil, apperrors.ErrInvalidStatusTransition
	}
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order status changed", "order_id", id, "from", order.Status, "to", updated.Status)
	return toOrderDto(updated, nil), nil
}

func (s *Orders) Cancel(ctx context.Context, userID, id uuid.UUID) (*OrderDto, error) {
	order, _, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.ErrOrderNotFound
	}
	cancelled, err := s.orders.CancelOrder(ctx, id)
	if errors.Is(err, apperrors.ErrOrderStatusConflict) {
		return nil, apperrors.ErrOrderNotCancellable
	}
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order cancelled", "order_id", id)
	return toOrderDto(cancelled, nil), nil
}

func toOrderDtos(orders []db.Order) []OrderDto {
	dtos := make([]OrderDto, len(orders))
	for i := range orders {
		dtos[i] = *toOrderDto(&orders[i], nil)
	}
	return dtos
}
