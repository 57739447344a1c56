// Package service implements the cart, checkout, payment and one-time code use cases.
package service

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/store"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
)

// CartService manages the caller's cart.
type CartService interface {
	// GetCart returns the caller's cart, creating an empty one on first use.
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDto, error)

	// AddItem adds quantity of a store item, merging with an existing line for the same item.
	// Returns ErrInvalidQuantity, ErrStoreItemNotFound, ErrStoreItemInactive or ErrQuantityExceedsStock.
	AddItem(ctx context.Context, userID uuid.UUID, dto AddCartItemDto) (*CartItemDto, error)

	// UpdateItem sets the quantity of a line, re-checked against current stock.
	// Returns ErrCartItemForbidden if the line belongs to another user.
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, dto UpdateCartItemDto) (*CartItemDto, error)

	// RemoveItem deletes a line. Removing a missing line succeeds.
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

var _ CartService = (*Carts)(nil)

type Carts struct {
	store store.CartStore
}

func NewCartService(cartStore store.CartStore) *Carts {
	return &Carts{store: cartStore}
}

func (s *Carts) GetCart(ctx context.Context, userID uuid.UUID) (*CartDto, error) {
	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.FindCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return toCartDto(cart, lines), nil
}

func (s *Carts) AddItem(ctx context.Context, userID uuid.UUID, dto AddCartItemDto) (*CartItemDto, error) {
	if dto.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	storeItem, err := s.store.FindStoreItem(ctx, dto.StoreItemID)
	if err != nil {
		return nil, err
	}
	if !storeItem.IsActive {
		return nil, apperrors.ErrStoreItemInactive
	}
	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.addOrMerge(ctx, cart.ID, storeItem, dto.Quantity)
	if errors.Is(err, apperrors.ErrCartItemExists) {
		// a concurrent add created the line first
		item, err = s.addOrMerge(ctx, cart.ID, storeItem, dto.Quantity)
	}
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Cart line saved", "cart_id", cart.ID, "store_item_id", storeItem.ID, "quantity", item.Quantity)
	out := toCartItemDto(item, storeItem.ProductName)
	return &out, nil
}

func (s *Carts) addOrMerge(ctx context.Context, cartID uuid.UUID, storeItem *db.FindStoreItemByIDRow, quantity int32) (*db.CartItem, error) {
	existing, err := s.store.FindCartItemByStoreItem(ctx, cartID, storeItem.ID)
	switch {
	case err == nil:
		if quantity > storeItem.Stock-existing.Quantity {
			return nil, apperrors.ErrQuantityExceedsStock
		}
		merged := existing.Quantity + quantity
		// the merged line keeps the price snapshot taken when it was first added
		unitDiscount := existing.TotalDiscount / int64(existing.Quantity)
		return s.store.UpdateCartItem(ctx, db.UpdateCartItemQuantityParams{
			ID:             existing.ID,
			Quantity:       merged,
			TotalItemPrice: existing.UnitPrice * int64(merged),
			TotalDiscount:  unitDiscount * int64(merged),
		})
	case errors.Is(err, apperrors.ErrCartItemNotFound):
		if quantity > storeItem.Stock {
			return nil, apperrors.ErrQuantityExceedsStock
		}
		unitPrice, unitDiscount := snapshotPrice(storeItem.Price, storeItem.DiscountPrice)
		return s.store.CreateCartItem(ctx, db.CreateCartItemParams{
			CartID:         cartID,
			StoreItemID:    storeItem.ID,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			TotalItemPrice: unitPrice * int64(quantity),
			TotalDiscount:  unitDiscount * int64(quantity),
		})
	default:
		return nil, err
	}
}

func (s *Carts) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, dto UpdateCartItemDto) (*CartItemDto, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if dto.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	storeItem, err := s.store.FindStoreItem(ctx, item.StoreItemID)
	if err != nil {
		return nil, err
	}
	if dto.Quantity > storeItem.Stock {
		return nil, apperrors.ErrQuantityExceedsStock
	}
	unitDiscount := item.TotalDiscount / int64(item.Quantity)
	updated, err := s.store.UpdateCartItem(ctx, db.UpdateCartItemQuantityParams{
		ID:             item.ID,
		Quantity:       dto.Quantity,
		TotalItemPrice: item.UnitPrice * int64(dto.Quantity),
		TotalDiscount:  unitDiscount * int64(dto.Quantity),
	})
	if err != nil {
		return nil, err
	}
	out := toCartItemDto(updated, storeItem.ProductName)
	return &out, nil
}

func (s *Carts) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, apperrors.ErrCartItemNotFound) {
			return nil
		}
		return err
	}
	return s.store.DeleteCartItem(ctx, itemID)
}

func (s *Carts) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*db.FindCartItemWithOwnerRow, error) {
	item, err := s.store.FindCartItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, apperrors.ErrCartItemForbidden
	}
	return item, nil
}

// findOrCreateCart composes the two store calls explicitly; CreateCart tolerates a concurrent creator.
func (s *Carts) findOrCreateCart(ctx context.Context, userID uuid.UUID) (*db.Cart, error) {
	cart, err := s.store.FindActiveCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrCartNotFound) {
		return nil, err
	}
	return s.store.CreateCart(ctx, userID)
}

// snapshotPrice returns the price charged per unit and the discount per unit.
func snapshotPrice(price int64, discountPrice *int64) (unit, discount int64) {
	if discountPrice == nil {
		return price, 0
	}
	return *discountPrice, price - *discountPrice
}
