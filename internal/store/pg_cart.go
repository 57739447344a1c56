package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (p *PgStore) FindStoreItem(ctx context.Context, id uuid.UUID) (*db.FindStoreItemByIDRow, error) {
	item, err := p.q.FindStoreItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStoreItemNotFound
		}
		return nil, fmt.Errorf("find store item %s: %w", id, err)
	}
	return &item, nil
}

func (p *PgStore) FindActiveCart(ctx context.Context, userID uuid.UUID) (*db.Cart, error) {
	cart, err := p.q.FindCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("find cart of user %s: %w", userID, err)
	}
	return &cart, nil
}

func (p *PgStore) CreateCart(ctx context.Context, userID uuid.UUID) (*db.Cart, error) {
	cart, err := p.q.CreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (p *PgStore) FindCartItems(ctx context.Context, cartID uuid.UUID) ([]db.FindCartItemsRow, error) {
	items, err := p.q.FindCartItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("find items of cart %s: %w", cartID, err)
	}
	return items, nil
}

func (p *PgStore) FindCartItemByStoreItem(ctx context.Context, cartID, storeItemID uuid.UUID) (*db.CartItem, error) {
	item, err := p.q.FindCartItemByStoreItem(ctx, db.FindCartItemByStoreItemParams{CartID: cartID, StoreItemID: storeItemID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("find cart line for store item %s: %w", storeItemID, err)
	}
	return &item, nil
}

func (p *PgStore) FindCartItem(ctx context.Context, id uuid.UUID) (*db.FindCartItemWithOwnerRow, error) {
	item, err := p.q.FindCartItemWithOwner(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("find cart item %s: %w", id, err)
	}
	return &item, nil
}

func (p *PgStore) CreateCartItem(ctx context.Context, params db.CreateCartItemParams) (*db.CartItem, error) {
	item, err := p.q.CreateCartItem(ctx, params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrCartItemExists
		}
		return nil, fmt.Errorf("create cart item: %w", err)
	}
	return &item, nil
}

func (p *PgStore) UpdateCartItem(ctx context.Context, params db.UpdateCartItemQuantityParams) (*db.CartItem, error) {
	item, err := p.q.UpdateCartItemQuantity(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item %s: %w", params.ID, err)
	}
	return &item, nil
}

func (p *PgStore) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	if _, err := p.q.DeleteCartItem(ctx, id); err != nil {
		return fmt.Errorf("delete cart item %s: %w", id, err)
	}
	return nil
}
