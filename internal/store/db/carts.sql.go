package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const findCartByUserID = `-- name: FindCartByUserID :one
SELECT id, user_id, created_at
FROM carts
WHERE user_id = $1
`

func (q *Queries) FindCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, findCartByUserID, userID)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.CreatedAt)
	return i, err
}

const createCart = `-- name: CreateCart :one
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, created_at
`

// CreateCart returns the existing cart when a concurrent request created it first.
func (q *Queries) CreateCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, userID)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.CreatedAt)
	return i, err
}

const findCartItems = `-- name: FindCartItems :many
SELECT ci.id, ci.cart_id, ci.store_item_id, ci.quantity, ci.unit_price, ci.total_item_price, ci.total_discount,
       ci.created_at, si.stock, p.name AS product_name
FROM cart_items ci
         JOIN store_items si ON si.id = ci.store_item_id
         JOIN products p ON p.id = si.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id
`

type FindCartItemsRow struct {
	ID             uuid.UUID `json:"id"`
	CartID         uuid.UUID `json:"cart_id"`
	StoreItemID    uuid.UUID `json:"store_item_id"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	TotalItemPrice int64     `json:"total_item_price"`
	TotalDiscount  int64     `json:"total_discount"`
	CreatedAt      time.Time `json:"created_at"`
	Stock          int32     `json:"stock"`
	ProductName    string    `json:"product_name"`
}

func (q *Queries) FindCartItems(ctx context.Context, cartID uuid.UUID) ([]FindCartItemsRow, error) {
	rows, err := q.db.Query(ctx, findCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FindCartItemsRow
	for rows.Next() {
		var i FindCartItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.StoreItemID,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalItemPrice,
			&i.TotalDiscount,
			&i.CreatedAt,
			&i.Stock,
			&i.ProductName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findCartItemByStoreItem = `-- name: FindCartItemByStoreItem :one
SELECT id, cart_id, store_item_id, quantity, unit_price, total_item_price, total_discount, created_at
FROM cart_items
WHERE cart_id = $1
  AND store_item_id = $2
`

type FindCartItemByStoreItemParams struct {
	CartID      uuid.UUID `json:"cart_id"`
	StoreItemID uuid.UUID `json:"store_item_id"`
}

func (q *Queries) FindCartItemByStoreItem(ctx context.Context, arg FindCartItemByStoreItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, findCartItemByStoreItem, arg.CartID, arg.StoreItemID)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.StoreItemID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalItemPrice,
		&i.TotalDiscount,
		&i.CreatedAt,
	)
	return i, err
}

const findCartItemWithOwner = `-- name: FindCartItemWithOwner :one
SELECT ci.id, ci.cart_id, ci.store_item_id, ci.quantity, ci.unit_price, ci.total_item_price, ci.total_discount,
       ci.created_at, c.user_id AS owner_id
FROM cart_items ci
         JOIN carts c ON c.id = ci.cart_id
WHERE ci.id = $1
`

type FindCartItemWithOwnerRow struct {
	ID             uuid.UUID `json:"id"`
	CartID         uuid.UUID `json:"cart_id"`
	StoreItemID    uuid.UUID `json:"store_item_id"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	TotalItemPrice int64     `json:"total_item_price"`
	TotalDiscount  int64     `json:"total_discount"`
	CreatedAt      time.Time `json:"created_at"`
	OwnerID        uuid.UUID `json:"owner_id"`
}

func (q *Queries) FindCartItemWithOwner(ctx context.Context, id uuid.UUID) (FindCartItemWithOwnerRow, error) {
	row := q.db.QueryRow(ctx, findCartItemWithOwner, id)
	var i FindCartItemWithOwnerRow
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.StoreItemID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalItemPrice,
		&i.TotalDiscount,
		&i.CreatedAt,
		&i.OwnerID,
	)
	return i, err
}

const createCartItem = `-- name: CreateCartItem :one
INSERT INTO cart_items (cart_id, store_item_id, quantity, unit_price, total_item_price, total_discount)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, cart_id, store_item_id, quantity, unit_price, total_item_price, total_discount, created_at
`

type CreateCartItemParams struct {
	CartID         uuid.UUID `json:"cart_id"`
	StoreItemID    uuid.UUID `json:"store_item_id"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	TotalItemPrice int64     `json:"total_item_price"`
	TotalDiscount  int64     `json:"total_discount"`
}

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, createCartItem,
		arg.CartID,
		arg.StoreItemID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalItemPrice,
		arg.TotalDiscount,
	)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.StoreItemID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalItemPrice,
		&i.TotalDiscount,
		&i.CreatedAt,
	)
	return i, err
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items
SET quantity         = $2,
    total_item_price = $3,
    total_discount   = $4
WHERE id = $1
RETURNING id, cart_id, store_item_id, quantity, unit_price, total_item_price, total_discount, created_at
`

type UpdateCartItemQuantityParams struct {
	ID             uuid.UUID `json:"id"`
	Quantity       int32     `json:"quantity"`
	TotalItemPrice int64     `json:"total_item_price"`
	TotalDiscount  int64     `json:"total_discount"`
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQuantity,
		arg.ID,
		arg.Quantity,
		arg.TotalItemPrice,
		arg.TotalDiscount,
	)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.StoreItemID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalItemPrice,
		&i.TotalDiscount,
		&i.CreatedAt,
	)
	return i, err
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE
FROM cart_items
WHERE id = $1
`

func (q *Queries) DeleteCartItem(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteCartItemsByCartID = `-- name: DeleteCartItemsByCartID :execrows
DELETE
FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) DeleteCartItemsByCartID(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItemsByCartID, cartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
