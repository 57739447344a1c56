package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, user_id, address_id, status, total_price, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AddressID,
		&i.Status,
		&i.TotalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, address_id, status, total_price)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID     uuid.UUID `json:"user_id"`
	AddressID  uuid.UUID `json:"address_id"`
	Status     string    `json:"status"`
	TotalPrice int64     `json:"total_price"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.UserID, arg.AddressID, arg.Status, arg.TotalPrice))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, store_item_id, quantity, price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, store_item_id, quantity, price, total_price, created_at
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID `json:"order_id"`
	StoreItemID uuid.UUID `json:"store_item_id"`
	Quantity    int32     `json:"quantity"`
	Price       int64     `json:"price"`
	TotalPrice  int64     `json:"total_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.StoreItemID,
		arg.Quantity,
		arg.Price,
		arg.TotalPrice,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreItemID,
		&i.Quantity,
		&i.Price,
		&i.TotalPrice,
		&i.CreatedAt,
	)
	return i, err
}

const findOrderByID = `-- name: FindOrderByID :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) FindOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, findOrderByID, id))
}

const findOrderItemsByOrderID = `-- name: FindOrderItemsByOrderID :many
SELECT id, order_id, store_item_id, quantity, price, total_price, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) FindOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, findOrderItemsByOrderID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.StoreItemID,
			&i.Quantity,
			&i.Price,
			&i.TotalPrice,
			&i.CreatedAt,
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

const findOrdersForBuyer = `-- name: FindOrdersForBuyer :many
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id
OFFSET $2 LIMIT $3
`

type FindOrdersForBuyerParams struct {
	UserID uuid.UUID `json:"user_id"`
	Offset int32     `json:"offset"`
	Limit  int32     `json:"limit"`
}

func (q *Queries) FindOrdersForBuyer(ctx context.Context, arg FindOrdersForBuyerParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, findOrdersForBuyer, arg.UserID, arg.Offset, arg.Limit))
}

const findOrdersForSeller = `-- name: FindOrdersForSeller :many
SELECT o.id, o.user_id, o.address_id, o.status, o.total_price, o.created_at, o.updated_at
FROM orders o
WHERE EXISTS (SELECT 1
              FROM order_items oi
                       JOIN store_items si ON si.id = oi.store_item_id
                       JOIN stores s ON s.id = si.store_id
              WHERE oi.order_id = o.id
                AND s.seller_id = $1)
ORDER BY o.created_at DESC, o.id
OFFSET $2 LIMIT $3
`

type FindOrdersForSellerParams struct {
	SellerID uuid.UUID `json:"seller_id"`
	Offset   int32     `json:"offset"`
	Limit    int32     `json:"limit"`
}

func (q *Queries) FindOrdersForSeller(ctx context.Context, arg FindOrdersForSellerParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, findOrdersForSeller, arg.SellerID, arg.Offset, arg.Limit))
}

const sellerOwnsOrder = `-- name: SellerOwnsOrder :one
SELECT EXISTS (SELECT 1
               FROM order_items oi
                        JOIN store_items si ON si.id = oi.store_item_id
                        JOIN stores s ON s.id = si.store_id
               WHERE oi.order_id = $1
                 AND s.seller_id = $2)
`

type SellerOwnsOrderParams struct {
	OrderID  uuid.UUID `json:"order_id"`
	SellerID uuid.UUID `json:"seller_id"`
}

func (q *Queries) SellerOwnsOrder(ctx context.Context, arg SellerOwnsOrderParams) (bool, error) {
	row := q.db.QueryRow(ctx, sellerOwnsOrder, arg.OrderID, arg.SellerID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const transitionOrderStatus = `-- name: TransitionOrderStatus :one
UPDATE orders
SET status     = $3,
    updated_at = now()
WHERE id = $1
  AND status = $2
RETURNING ` + orderColumns

type TransitionOrderStatusParams struct {
	ID         uuid.UUID `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
}

// TransitionOrderStatus returns pgx.ErrNoRows when the order is not in FromStatus.
func (q *Queries) TransitionOrderStatus(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, transitionOrderStatus, arg.ID, arg.FromStatus, arg.ToStatus))
}
