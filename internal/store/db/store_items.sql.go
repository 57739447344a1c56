package db

import (
	"context"

	"github.com/google/uuid"
)

const findStoreItemByID = `-- name: FindStoreItemByID :one
SELECT si.id, si.product_id, si.store_id, si.price, si.discount_price, si.stock, si.is_active,
       p.name AS product_name
FROM store_items si
         JOIN products p ON p.id = si.product_id
WHERE si.id = $1
`

type FindStoreItemByIDRow struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	StoreID       uuid.UUID `json:"store_id"`
	Price         int64     `json:"price"`
	DiscountPrice *int64    `json:"discount_price"`
	Stock         int32     `json:"stock"`
	IsActive      bool      `json:"is_active"`
	ProductName   string    `json:"product_name"`
}

func (q *Queries) FindStoreItemByID(ctx context.Context, id uuid.UUID) (FindStoreItemByIDRow, error) {
	row := q.db.QueryRow(ctx, findStoreItemByID, id)
	var i FindStoreItemByIDRow
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.StoreID,
		&i.Price,
		&i.DiscountPrice,
		&i.Stock,
		&i.IsActive,
		&i.ProductName,
	)
	return i, err
}

const findStoreItemStock = `-- name: FindStoreItemStock :one
SELECT si.stock, p.name AS product_name
FROM store_items si
         JOIN products p ON p.id = si.product_id
WHERE si.id = $1
`

type FindStoreItemStockRow struct {
	Stock       int32  `json:"stock"`
	ProductName string `json:"product_name"`
}

func (q *Queries) FindStoreItemStock(ctx context.Context, id uuid.UUID) (FindStoreItemStockRow, error) {
	row := q.db.QueryRow(ctx, findStoreItemStock, id)
	var i FindStoreItemStockRow
	err := row.Scan(&i.Stock, &i.ProductName)
	return i, err
}

const reserveStock = `-- name: ReserveStock :one
UPDATE store_items
SET stock      = GREATEST(stock - $2, 0),
    updated_at = now()
WHERE id = $1
  AND stock >= $2
RETURNING stock
`

type ReserveStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

// ReserveStock returns pgx.ErrNoRows when the item has less than Quantity in stock.
func (q *Queries) ReserveStock(ctx context.Context, arg ReserveStockParams) (int32, error) {
	row := q.db.QueryRow(ctx, reserveStock, arg.ID, arg.Quantity)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

const restoreStock = `-- name: RestoreStock :one
UPDATE store_items
SET stock      = stock + $2,
    updated_at = now()
WHERE id = $1
RETURNING stock
`

type RestoreStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) RestoreStock(ctx context.Context, arg RestoreStockParams) (int32, error) {
	row := q.db.QueryRow(ctx, restoreStock, arg.ID, arg.Quantity)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}
