package db

import (
	"context"

	"github.com/google/uuid"
)

const findUserByID = `-- name: FindUserByID :one
SELECT id, username, email, phone, is_seller, created_at
FROM users
WHERE id = $1
`

func (q *Queries) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, findUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.IsSeller,
		&i.CreatedAt,
	)
	return i, err
}

const findUserByUsername = `-- name: FindUserByUsername :one
SELECT id, username, email, phone, is_seller, created_at
FROM users
WHERE username = $1
`

func (q *Queries) FindUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, findUserByUsername, username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.IsSeller,
		&i.CreatedAt,
	)
	return i, err
}

const findAddressForUser = `-- name: FindAddressForUser :one
SELECT id, user_id, line, city, postal_code, created_at
FROM addresses
WHERE id = $1
  AND user_id = $2
`

type FindAddressForUserParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) FindAddressForUser(ctx context.Context, arg FindAddressForUserParams) (Address, error) {
	row := q.db.QueryRow(ctx, findAddressForUser, arg.ID, arg.UserID)
	var i Address
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Line,
		&i.City,
		&i.PostalCode,
		&i.CreatedAt,
	)
	return i, err
}
