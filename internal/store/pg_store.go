package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	uniqueViolation      = "23505"
)

const defaultMaxTxAttempts = 10

type PgStore struct {
	db            *pgxpool.Pool
	q             *db.Queries
	maxTxAttempts int
}

var (
	_ UserStore    = (*PgStore)(nil)
	_ CartStore    = (*PgStore)(nil)
	_ OrderStore   = (*PgStore)(nil)
	_ PaymentStore = (*PgStore)(nil)
)

// NewPgStore creates a store backed by a PostgreSQL connection pool.
// maxTxAttempts bounds how often a serializable transaction is re-run after a
// serialization failure; values below 1 fall back to the default.
func NewPgStore(dbp *pgxpool.Pool, maxTxAttempts int) *PgStore {
	if maxTxAttempts < 1 {
		maxTxAttempts = defaultMaxTxAttempts
	}
	return &PgStore{
		db:            dbp,
		q:             db.New(dbp),
		maxTxAttempts: maxTxAttempts,
	}
}

func (p *PgStore) FindUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	u, err := p.q.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &u, nil
}

func (p *PgStore) FindUserByUsername(ctx context.Context, username string) (*db.User, error) {
	u, err := p.q.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &u, nil
}

func (p *PgStore) withTransaction(ctx context.Context, opts pgx.TxOptions, fn func(qtx *db.Queries) error) error {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransactionBegin, err)
	}
	qtx := p.q.WithTx(tx)

	err = fn(qtx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w", apperrors.ErrTransactionRollback, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransactionCommit, err)
	}

	return nil
}

// withSerializableTransaction runs fn under SERIALIZABLE isolation and re-runs it
// when PostgreSQL aborts the transaction with a serialization failure or deadlock.
func (p *PgStore) withSerializableTransaction(ctx context.Context, fn func(qtx *db.Queries) error) error {
	var err error
	for attempt := 1; attempt <= p.maxTxAttempts; attempt++ {
		err = p.withTransaction(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if !isRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}

// retryDelay spreads competing retries apart so they do not collide again.
func retryDelay(attempt int) time.Duration {
	base := time.Duration(attempt) * 5 * time.Millisecond
	return base + rand.N(base)
}
