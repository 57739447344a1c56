package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn up to cfg.MaxAttempts times with exponential backoff between attempts.
// It stops early on success, on a Permanent error, or when ctx is done, and returns the last error.
func Retry(ctx context.Context, cfg config.RetryConfig, fn func(ctx context.Context) error) error {
	backoff := retry.BackoffExponential(cfg.InitialBackoff)
	var err error
	for attempt := uint(1); attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		timer := time.NewTimer(backoff(ctx, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
