package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrorClassifier reports whether err is worth another attempt.
type ErrorClassifier func(error) bool

// Policy bounds every call to an external dependency: each attempt gets its own timeout and
// transient failures are retried until Attempts is reached.
type Policy struct {
	Attempts    int
	Timeout     time.Duration
	Backoff     time.Duration
	IsRetryable ErrorClassifier
}

// Default retries once with a five second budget per attempt.
func Default() Policy {
	return Policy{
		Attempts:    2,
		Timeout:     5 * time.Second,
		Backoff:     100 * time.Millisecond,
		IsRetryable: IsTransient,
	}
}

// Do runs fn under the policy. The returned error is a *TransientError when every attempt failed transiently.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)
	classify := p.IsRetryable
	if classify == nil {
		classify = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := attemptOnce(ctx, p.Timeout, fn)
		if err == nil {
			if attempt > 1 {
				log.Debug().Str("operation", op).Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return result, nil
		}
		lastErr = err

		// The caller gave up; another attempt cannot help.
		if ctx.Err() != nil {
			return zero, err
		}
		if !classify(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		log.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("transient failure, retrying")
		metrics.Retries.WithLabelValues(op).Inc()

		select {
		case <-ctx.Done():
			return zero, err
		case <-time.After(p.Backoff):
		}
	}

	var transient *apperrors.TransientError
	if errors.As(lastErr, &transient) {
		return zero, lastErr
	}
	return zero, apperrors.Transient(op, lastErr)
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// IsTransient classifies network level failures and explicit TransientErrors as retryable.
// Validation and authentication rejections never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *apperrors.TransientError
	if errors.As(err, &transient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
