package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds how often a failed model call is repeated.
// Only IsTransient failures are retried.
type RetryPolicy struct {
	Retries int
	Backoff time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	base := time.Duration(attempt) * p.Backoff
	return base + time.Duration(rand.Int64N(int64(base/4)+1))
}

// Retry runs fn, repeating it after a transient failure while ctx is live.
func Retry[T any](ctx context.Context, policy RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		if attempt > 0 {
			wait := policy.delay(attempt)
			log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("backoff", wait).Msg("retrying after transient failure")
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		var out T
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if !IsTransient(err) {
			return zero, err
		}
	}
	return zero, err
}
