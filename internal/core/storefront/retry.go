package storefront

import (
	"context"
	"time"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// RetryPolicy bounds automatic retries of idempotent backend calls.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry retries transport failures twice with a short linear backoff.
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempts are exhausted, or ctx is done. It returns op's last error.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil || !domain.Retryable(err) {
			return err
		}
		if i == attempts-1 || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Backoff * time.Duration(i+1)):
		}
	}
	return err
}
