package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"messaging-service/internal/observability"
)

// RetryPolicy bounds retries of transient store reads.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// read runs fn until it succeeds, returns a permanent error or the policy is exhausted.
func (p RetryPolicy) read(ctx context.Context, operation string, fn func() error) error {
	return backoff.RetryNotify(fn, p.backOff(ctx), func(error, time.Duration) {
		observability.IncStoreReadRetry(operation)
	})
}
