package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

// RetryOptions configures RetryFetcher.
type RetryOptions struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// MaxAttempts includes the first attempt.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RetryFetcher decorates a Fetcher with a per-attempt timeout and
// exponential backoff between attempts. Errors returned after the last
// attempt wrap core.ErrFetchFailed.
type RetryFetcher struct {
	next core.Fetcher
	opts RetryOptions
	log  logger.Logger
}

// NewRetryFetcher wraps next.
func NewRetryFetcher(next core.Fetcher, opts RetryOptions, log logger.Logger) *RetryFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	return &RetryFetcher{next: next, opts: opts, log: log}
}

// Fetch calls the wrapped fetcher until it succeeds, a permanent error
// occurs, or the attempts are exhausted.
func (r *RetryFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	var (
		result   *core.FetchResult
		attempts int
	)

	op := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()

		res, err := r.next.Fetch(attemptCtx, url)
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn("fetch attempt failed, retrying",
			logger.String("url", url),
			logger.Int("attempt", attempts),
			logger.Duration("backoff", wait),
			logger.Error(err))
	}

	if err := backoff.RetryNotify(op, r.policy(ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %s after %d attempt(s): %w", core.ErrFetchFailed, url, attempts, err)
	}
	return result, nil
}

func (r *RetryFetcher) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialBackoff
	b.MaxInterval = r.opts.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.opts.MaxAttempts-1)), ctx)
}

// retryable reports whether err is worth another attempt. Timeouts of a
// single attempt are retried; cancellation of the batch is not.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
