package fetch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/fetch"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

type fetchFunc func(ctx context.Context, url string) (*core.FetchResult, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	return f(ctx, url)
}

var fastRetry = fetch.RetryOptions{
	Timeout:        time.Second,
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
}

func TestRetryFetcher_RecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	next := fetchFunc(func(_ context.Context, url string) (*core.FetchResult, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return &core.FetchResult{URL: url, StatusCode: 200, HTML: "<p>ok</p>"}, nil
	})

	res, err := fetch.NewRetryFetcher(next, fastRetry, logger.NewNop()).Fetch(context.Background(), "https://example.edu/a")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", res.HTML)
	assert.Equal(t, 3, calls)
}

func TestRetryFetcher_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	next := fetchFunc(func(_ context.Context, _ string) (*core.FetchResult, error) {
		calls++
		return nil, errors.New("i/o timeout")
	})

	_, err := fetch.NewRetryFetcher(next, fastRetry, logger.NewNop()).Fetch(context.Background(), "https://example.edu/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetchFailed)
	assert.Equal(t, 3, calls)
}

func TestRetryFetcher_PermanentStatusNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	next := fetchFunc(func(_ context.Context, url string) (*core.FetchResult, error) {
		calls++
		return nil, &fetch.StatusError{URL: url, StatusCode: 404}
	})

	_, err := fetch.NewRetryFetcher(next, fastRetry, logger.NewNop()).Fetch(context.Background(), "https://example.edu/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetchFailed)
	assert.Equal(t, 1, calls)
}

func TestRetryFetcher_AttemptTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	opts := fastRetry
	opts.Timeout = 10 * time.Millisecond

	calls := 0
	next := fetchFunc(func(ctx context.Context, url string) (*core.FetchResult, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &core.FetchResult{URL: url, StatusCode: 200}, nil
	})

	_, err := fetch.NewRetryFetcher(next, opts, logger.NewNop()).Fetch(context.Background(), "https://example.edu/slow")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
