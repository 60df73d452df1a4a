package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

// ErrAbortBatch marks a handler error that must stop the whole batch,
// such as a failed write to the stage's output store.
var ErrAbortBatch = errors.New("batch aborted")

// Handler processes one fetched page.
type Handler func(ctx context.Context, url string, page *core.FetchResult) error

// RobotsGate decides whether a URL may be fetched.
type RobotsGate interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// FailureRecorder keeps failed URLs for a later retry run.
type FailureRecorder interface {
	Record(url string, cause error) error
}

// FailedItem is one URL the batch gave up on.
type FailedItem struct {
	URL string
	Err error
}

// BatchResult summarizes a driver run.
type BatchResult struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    []FailedItem
}

// Driver fetches URLs one at a time and hands each page to a Handler.
// A failing item is logged and recorded; it never stops the batch.
type Driver struct {
	Fetcher core.Fetcher
	// Limiter spaces requests; nil means no delay.
	Limiter *rate.Limiter
	// Robots, when set, skips disallowed URLs.
	Robots RobotsGate
	// Failures, when set, receives every failed item.
	Failures FailureRecorder
	Log      logger.Logger
}

// NewLimiter returns a limiter that allows one request per delay.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Run processes urls in order. It returns early only when ctx is done
// or a handler returns an error wrapping ErrAbortBatch; the partial
// result is returned in both cases.
func (d *Driver) Run(ctx context.Context, urls []string, handle Handler) (*BatchResult, error) {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}

	res := &BatchResult{Total: len(urls)}
	start := time.Now()

	for i, u := range urls {
		itemLog := log.With(logger.String("url", u))
		progress := fmt.Sprintf("[%d/%d]", i+1, len(urls))

		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				return res, d.interrupted(ctx, log, res, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return res, d.interrupted(ctx, log, res, err)
		}

		if d.Robots != nil {
			ok, err := d.Robots.Allowed(ctx, u)
			if err != nil {
				d.fail(itemLog, res, progress, u, fmt.Errorf("robots check: %w", err))
				continue
			}
			if !ok {
				res.Skipped++
				itemLog.Warn(progress+" skipped", logger.Error(core.ErrDisallowed))
				continue
			}
		}

		page, err := d.Fetcher.Fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return res, d.interrupted(ctx, log, res, ctx.Err())
			}
			d.fail(itemLog, res, progress, u, err)
			continue
		}

		if err := handle(ctx, u, page); err != nil {
			if errors.Is(err, ErrAbortBatch) {
				itemLog.Error(progress+" aborting batch", logger.Error(err))
				d.summarize(log, res, start)
				return res, err
			}
			d.fail(itemLog, res, progress, u, err)
			continue
		}

		res.Succeeded++
		itemLog.Info(progress + " done")
	}

	d.summarize(log, res, start)
	return res, nil
}

func (d *Driver) fail(log logger.Logger, res *BatchResult, progress, url string, err error) {
	res.Failed = append(res.Failed, FailedItem{URL: url, Err: err})
	log.Error(progress+" failed", logger.Error(err))

	if d.Failures == nil {
		return
	}
	if recErr := d.Failures.Record(url, err); recErr != nil {
		log.Error("could not record failure", logger.Error(recErr))
	}
}

func (d *Driver) interrupted(ctx context.Context, log logger.Logger, res *BatchResult, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	log.Warn("batch interrupted",
		logger.Int("processed", res.Succeeded+res.Skipped+len(res.Failed)),
		logger.Int("total", res.Total),
		logger.Error(err))
	return err
}

func (d *Driver) summarize(log logger.Logger, res *BatchResult, start time.Time) {
	log.Info("batch finished",
		logger.Int("total", res.Total),
		logger.Int("succeeded", res.Succeeded),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", len(res.Failed)),
		logger.Duration("elapsed", time.Since(start)))
}
