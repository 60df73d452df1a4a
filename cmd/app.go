package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/coursecrawl/config"
	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/extract"
	"github.com/gaurav-prasanna/coursecrawl/core/fetch"
	"github.com/gaurav-prasanna/coursecrawl/core/normalize"
	"github.com/gaurav-prasanna/coursecrawl/core/output"
	"github.com/gaurav-prasanna/coursecrawl/crawl"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

// app carries what every command needs for one invocation.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	out   io.Writer
	runID string
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	runID := uuid.NewString()
	return &app{
		cfg:   cfg,
		log:   log.With(logger.String("run_id", runID), logger.String("command", cmd.Name())),
		out:   cmd.OutOrStdout(),
		runID: runID,
	}, nil
}

// session owns the fetcher for one batch. close must be called on every
// exit path; it shuts the browser down when the browser engine is used.
type session struct {
	fetcher  core.Fetcher
	robots   crawl.RobotsGate
	failures *output.FailureLog
	closers  []func() error
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	s := &session{}

	var base core.Fetcher
	switch a.cfg.Fetch.Engine {
	case config.EngineBrowser:
		b, err := fetch.NewBrowserFetcher(ctx, fetch.BrowserOptions{
			SettleDelay: a.cfg.Fetch.SettleDelay,
			Headless:    a.cfg.Fetch.Headless,
			UserAgent:   a.cfg.Fetch.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b.Close)
		base = b
	default:
		base = fetch.New(a.cfg.Fetch.UserAgent)
	}

	s.fetcher = fetch.NewRetryFetcher(base, fetch.RetryOptions{
		Timeout:        a.cfg.Fetch.Timeout,
		MaxAttempts:    a.cfg.Fetch.MaxAttempts,
		InitialBackoff: a.cfg.Fetch.InitialBackoff,
		MaxBackoff:     a.cfg.Fetch.MaxBackoff,
	}, a.log)

	if a.cfg.Fetch.RespectRobots {
		s.robots = fetch.NewRobotsChecker(&http.Client{Timeout: a.cfg.Fetch.Timeout}, a.cfg.Fetch.UserAgent)
	}

	failures, err := output.OpenFailureLog(a.cfg.Files.Failures)
	if err != nil {
		s.close()
		return nil, err
	}
	s.failures = failures
	s.closers = append(s.closers, failures.Close)

	a.log.Info("session opened",
		logger.String("engine", a.cfg.Fetch.Engine),
		logger.Duration("request_delay", a.cfg.Fetch.RequestDelay),
		logger.Duration("settle_delay", a.cfg.Fetch.SettleDelay))
	return s, nil
}

func (s *session) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (a *app) driver(s *session, stage string) *crawl.Driver {
	return &crawl.Driver{
		Fetcher:  s.fetcher,
		Limiter:  crawl.NewLimiter(a.cfg.Fetch.RequestDelay),
		Robots:   s.robots,
		Failures: s.failures,
		Log:      a.log.With(logger.String("stage", stage)),
	}
}

func (a *app) courseExtractor() *extract.CourseExtractor {
	var opts []extract.Option
	if a.cfg.Extract.MatchPolicy == config.MatchLast {
		opts = append(opts, extract.WithMatchPolicy(extract.LastMatch))
	}
	if a.cfg.Extract.DescriptionFormat == config.DescriptionMarkdown {
		opts = append(opts, extract.WithMarkdownDescription(normalize.New(a.cfg.Catalog.BaseURL)))
	}
	return extract.New(opts...)
}

func (a *app) canonicalRule() crawl.CanonicalRule {
	return crawl.CanonicalRule{
		Suffix:  a.cfg.Catalog.CanonicalSuffix,
		Exclude: a.cfg.Catalog.ExcludedSubstring,
	}
}

// seeds reads the seed file, falling back to catalog.listing_urls when
// the file does not exist.
func (a *app) seeds() ([]string, error) {
	urls, err := crawl.ReadURLs(a.cfg.Files.Seeds)
	if errors.Is(err, fs.ErrNotExist) {
		a.log.Info("seed file not found, using catalog.listing_urls", logger.String("path", a.cfg.Files.Seeds))
		return a.cfg.Catalog.ListingURLs, nil
	}
	return urls, err
}

// report prints the end-of-stage summary for the user.
func (a *app) report(stage string, res *crawl.BatchResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(a.out, "✓ %s: %d/%d succeeded, %d skipped, %d failed\n",
		stage, res.Succeeded, res.Total, res.Skipped, len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(a.out, "  ✗ %s: %v\n", f.URL, f.Err)
	}
}
