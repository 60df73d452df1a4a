package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

// BrowserOptions configures a BrowserFetcher.
type BrowserOptions struct {
	// SettleDelay is waited after navigation before the DOM is read.
	// The catalog exposes no render-complete signal, so this is a fixed sleep.
	SettleDelay time.Duration
	Headless    bool
	UserAgent   string
}

// BrowserFetcher renders pages in a single headless Chrome session.
// The session lives from NewBrowserFetcher until Close.
type BrowserFetcher struct {
	settle      time.Duration
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// NewBrowserFetcher starts the browser. Callers must Close it.
func NewBrowserFetcher(ctx context.Context, opts BrowserOptions) (*BrowserFetcher, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions launches the browser so startup errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &BrowserFetcher{
		settle:      opts.SettleDelay,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}, nil
}

// Fetch navigates to url, waits the settle delay and returns the rendered DOM.
// Cancellation and deadlines of ctx are honoured.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rendering %s: %w", url, ctxErr)
		}
		return nil, fmt.Errorf("rendering %s: %w", url, err)
	}

	return &core.FetchResult{URL: url, StatusCode: 200, HTML: html}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *BrowserFetcher) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		b.allocCancel()
	})
	return nil
}
