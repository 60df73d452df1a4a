package crawl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/extract"
	"github.com/gaurav-prasanna/coursecrawl/core/output"
	"github.com/gaurav-prasanna/coursecrawl/core/render"
	"github.com/gaurav-prasanna/coursecrawl/crawl"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.Join(core.ErrFetchFailed, errors.New("navigation failed"))
	}
	return &core.FetchResult{URL: url, StatusCode: 200, HTML: html}, nil
}

type denyGate struct{ deny string }

func (g denyGate) Allowed(_ context.Context, url string) (bool, error) {
	return url != g.deny, nil
}

func coursePage(code, title string) string {
	return `<h2 id="title-designator"><small>` + code + `</small>` + title + `</h2><p id="c-desc">About ` + code + `.</p>`
}

func TestDetailStage_IsolatesFetchFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	recordsPath := filepath.Join(dir, "finalclassdata.txt")
	failuresPath := filepath.Join(dir, "failed.txt")

	urls := []string{"https://c/course/1", "https://c/course/2", "https://c/course/3"}
	fetcher := &fakeFetcher{pages: map[string]string{
		urls[0]: coursePage("CIS 1", "One"),
		urls[2]: coursePage("CIS 3", "Three"),
	}}

	sink, err := output.OpenTextSink(recordsPath)
	require.NoError(t, err)
	failures, err := output.OpenFailureLog(failuresPath)
	require.NoError(t, err)

	stage := &crawl.DetailStage{
		Driver:    &crawl.Driver{Fetcher: fetcher, Failures: failures, Log: logger.NewNop()},
		Extractor: extract.New(),
		Sink:      sink,
	}

	res, err := stage.Run(context.Background(), urls)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.NoError(t, failures.Close())

	assert.Equal(t, urls, fetcher.calls, "the batch continues past the failure")
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, urls[1], res.Failed[0].URL)
	assert.ErrorIs(t, res.Failed[0].Err, core.ErrFetchFailed)

	f, err := os.Open(recordsPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := render.ParseRecords(f)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, urls[0], records[0].SourceURL)
	assert.Equal(t, "CIS 1", records[0].Code)
	assert.Equal(t, "Three", records[1].Title)
	assert.Equal(t, "About CIS 3.", records[1].Description)

	failed, err := os.ReadFile(failuresPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(failed), urls[1]+"\t"))
}

func TestDetailStage_MultiLineFieldsRoundTrip(t *testing.T) {
	t.Parallel()

	url := "https://c/course/cis-22b"
	page := "<h2 id=\"title-designator\"><small>CIS 22B</small>Intermediate Programming</h2>\n" +
		"<p id=\"c-desc\">Fundamentals of programming\n    in Python.</p>\n" +
		"<dl class=\"row\"><dt class=\"col-sm-4\">Prerequisite(s)</dt>\n" +
		"<dd class=\"col-sm-8\">CIS 22A or\n  equivalent</dd></dl>"

	recordsPath := filepath.Join(t.TempDir(), "finalclassdata.txt")
	sink, err := output.OpenTextSink(recordsPath)
	require.NoError(t, err)

	stage := &crawl.DetailStage{
		Driver:    &crawl.Driver{Fetcher: &fakeFetcher{pages: map[string]string{url: page}}},
		Extractor: extract.New(),
		Sink:      sink,
	}
	res, err := stage.Run(context.Background(), []string{url})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, 1, res.Succeeded)

	f, err := os.Open(recordsPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := render.ParseRecords(f)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, url, records[0].SourceURL)
	assert.Equal(t, "Fundamentals of programming in Python.", records[0].Description)
	assert.Equal(t, "CIS 22A or equivalent", records[0].Prerequisites)
}

func TestDriver_RobotsSkip(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{"https://c/a": "", "https://c/b": ""}}
	d := &crawl.Driver{Fetcher: fetcher, Robots: denyGate{deny: "https://c/a"}}

	handled := 0
	res, err := d.Run(context.Background(), []string{"https://c/a", "https://c/b"},
		func(context.Context, string, *core.FetchResult) error { handled++; return nil })
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"https://c/b"}, fetcher.calls)
}

func TestDriver_AbortOnStoreError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{"https://c/a": "", "https://c/b": ""}}
	d := &crawl.Driver{Fetcher: fetcher}

	storeErr := errors.New("disk full")
	res, err := d.Run(context.Background(), []string{"https://c/a", "https://c/b"},
		func(context.Context, string, *core.FetchResult) error {
			return errors.Join(crawl.ErrAbortBatch, storeErr)
		})

	assert.ErrorIs(t, err, crawl.ErrAbortBatch)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, []string{"https://c/a"}, fetcher.calls)
	assert.Equal(t, 0, res.Succeeded)
}

func TestDriver_HonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{pages: map[string]string{"https://c/a": "", "https://c/b": ""}}
	d := &crawl.Driver{Fetcher: fetcher, Limiter: crawl.NewLimiter(0)}

	res, err := d.Run(ctx, []string{"https://c/a", "https://c/b"},
		func(context.Context, string, *core.FetchResult) error { cancel(); return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []string{"https://c/a"}, fetcher.calls)
}

func TestLinkStage_AppendsDiscoveredLinks(t *testing.T) {
	t.Parallel()

	base := "https://deanza.elumenapp.com/catalog/"
	listing := base + "2024-2025/cis-courses"
	fetcher := &fakeFetcher{pages: map[string]string{
		listing: `<a href="2024-2025/course/cis-22a">A</a><a href="2024-2025/course/cis-22b">B</a><a href="about">x</a>`,
	}}

	store := crawl.LinkStore{Path: filepath.Join(t.TempDir(), "classlist.txt")}
	require.NoError(t, store.Append([]string{base + "2024-2025/course/cis-22a"}))

	stage := &crawl.LinkStage{
		Driver:    &crawl.Driver{Fetcher: fetcher, Log: logger.NewNop()},
		Base:      base,
		Predicate: extract.PrefixPredicate{Prefix: "2024-2025/course/", Base: base},
		Store:     store,
	}

	res, err := stage.Run(context.Background(), []string{listing, base + "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Len(t, res.Failed, 1)

	links, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "2024-2025/course/cis-22a",
		base + "2024-2025/course/cis-22a",
		base + "2024-2025/course/cis-22b",
	}, links, "append-merge leaves duplicates for the dedup pass")
}
