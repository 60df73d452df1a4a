package crawl

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/extract"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

// LinkStage fetches pages, extracts the links Predicate keeps and appends
// them to Store. Listing discovery and course discovery are both LinkStages
// with different predicates.
type LinkStage struct {
	Driver *Driver
	// Base is the catalog base URL handed to Predicate.
	Base      string
	Predicate core.LinkPredicate
	Store     LinkStore
}

// Run processes pages in order. Links are appended page by page, so an
// interrupted run keeps what it found.
func (s *LinkStage) Run(ctx context.Context, pages []string) (*BatchResult, error) {
	found := 0
	res, err := s.Driver.Run(ctx, pages, func(_ context.Context, url string, page *core.FetchResult) error {
		links, err := extract.ExtractLinks(page.HTML, s.Base, s.Predicate)
		if err != nil {
			return fmt.Errorf("extracting links from %s: %w", url, err)
		}
		if err := s.Store.Append(links); err != nil {
			return fmt.Errorf("%w: %w", ErrAbortBatch, err)
		}
		found += len(links)
		s.logger().Debug("links appended", logger.String("url", url), logger.Int("links", len(links)))
		return nil
	})
	s.logger().Info("link stage finished", logger.Int("links_appended", found), logger.String("store", s.Store.Path))
	return res, err
}

func (s *LinkStage) logger() logger.Logger {
	if s.Driver.Log == nil {
		return logger.NewNop()
	}
	return s.Driver.Log
}

// DetailStage extracts a CourseRecord from every course page and appends
// it to Sink.
type DetailStage struct {
	Driver    *Driver
	Extractor core.CourseExtractor
	Sink      core.RecordSink
}

// Run processes course URLs in order.
func (s *DetailStage) Run(ctx context.Context, courses []string) (*BatchResult, error) {
	return s.Driver.Run(ctx, courses, func(_ context.Context, url string, page *core.FetchResult) error {
		rec, err := s.Extractor.Extract(page.HTML)
		if err != nil {
			return fmt.Errorf("extracting course from %s: %w", url, err)
		}
		rec.SourceURL = url

		if err := s.Sink.Write(rec); err != nil {
			return fmt.Errorf("%w: %w", ErrAbortBatch, err)
		}

		if s.Driver.Log != nil {
			s.Driver.Log.Info("course extracted",
				logger.String("url", url),
				logger.String("code", rec.Code),
				logger.String("title", rec.Title),
				logger.String("transferability", rec.Transferability),
				logger.String("prerequisites", rec.Prerequisites),
				logger.String("advisories", rec.Advisories))
		}
		return nil
	})
}
