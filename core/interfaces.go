// Package core defines the shared types and stage interfaces for the
// course catalog pipeline. Each stage is a small, testable interface;
// stages exchange data only through the persisted stores.
package core

import (
	"context"
	"errors"
)

// Sentinel values written when an expected page element is absent.
const (
	NotAvailable = "N/A"
	None         = "None"
)

// ErrFetchFailed marks a fetch that failed after all retry attempts.
var ErrFetchFailed = errors.New("fetch failed")

// ErrDisallowed marks a URL that robots.txt does not allow us to visit.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetchResult holds the rendered HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// CourseRecord is one extracted course-detail page.
// Fields whose source element is missing hold NotAvailable or None, never "".
type CourseRecord struct {
	SourceURL       string `json:"url"`
	Code            string `json:"code"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Transferability string `json:"transferability"`
	Prerequisites   string `json:"prerequisites"`
	Advisories      string `json:"advisories"`
}

// EmptyRecord returns a record for sourceURL with every field set to its sentinel.
func EmptyRecord(sourceURL string) CourseRecord {
	return CourseRecord{
		SourceURL:       sourceURL,
		Code:            NotAvailable,
		Title:           NotAvailable,
		Description:     None,
		Transferability: None,
		Prerequisites:   None,
		Advisories:      None,
	}
}

// Fetcher retrieves rendered HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// LinkPredicate decides whether a raw href found on a page is kept, and
// in which form. base is the catalog base URL that relative hrefs resolve
// against, not the URL of the page the href was found on.
type LinkPredicate interface {
	Match(href string, base string) (string, bool)
}

// CourseExtractor parses a single course-detail page.
type CourseExtractor interface {
	Extract(html string) (CourseRecord, error)
}

// Normalizer converts an HTML fragment into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// RecordSink persists course records in arrival order.
type RecordSink interface {
	Write(rec CourseRecord) error
}

// Renderer converts a list of course records into an export format.
type Renderer interface {
	Render(records []CourseRecord) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
