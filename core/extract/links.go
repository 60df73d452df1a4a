package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

// ExtractLinks returns the hrefs of all a[href] elements that p keeps, in
// document order and without repeats. base, the catalog base URL, is
// handed to the predicate for resolution. Hrefs the predicate rejects, malformed ones included, are dropped.
func ExtractLinks(html string, base string, p core.LinkPredicate) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	seen := make(map[string]bool)
	var links []string

	doc.FindMatcher(anchorSel).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := p.Match(href, base)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

// PrefixPredicate keeps raw hrefs that start with Prefix and turns them
// into Base+href. The href is concatenated, not URL-joined, because the
// catalog emits edition-relative paths like "2024-2025/course/cis-22a".
type PrefixPredicate struct {
	Prefix string
	Base   string
}

// Match implements core.LinkPredicate.
func (p PrefixPredicate) Match(href, _ string) (string, bool) {
	if p.Prefix == "" || !strings.HasPrefix(href, p.Prefix) {
		return "", false
	}
	return p.Base + href, true
}

// SubstringPredicate resolves href against the base URL and keeps the
// absolute result when it contains Substring.
type SubstringPredicate struct {
	Substring string
}

// Match implements core.LinkPredicate.
func (p SubstringPredicate) Match(href, base string) (string, bool) {
	abs, ok := resolve(href, base)
	if !ok || !strings.Contains(abs, p.Substring) {
		return "", false
	}
	return abs, true
}

// resolve joins href onto base per RFC 3986. Fragments are kept.
func resolve(href, base string) (string, bool) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	return baseURL.ResolveReference(ref).String(), true
}
