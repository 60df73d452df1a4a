// Package crawl holds the link store, its deduplicate and canonicalize
// passes, and the sequential driver that runs each pipeline stage.
package crawl

import "strings"

// CanonicalRule identifies genuine course-listing links: the trimmed link
// ends with Suffix and does not contain Exclude.
type CanonicalRule struct {
	Suffix  string
	Exclude string
}

// Keep reports whether link satisfies the rule. Trailing slashes are not
// normalized, so ".../courses/" fails a "courses" suffix.
func (r CanonicalRule) Keep(link string) bool {
	link = strings.TrimSpace(link)
	if !strings.HasSuffix(link, r.Suffix) {
		return false
	}
	return r.Exclude == "" || !strings.Contains(link, r.Exclude)
}

// Dedup returns the trimmed links with later repeats and blank entries
// removed, keeping first-occurrence order.
func Dedup(links []string) []string {
	set := newLinkSet(len(links))
	for _, l := range links {
		set.Add(strings.TrimSpace(l))
	}
	return set.All()
}

// Canonicalize returns the trimmed links that satisfy rule, in order.
// The result is a subset of the input and applying it twice changes nothing.
func Canonicalize(links []string, rule CanonicalRule) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l != "" && rule.Keep(l) {
			out = append(out, l)
		}
	}
	return out
}
