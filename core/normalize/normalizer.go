// Package normalize implements the core.Normalizer interface.
// It turns a course description's HTML into Markdown so links to other
// courses survive in the record instead of collapsing into plain text.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// lineBreaks matches any run of line breaks; records are single-line fields.
var lineBreaks = regexp.MustCompile(`\s*\n+\s*`)

// MarkdownNormalizer converts HTML fragments to single-line Markdown.
type MarkdownNormalizer struct {
	domain string
}

// New creates a MarkdownNormalizer. Relative links are made absolute
// against domain (e.g. the catalog base URL); empty leaves them as-is.
func New(domain string) *MarkdownNormalizer {
	return &MarkdownNormalizer{domain: domain}
}

// Normalize converts an HTML fragment into Markdown on a single line.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if n.domain != "" {
		opts = append(opts, converter.WithDomain(n.domain))
	}

	markdown, err := htmltomarkdown.ConvertString(html, opts...)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return lineBreaks.ReplaceAllString(strings.TrimSpace(markdown), " "), nil
}
