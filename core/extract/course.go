// Package extract parses catalog pages: link discovery on listing pages
// and field extraction on course-detail pages.
//
// Selectors are compiled once with cascadia. Every course field has its own
// FieldExtractor that returns either a value or the field's sentinel, so a
// layout change around one field cannot disturb the others.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

var (
	anchorSel  = cascadia.MustCompile("a[href]")
	headingSel = cascadia.MustCompile("h2#title-designator")
	codeSel    = cascadia.MustCompile("small")
	descSel    = cascadia.MustCompile("p#c-desc")
	termSel    = cascadia.MustCompile("dl.row > dt.col-sm-4")
)

// Label keywords, in the order a label is tested against them.
const (
	KeywordTransferability = "transferability"
	KeywordPrerequisite    = "prerequisite"
	KeywordAdvisory        = "advisory"
)

var labelKeywords = []string{KeywordTransferability, KeywordPrerequisite, KeywordAdvisory}

// MatchPolicy decides which pair wins when several labels carry the same keyword.
type MatchPolicy int

const (
	// FirstMatch keeps the first matching pair in document order.
	FirstMatch MatchPolicy = iota
	// LastMatch keeps the last one.
	LastMatch
)

// FieldExtractor returns one field's value from a parsed course page, or
// that field's sentinel when the source element is missing.
type FieldExtractor func(doc *goquery.Document) string

type binding struct {
	extract FieldExtractor
	assign  func(rec *core.CourseRecord, v string)
}

// CourseExtractor implements core.CourseExtractor.
type CourseExtractor struct {
	fields []binding
}

// Option configures a CourseExtractor.
type Option func(*options)

type options struct {
	policy     MatchPolicy
	normalizer core.Normalizer
}

// WithMatchPolicy sets the duplicate-label policy. Default FirstMatch.
func WithMatchPolicy(p MatchPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithMarkdownDescription renders the description paragraph through n
// instead of taking its plain text.
func WithMarkdownDescription(n core.Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// New creates a CourseExtractor.
func New(opts ...Option) *CourseExtractor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	desc := Description
	if o.normalizer != nil {
		desc = MarkdownDescription(o.normalizer)
	}

	return &CourseExtractor{fields: []binding{
		{Code, func(r *core.CourseRecord, v string) { r.Code = v }},
		{Title, func(r *core.CourseRecord, v string) { r.Title = v }},
		{desc, func(r *core.CourseRecord, v string) { r.Description = v }},
		{Labeled(KeywordTransferability, o.policy), func(r *core.CourseRecord, v string) { r.Transferability = v }},
		{Labeled(KeywordPrerequisite, o.policy), func(r *core.CourseRecord, v string) { r.Prerequisites = v }},
		{Labeled(KeywordAdvisory, o.policy), func(r *core.CourseRecord, v string) { r.Advisories = v }},
	}}
}

// Extract parses a course-detail page. SourceURL is left for the caller.
// Missing elements never produce an error, only sentinels.
func (e *CourseExtractor) Extract(page string) (core.CourseRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return core.CourseRecord{}, fmt.Errorf("parsing HTML: %w", err)
	}

	rec := core.EmptyRecord("")
	for _, f := range e.fields {
		f.assign(&rec, f.extract(doc))
	}
	return rec, nil
}

// Code returns the text of the <small> inside the title heading.
func Code(doc *goquery.Document) string {
	small := doc.FindMatcher(headingSel).First().FindMatcher(codeSel).First()
	if small.Length() == 0 {
		return core.NotAvailable
	}
	return orSentinel(collapse(small.Text()), core.NotAvailable)
}

// Title returns the second "|"-separated segment of the heading's text,
// which follows the course code.
func Title(doc *goquery.Document) string {
	heading := doc.FindMatcher(headingSel).First()
	if heading.Length() == 0 {
		return core.NotAvailable
	}
	segments := strings.Split(strings.Join(textNodes(heading), "|"), "|")
	if len(segments) < 2 {
		return core.NotAvailable
	}
	return orSentinel(strings.TrimSpace(segments[1]), core.NotAvailable)
}

// Description returns the plain text of the description paragraph.
func Description(doc *goquery.Document) string {
	p := doc.FindMatcher(descSel).First()
	if p.Length() == 0 {
		return core.None
	}
	return orSentinel(strings.Join(textNodes(p), " "), core.None)
}

// MarkdownDescription returns a FieldExtractor that converts the description
// paragraph to Markdown, falling back to plain text if conversion fails.
func MarkdownDescription(n core.Normalizer) FieldExtractor {
	return func(doc *goquery.Document) string {
		p := doc.FindMatcher(descSel).First()
		if p.Length() == 0 {
			return core.None
		}
		inner, err := p.Html()
		if err != nil {
			return Description(doc)
		}
		md, err := n.Normalize(inner)
		if err != nil {
			return Description(doc)
		}
		return orSentinel(strings.TrimSpace(md), core.None)
	}
}

// Labeled returns a FieldExtractor for the definition-list pair whose label
// contains keyword. A label is claimed by the first of labelKeywords it
// contains, so "Prerequisite/Advisory" only counts as a prerequisite.
func Labeled(keyword string, policy MatchPolicy) FieldExtractor {
	return func(doc *goquery.Document) string {
		value := core.None
		found := false

		doc.FindMatcher(termSel).EachWithBreak(func(_ int, dt *goquery.Selection) bool {
			if claimedKeyword(strings.ToLower(strings.Join(textNodes(dt), " "))) != keyword {
				return true
			}
			dd := dt.NextAllFiltered("dd").First()
			if dd.Length() == 0 {
				return true
			}
			value = orSentinel(strings.Join(textNodes(dd), " "), core.None)
			found = true
			return policy == LastMatch
		})

		if !found {
			return core.None
		}
		return value
	}
}

func claimedKeyword(label string) string {
	for _, kw := range labelKeywords {
		if strings.Contains(label, kw) {
			return kw
		}
	}
	return ""
}

// textNodes returns the non-empty text nodes under s with whitespace runs,
// line breaks included, collapsed to single spaces.
func textNodes(s *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := collapse(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}
