package render

import (
	"strings"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

// MarkdownRenderer lays records out as a Markdown course catalog,
// one second-level section per course.
type MarkdownRenderer struct {
	Title string
}

// NewMarkdownRenderer creates a MarkdownRenderer with the given document title.
func NewMarkdownRenderer(title string) *MarkdownRenderer {
	if title == "" {
		title = "Course Catalog"
	}
	return &MarkdownRenderer{Title: title}
}

// Render returns the catalog as Markdown bytes.
func (r *MarkdownRenderer) Render(records []core.CourseRecord) ([]byte, error) {
	return []byte(r.markdown(records)), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func (r *MarkdownRenderer) markdown(records []core.CourseRecord) string {
	var b strings.Builder
	b.WriteString("# " + r.Title + "\n\n")

	for _, rec := range records {
		b.WriteString("## " + rec.Code + ": " + rec.Title + "\n\n")
		b.WriteString(rec.Description + "\n\n")
		b.WriteString("- **Transferability:** " + rec.Transferability + "\n")
		b.WriteString("- **Prerequisite(s):** " + rec.Prerequisites + "\n")
		b.WriteString("- **Advisory(ies):** " + rec.Advisories + "\n")
		b.WriteString("- **Source:** <" + rec.SourceURL + ">\n\n")
	}
	return b.String()
}
