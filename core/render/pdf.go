package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

var (
	boldMarkers = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdLinks     = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	autoLinks   = regexp.MustCompile(`<(https?://[^>]+)>`)
)

// PDFRenderer prints the Markdown catalog as an A4 PDF.
type PDFRenderer struct {
	markdown *MarkdownRenderer
}

// NewPDFRenderer creates a PDFRenderer with the given document title.
func NewPDFRenderer(title string) *PDFRenderer {
	return &PDFRenderer{markdown: NewMarkdownRenderer(title)}
}

// Render lays out one block per course: heading, description, then the
// labeled fields as bullets.
func (r *PDFRenderer) Render(records []core.CourseRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// The core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(r.markdown.markdown(records), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(2)
		case strings.HasPrefix(trimmed, "# "):
			pdf.SetFont("Helvetica", "B", 18)
			pdf.MultiCell(0, 8, tr(trimmed[2:]), "", "L", false)
			pdf.Ln(4)
		case strings.HasPrefix(trimmed, "## "):
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.MultiCell(0, 7, tr(trimmed[3:]), "", "L", false)
		case strings.HasPrefix(trimmed, "- "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr("- "+plainText(trimmed[2:])), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(plainText(trimmed)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// plainText strips the inline Markdown the catalog renderer emits.
func plainText(text string) string {
	text = boldMarkers.ReplaceAllString(text, "$1")
	text = mdLinks.ReplaceAllString(text, "$1")
	text = autoLinks.ReplaceAllString(text, "$1")
	return text
}
