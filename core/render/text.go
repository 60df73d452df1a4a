// Package render converts course records into their persisted and
// exported forms: the fixed seven-line text layout of the records file,
// JSON, Markdown and PDF.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

// Delimiter closes every record in the text layout.
var Delimiter = strings.Repeat("=", 60)

// Labels of the text layout, in order.
const (
	LabelURL             = "URL: "
	LabelCode            = "Course Code: "
	LabelTitle           = "Course Title: "
	LabelDescription     = "Description: "
	LabelTransferability = "Transferability: "
	LabelPrerequisites   = "Prerequisite(s): "
	LabelAdvisories      = "Advisory(ies): "
)

// lineBreaks flattens values so each field stays on its own line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// FormatRecord renders rec as seven labeled lines plus the delimiter line.
// Line breaks inside a value are written as spaces.
func FormatRecord(rec core.CourseRecord) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label + lineBreaks.Replace(value) + "\n")
	}
	line(LabelURL, rec.SourceURL)
	line(LabelCode, rec.Code)
	line(LabelTitle, rec.Title)
	line(LabelDescription, rec.Description)
	line(LabelTransferability, rec.Transferability)
	line(LabelPrerequisites, rec.Prerequisites)
	line(LabelAdvisories, rec.Advisories)
	b.WriteString(Delimiter + "\n")
	return b.String()
}

// TextRenderer renders records in the records-file layout.
type TextRenderer struct{}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render concatenates FormatRecord for every record.
func (r *TextRenderer) Render(records []core.CourseRecord) ([]byte, error) {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(FormatRecord(rec))
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for text output.
func (r *TextRenderer) Extension() string {
	return ".txt"
}

// ParseRecords reads a records file back into records. Blank lines are
// skipped; a trailing record without its delimiter is still returned.
func ParseRecords(in io.Reader) ([]core.CourseRecord, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	fields := []struct {
		label string
		set   func(*core.CourseRecord, string)
	}{
		{LabelURL, func(r *core.CourseRecord, v string) { r.SourceURL = v }},
		{LabelCode, func(r *core.CourseRecord, v string) { r.Code = v }},
		{LabelTitle, func(r *core.CourseRecord, v string) { r.Title = v }},
		{LabelDescription, func(r *core.CourseRecord, v string) { r.Description = v }},
		{LabelTransferability, func(r *core.CourseRecord, v string) { r.Transferability = v }},
		{LabelPrerequisites, func(r *core.CourseRecord, v string) { r.Prerequisites = v }},
		{LabelAdvisories, func(r *core.CourseRecord, v string) { r.Advisories = v }},
	}

	var (
		records []core.CourseRecord
		current *core.CourseRecord
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == Delimiter {
			if current != nil {
				records = append(records, *current)
				current = nil
			}
			continue
		}

		matched := false
		for _, f := range fields {
			// Labels are matched without their trailing space so an empty
			// value ("Description:") still parses.
			label := strings.TrimSuffix(f.label, " ")
			if !strings.HasPrefix(line, label) {
				continue
			}
			if current == nil {
				if f.label != LabelURL {
					return nil, fmt.Errorf("line %d: record must start with %q", lineNo, strings.TrimSpace(LabelURL))
				}
				rec := core.EmptyRecord("")
				current = &rec
			}
			f.set(current, strings.TrimSpace(strings.TrimPrefix(line, label)))
			matched = true
			break
		}
		if !matched {
			return nil, fmt.Errorf("line %d: unrecognized line %q", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	if current != nil {
		records = append(records, *current)
	}
	return records, nil
}
