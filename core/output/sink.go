package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/render"
)

// TextSink appends records to the records file in the seven-line layout.
// Re-running extraction over the same URL appends a second record.
type TextSink struct {
	f *os.File
}

// OpenTextSink opens path for appending, creating it if needed.
func OpenTextSink(path string) (*TextSink, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &TextSink{f: f}, nil
}

// Write appends one record.
func (s *TextSink) Write(rec core.CourseRecord) error {
	if _, err := s.f.WriteString(render.FormatRecord(rec)); err != nil {
		return fmt.Errorf("appending record for %s: %w", rec.SourceURL, err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *TextSink) Close() error {
	return s.f.Close()
}

// FailureLog appends "<url>\t<error>" lines for items that could not be
// processed, so they can be retried later.
type FailureLog struct {
	f *os.File
}

// OpenFailureLog opens path for appending, creating it if needed.
func OpenFailureLog(path string) (*FailureLog, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &FailureLog{f: f}, nil
}

// Record appends a failure line. Newlines in the error are flattened.
func (l *FailureLog) Record(url string, cause error) error {
	msg := strings.NewReplacer("\n", " ", "\t", " ").Replace(cause.Error())
	if _, err := fmt.Fprintf(l.f, "%s\t%s\n", url, msg); err != nil {
		return fmt.Errorf("appending failure for %s: %w", url, err)
	}
	return nil
}

// Close closes the file.
func (l *FailureLog) Close() error {
	return l.f.Close()
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
