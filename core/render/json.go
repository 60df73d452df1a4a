package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/coursecrawl/core"
)

// Catalog is the JSON export document.
type Catalog struct {
	Count   int                 `json:"count"`
	Courses []core.CourseRecord `json:"courses"`
}

// JSONRenderer produces the JSON export consumed by downstream adapters.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the records as an indented Catalog document.
func (r *JSONRenderer) Render(records []core.CourseRecord) ([]byte, error) {
	if records == nil {
		records = []core.CourseRecord{}
	}
	data, err := json.MarshalIndent(Catalog{Count: len(records), Courses: records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
