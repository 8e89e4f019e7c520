// Package extract pulls the structured candidate list out of free-form oracle text.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when no JSON array can be recovered
var ErrMalformedOutput = errors.New("malformed oracle output")

// Record is one decoded candidate object, before validation
type Record map[string]any

// Extractor turns raw oracle text into records
type Extractor interface {
	Extract(raw string) ([]Record, error)
}

// fenceMarkers are stripped in order; the bare fence must come last
var fenceMarkers = []string{"```json", "```JSON", "```"}

// SpanExtractor strips code fences, takes the text between the first '[' and
// the last ']' and decodes it as a JSON array. Non-object elements are skipped.
type SpanExtractor struct{}

var _ Extractor = SpanExtractor{}

// Extract implements Extractor
func (SpanExtractor) Extract(raw string) ([]Record, error) {
	text := raw
	for _, marker := range fenceMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedOutput)
	}

	var items []any
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, Record(obj))
	}
	return records, nil
}
