package extract

import (
	"errors"
	"reflect"
	"testing"
)

const cleanArray = `[{"title":"A","fair_value":0.7,"confidence":85},{"title":"B","fair_value":0.2,"confidence":40}]`

func TestExtractDecorationTolerance(t *testing.T) {
	want, err := SpanExtractor{}.Extract(cleanArray)
	if err != nil {
		t.Fatalf("clean input failed: %v", err)
	}
	if len(want) != 2 {
		t.Fatalf("got %d records, want 2", len(want))
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + cleanArray + "\n```"},
		{"upper case fence", "```JSON\n" + cleanArray + "\n```"},
		{"bare fence", "```\n" + cleanArray + "\n```"},
		{"prose around", "Here are the picks:\n" + cleanArray + "\nLet me know if you need more."},
		{"prose and fence", "Sure!\n```json\n" + cleanArray + "\n```\nDone."},
		{"whitespace", "\n\n   " + cleanArray + "   \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpanExtractor{}.Extract(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestExtractIdempotentOnClean(t *testing.T) {
	first, err := SpanExtractor{}.Extract(cleanArray)
	if err != nil {
		t.Fatal(err)
	}
	second, err := SpanExtractor{}.Extract(cleanArray)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not stable: %v vs %v", first, second)
	}
	if first[0]["title"] != "A" || first[0]["fair_value"] != 0.7 {
		t.Errorf("unexpected first record %v", first[0])
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no brackets", "I cannot help with that."},
		{"only opening", `[{"title":"A"`},
		{"inverted span", `] nothing here [`},
		{"truncated mid object", `[{"title":"A","fair_value":0.7},{"title":"B"]`},
		{"not json inside", `[this is not json]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SpanExtractor{}.Extract(tt.raw)
			if !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("expected ErrMalformedOutput, got %v", err)
			}
		})
	}
}

func TestExtractSkipsNonObjects(t *testing.T) {
	got, err := SpanExtractor{}.Extract(`[1, "two", null, {"title":"ok"}, [3]]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["title"] != "ok" {
		t.Errorf("got %v", got)
	}
}

func TestExtractEmptyArray(t *testing.T) {
	got, err := SpanExtractor{}.Extract("```json\n[]\n```")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}
