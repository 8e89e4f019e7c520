package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		keys    []string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"a":1},{"a":2}]`, []string{"markets"}, 2, false},
		{"enveloped array", `{"markets":[{"a":1}],"cursor":"x"}`, []string{"markets"}, 1, false},
		{"second envelope key", `{"data":[{"a":1},{"a":2},{"a":3}]}`, []string{"markets", "data"}, 3, false},
		{"envelope key not an array", `{"markets":{"a":1},"data":[{"a":1}]}`, []string{"markets", "data"}, 1, false},
		{"leading whitespace", "\n  [ ]", nil, 0, false},
		{"envelope without array", `{"error":"nope"}`, []string{"markets"}, 0, true},
		{"scalar payload", `"hello"`, nil, 0, true},
		{"empty payload", ``, nil, 0, true},
		{"truncated array", `[{"a":1},`, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords([]byte(tt.body), tt.keys...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestNumberUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      float64
		wantValid bool
		wantErr   bool
	}{
		{"raw number", `0.45`, 0.45, true, false},
		{"quoted number", `"0.45"`, 0.45, true, false},
		{"integer", `45`, 45, true, false},
		{"null", `null`, 0, false, false},
		{"empty string", `""`, 0, false, false},
		{"garbage", `"abc"`, 0, false, true},
		{"quoted NaN", `"NaN"`, 0, false, true},
		{"quoted infinity", `"Infinity"`, 0, false, true},
		{"quoted negative inf", `"-Inf"`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.input), &n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if n.Valid != tt.wantValid || n.Value != tt.want {
				t.Errorf("got (%v, %v), want (%v, %v)", n.Value, n.Valid, tt.want, tt.wantValid)
			}
		})
	}
}

func TestIsObject(t *testing.T) {
	if !IsObject(json.RawMessage(` {"a":1}`)) {
		t.Error("expected object")
	}
	for _, raw := range []string{`[1]`, `"x"`, `42`, `null`, ``} {
		if IsObject(json.RawMessage(raw)) {
			t.Errorf("%q should not be an object", raw)
		}
	}
}

func TestGetSendsHeadersAndRejectsNon2xx(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	opts := FetchOptions{Timeout: time.Second, Headers: map[string]string{"User-Agent": "edgescan-test"}}

	body, err := Get(context.Background(), srv.Client(), srv.URL+"/ok", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `[]` {
		t.Errorf("body = %q", body)
	}
	if gotUA != "edgescan-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	if _, err := Get(context.Background(), srv.Client(), srv.URL+"/fail", opts); err == nil {
		t.Error("expected error for 403")
	}
}

func TestGetHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := Get(context.Background(), srv.Client(), srv.URL, FetchOptions{Timeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWithDefaultHeader(t *testing.T) {
	base := FetchOptions{Headers: map[string]string{"User-Agent": "ua"}}

	got := base.WithDefaultHeader("Referer", "https://example.com/")
	if got.Headers["Referer"] != "https://example.com/" || got.Headers["User-Agent"] != "ua" {
		t.Errorf("headers = %v", got.Headers)
	}
	if _, ok := base.Headers["Referer"]; ok {
		t.Error("original headers were mutated")
	}

	override := FetchOptions{Headers: map[string]string{"Referer": "custom"}}
	if got := override.WithDefaultHeader("Referer", "default"); got.Headers["Referer"] != "custom" {
		t.Errorf("caller header replaced: %v", got.Headers)
	}

	if got := (FetchOptions{}).WithDefaultHeader("Referer", "r"); got.Headers["Referer"] != "r" {
		t.Errorf("nil headers: %v", got.Headers)
	}
}
