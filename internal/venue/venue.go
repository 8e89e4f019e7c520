// Package venue defines the contract every market-data source implements and
// the decoding helpers they share.
package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/liamashdown/edgescan/internal/market"
)

// FetchOptions is supplied per call by the scanner
type FetchOptions struct {
	Limit   int
	Timeout time.Duration
	Headers map[string]string
}

// Adapter fetches listings from one venue. Implementations never return
// errors: any failure is logged and yields an empty slice.
type Adapter interface {
	Source() market.Source
	FetchListings(ctx context.Context, opts FetchOptions) []market.Listing
	// LookupListing returns at most one listing for a venue-native id (slug or ticker)
	LookupListing(ctx context.Context, id string, opts FetchOptions) []market.Listing
}

// WithDefaultHeader returns a copy of opts with key set, unless the caller
// already supplied it
func (o FetchOptions) WithDefaultHeader(key, value string) FetchOptions {
	if _, ok := o.Headers[key]; ok {
		return o
	}
	headers := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		headers[k] = v
	}
	headers[key] = value
	o.Headers = headers
	return o
}

// maxBodyBytes caps how much of a venue response is read
const maxBodyBytes = 8 << 20

// Get issues a GET bounded by opts.Timeout and returns the body of a 2xx response
func Get(ctx context.Context, client *http.Client, rawURL string, opts FetchOptions) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// DecodeRecords accepts either a bare JSON array or an object wrapping the
// array under one of envelopeKeys (tried in order).
func DecodeRecords(body []byte, envelopeKeys ...string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return records, nil

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		for _, key := range envelopeKeys {
			inner, ok := envelope[key]
			if !ok || !IsArray(inner) {
				continue
			}
			var records []json.RawMessage
			if err := json.Unmarshal(inner, &records); err != nil {
				return nil, fmt.Errorf("decode envelope %q: %w", key, err)
			}
			return records, nil
		}
		return nil, fmt.Errorf("no listing array under keys %v", envelopeKeys)
	}

	return nil, fmt.Errorf("unexpected payload starting with %q", trimmed[0])
}

// IsObject reports whether raw is a JSON object
func IsObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// IsArray reports whether raw is a JSON array
func IsArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Number decodes a JSON number that venues sometimes send quoted. Quoted
// NaN and infinities are rejected like any other non-number.
type Number struct {
	Value float64
	Valid bool
}

var _ json.Unmarshaler = (*Number)(nil)

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	if len(data) == 0 {
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", string(data), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("parse number %q: not finite", string(data))
	}
	n.Value = f
	n.Valid = true
	return nil
}
