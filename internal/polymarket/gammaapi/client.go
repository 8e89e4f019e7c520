package gammaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/liamashdown/edgescan/internal/venue"
	"github.com/sirupsen/logrus"
)

const (
	eventURLPrefix = "https://polymarket.com/event/"
	referer        = "https://polymarket.com/"
)

// Client handles communication with the Polymarket Gamma API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

var _ venue.Adapter = (*Client)(nil)

// NewClient creates a new Gamma API client
func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Source implements venue.Adapter
func (c *Client) Source() market.Source {
	return market.SourcePolymarket
}

// ListActiveMarkets fetches the most traded open markets. Records that are
// not objects or fail to decode are skipped and counted in skipped.
func (c *Client) ListActiveMarkets(ctx context.Context, opts venue.FetchOptions) (markets []Market, skipped int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("gamma", "/markets", time.Since(start), err)
	}()

	u, err := url.Parse(c.baseURL + "/markets")
	if err != nil {
		return nil, 0, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "volume24hr")
	q.Set("ascending", "false")
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	u.RawQuery = q.Encode()

	opts = opts.WithDefaultHeader("Referer", referer)
	body, err := venue.Get(ctx, c.httpClient, u.String(), opts)
	if err != nil {
		return nil, 0, err
	}

	records, err := venue.DecodeRecords(body, "markets", "data")
	if err != nil {
		return nil, 0, err
	}

	markets = make([]Market, 0, len(records))
	for _, raw := range records {
		if !venue.IsObject(raw) {
			skipped++
			continue
		}
		var m Market
		if err := json.Unmarshal(raw, &m); err != nil {
			skipped++
			continue
		}
		markets = append(markets, m)
	}

	return markets, skipped, nil
}

// GetMarketBySlug fetches market details by slug
func (c *Client) GetMarketBySlug(ctx context.Context, slug string, opts venue.FetchOptions) (_ *Market, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("gamma", "/markets/slug", time.Since(start), err)
	}()

	opts = opts.WithDefaultHeader("Referer", referer)
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/markets/slug/"+url.PathEscape(slug), opts)
	if err != nil {
		return nil, err
	}

	// Response can be either a single market or an array of them
	if records, derr := venue.DecodeRecords(body, "markets", "data"); derr == nil {
		for _, raw := range records {
			var m Market
			if venue.IsObject(raw) && json.Unmarshal(raw, &m) == nil {
				return &m, nil
			}
		}
		return nil, fmt.Errorf("no market found for slug %s", slug)
	}

	var m Market
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &m, nil
}

// FetchListings implements venue.Adapter
func (c *Client) FetchListings(ctx context.Context, opts venue.FetchOptions) []market.Listing {
	markets, skipped, err := c.ListActiveMarkets(ctx, opts)
	metrics.RecordVenueFetch(string(market.SourcePolymarket), len(markets), err)
	if err != nil {
		c.log.WithError(err).WithField("venue", market.SourcePolymarket).Warn("Venue unavailable")
		return nil
	}

	listings := make([]market.Listing, 0, len(markets))
	for i := range markets {
		l, ok := toListing(&markets[i])
		if !ok {
			skipped++
			continue
		}
		listings = append(listings, l)
	}

	if skipped > 0 {
		metrics.VenueSkippedRecords.WithLabelValues(string(market.SourcePolymarket)).Add(float64(skipped))
	}

	c.log.WithFields(logrus.Fields{
		"venue":   market.SourcePolymarket,
		"count":   len(listings),
		"skipped": skipped,
	}).Info("Fetched listings")

	return listings
}

// LookupListing implements venue.Adapter using the market slug
func (c *Client) LookupListing(ctx context.Context, slug string, opts venue.FetchOptions) []market.Listing {
	m, err := c.GetMarketBySlug(ctx, slug, opts)
	metrics.RecordVenueFetch(string(market.SourcePolymarket), boolToInt(err == nil), err)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"venue": market.SourcePolymarket,
			"slug":  slug,
		}).Warn("Venue lookup failed")
		return nil
	}

	l, ok := toListing(m)
	if !ok {
		return nil
	}
	if l.Link == eventURLPrefix {
		l.Link = eventURLPrefix + slug
	}
	return []market.Listing{l}
}

func toListing(m *Market) (market.Listing, bool) {
	title := m.DisplayTitle()
	if title == "" {
		return market.Listing{}, false
	}
	return market.Listing{
		Source:       market.SourcePolymarket,
		Title:        title,
		CurrentPrice: market.ClampProbability(m.YesPrice()),
		Link:         eventURLPrefix + m.Slug,
	}, true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
