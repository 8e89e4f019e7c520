// Package kalshi reads open markets from the Kalshi trading API.
package kalshi

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
	marketURLPrefix = "https://kalshi.com/markets/"
	referer         = "https://kalshi.com/"
)

// Client is the read-only REST client for Kalshi market listings.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

var _ venue.Adapter = (*Client)(nil)

// NewClient creates a new Kalshi client
func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Source implements venue.Adapter
func (c *Client) Source() market.Source {
	return market.SourceKalshi
}

// GetMarkets returns open markets. Records that are not objects or fail to
// decode are skipped and counted in skipped.
func (c *Client) GetMarkets(ctx context.Context, opts venue.FetchOptions) (markets []Market, skipped int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("kalshi", "/markets", time.Since(start), err)
	}()

	params := url.Values{}
	params.Set("status", "open")
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	opts = opts.WithDefaultHeader("Referer", referer)
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/markets?"+params.Encode(), opts)
	if err != nil {
		return nil, 0, fmt.Errorf("kalshi: get markets: %w", err)
	}

	records, err := venue.DecodeRecords(body, "markets", "data")
	if err != nil {
		return nil, 0, fmt.Errorf("kalshi: decode markets: %w", err)
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

// GetMarket returns a single market by its ticker
func (c *Client) GetMarket(ctx context.Context, ticker string, opts venue.FetchOptions) (_ *Market, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("kalshi", "/markets/ticker", time.Since(start), err)
	}()

	opts = opts.WithDefaultHeader("Referer", referer)
	body, err := venue.Get(ctx, c.httpClient, c.baseURL+"/markets/"+url.PathEscape(ticker), opts)
	if err != nil {
		return nil, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var envelope struct {
		Market *json.RawMessage `json:"market"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("kalshi: decode market: %w", err)
	}

	raw := json.RawMessage(body)
	if envelope.Market != nil {
		raw = *envelope.Market
	}
	if !venue.IsObject(raw) {
		return nil, fmt.Errorf("kalshi: market %s is not an object", ticker)
	}

	var m Market
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("kalshi: decode market: %w", err)
	}
	if m.Ticker == "" {
		m.Ticker = ticker
	}
	return &m, nil
}

// FetchListings implements venue.Adapter
func (c *Client) FetchListings(ctx context.Context, opts venue.FetchOptions) []market.Listing {
	markets, skipped, err := c.GetMarkets(ctx, opts)
	metrics.RecordVenueFetch(string(market.SourceKalshi), len(markets), err)
	if err != nil {
		c.log.WithError(err).WithField("venue", market.SourceKalshi).Warn("Venue unavailable")
		return nil
	}

	listings := make([]market.Listing, 0, len(markets))
	for i := range markets {
		listings = append(listings, toListing(&markets[i]))
	}

	if skipped > 0 {
		metrics.VenueSkippedRecords.WithLabelValues(string(market.SourceKalshi)).Add(float64(skipped))
	}

	c.log.WithFields(logrus.Fields{
		"venue":   market.SourceKalshi,
		"count":   len(listings),
		"skipped": skipped,
	}).Info("Fetched listings")

	return listings
}

// LookupListing implements venue.Adapter using the market ticker
func (c *Client) LookupListing(ctx context.Context, ticker string, opts venue.FetchOptions) []market.Listing {
	m, err := c.GetMarket(ctx, ticker, opts)
	if err != nil {
		metrics.RecordVenueFetch(string(market.SourceKalshi), 0, err)
		c.log.WithError(err).WithFields(logrus.Fields{
			"venue":  market.SourceKalshi,
			"ticker": ticker,
		}).Warn("Venue lookup failed")
		return nil
	}
	metrics.RecordVenueFetch(string(market.SourceKalshi), 1, nil)
	return []market.Listing{toListing(m)}
}

func toListing(m *Market) market.Listing {
	return market.Listing{
		Source:       market.SourceKalshi,
		Title:        m.DisplayTitle(),
		CurrentPrice: market.ClampProbability(m.YesProbability()),
		Link:         marketURLPrefix + m.Ticker,
	}
}
