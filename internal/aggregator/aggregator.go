// Package aggregator merges venue listings into the batch handed to the oracle.
package aggregator

import (
	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultCeiling bounds the batch size when none is configured
const DefaultCeiling = 30

// Batch is the merged, bounded input to the scoring stage. Degraded is true
// when every venue came back empty and the fallback set was substituted.
type Batch struct {
	Listings []market.Listing
	Degraded bool
}

// fallbackListings is served when no venue returned anything
var fallbackListings = []market.Listing{
	{
		Source:       market.SourceFallback,
		Title:        "Will the Federal Reserve cut interest rates at its next meeting?",
		CurrentPrice: 0.55,
		Link:         "https://polymarket.com/",
	},
	{
		Source:       market.SourceFallback,
		Title:        "Will Bitcoin close above $100,000 this month?",
		CurrentPrice: 0.40,
		Link:         "https://polymarket.com/",
	},
	{
		Source:       market.SourceFallback,
		Title:        "Will US CPI inflation come in above 3% year over year?",
		CurrentPrice: 0.35,
		Link:         "https://kalshi.com/",
	},
	{
		Source:       market.SourceFallback,
		Title:        "Will a ceasefire be announced in an active conflict this quarter?",
		CurrentPrice: 0.25,
		Link:         "https://polymarket.com/",
	},
	{
		Source:       market.SourceFallback,
		Title:        "Will Elon Musk post about Dogecoin on X this week?",
		CurrentPrice: 0.60,
		Link:         "https://kalshi.com/",
	},
}

// Fallback returns a copy of the fixed fallback set
func Fallback() []market.Listing {
	out := make([]market.Listing, len(fallbackListings))
	copy(out, fallbackListings)
	return out
}

// Aggregator combines adapter outputs
type Aggregator struct {
	ceiling int
	log     *logrus.Logger
}

// New creates an aggregator. A non-positive ceiling means DefaultCeiling.
func New(ceiling int, log *logrus.Logger) *Aggregator {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Aggregator{ceiling: ceiling, log: log}
}

// Combine concatenates lists in the given order, substitutes the fallback set
// if the result is empty, and truncates to the ceiling.
func (a *Aggregator) Combine(lists [][]market.Listing) Batch {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	combined := make([]market.Listing, 0, total)
	for _, l := range lists {
		combined = append(combined, l...)
	}

	batch := Batch{Listings: combined}
	if len(combined) == 0 {
		batch.Listings = Fallback()
		batch.Degraded = true
		metrics.AggregatorFallbacks.Inc()
		a.log.WithFields(logrus.Fields{
			"degraded": true,
			"count":    len(batch.Listings),
		}).Warn("All venues empty, using fallback listings")
	}

	if len(batch.Listings) > a.ceiling {
		batch.Listings = batch.Listings[:a.ceiling]
	}

	metrics.BatchSize.Observe(float64(len(batch.Listings)))
	a.log.WithFields(logrus.Fields{
		"count":    len(batch.Listings),
		"total":    total,
		"degraded": batch.Degraded,
	}).Debug("Batch assembled")

	return batch
}
