// Package scanner runs the discovery and scoring pipeline: venue fetch,
// aggregation, oracle scoring, extraction and classification.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liamashdown/edgescan/internal/aggregator"
	"github.com/liamashdown/edgescan/internal/extract"
	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/liamashdown/edgescan/internal/oracle"
	"github.com/liamashdown/edgescan/internal/venue"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownSource is returned for a single-ticker scan naming no configured venue
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidTarget is returned for a single-ticker scan without a ticker
	ErrInvalidTarget = errors.New("invalid scan target")
)

// Outcome is the terminal state of a scan
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailure  Outcome = "failure"
)

// Result is what a scan hands back to the caller. Candidates is never nil on
// success or degraded outcomes; Err is set only on failure.
type Result struct {
	ScanID     string
	Candidates []market.ScoredCandidate
	Outcome    Outcome
	Err        error
}

// Target identifies one market for a single-ticker scan
type Target struct {
	Source string `json:"source"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Scorer is the oracle as seen by the scanner
type Scorer interface {
	Score(ctx context.Context, batch []market.Listing, instructions string) (string, error)
}

// Classifier validates extracted records and raises alerts
type Classifier interface {
	Classify(ctx context.Context, scanID string, records []extract.Record) []market.ScoredCandidate
}

// Scanner owns the pipeline collaborators. It holds no per-scan state and is
// safe for concurrent use.
type Scanner struct {
	adapters     []venue.Adapter
	aggregator   *aggregator.Aggregator
	scorer       Scorer
	extractor    extract.Extractor
	classifier   Classifier
	fetchOpts    venue.FetchOptions
	instructions string
	log          *logrus.Logger
	newID        func() string
}

// Options tunes per-scan behaviour
type Options struct {
	Fetch         venue.FetchOptions
	MaxCandidates int
}

// New creates a scanner. scorer may be nil when no oracle is configured; every
// scan then fails with oracle.ErrOracleUnavailable.
func New(
	adapters []venue.Adapter,
	agg *aggregator.Aggregator,
	scorer Scorer,
	extractor extract.Extractor,
	classifier Classifier,
	opts Options,
	log *logrus.Logger,
) *Scanner {
	return &Scanner{
		adapters:     adapters,
		aggregator:   agg,
		scorer:       scorer,
		extractor:    extractor,
		classifier:   classifier,
		fetchOpts:    opts.Fetch,
		instructions: oracle.Instructions(opts.MaxCandidates),
		log:          log,
		newID:        uuid.NewString,
	}
}

// Scan fetches every venue, aggregates, scores and classifies. When every
// venue is empty the fallback set is scored and the outcome is degraded.
func (s *Scanner) Scan(ctx context.Context) (res Result) {
	scanID := s.newID()
	start := time.Now()
	entry := s.log.WithField("scan_id", scanID)
	res.ScanID = scanID
	defer s.finish(entry, "full", start, &res)

	entry.Info("Starting scan")

	lists := s.fetchAll(ctx, entry)
	batch := s.aggregator.Combine(lists)

	res = s.score(ctx, scanID, batch.Listings, entry)
	if res.Outcome == OutcomeSuccess && batch.Degraded {
		res.Outcome = OutcomeDegraded
	}
	return res
}

// ScanSingle scores one market looked up on its declared venue. There is no
// fallback: a lookup that finds nothing is a degraded, empty result.
func (s *Scanner) ScanSingle(ctx context.Context, target Target) (res Result) {
	scanID := s.newID()
	start := time.Now()
	entry := s.log.WithFields(logrus.Fields{
		"scan_id": scanID,
		"source":  target.Source,
		"ticker":  target.Ticker,
	})
	res.ScanID = scanID
	defer s.finish(entry, "single", start, &res)

	src, ok := market.ParseSource(target.Source)
	if !ok {
		return failure(scanID, fmt.Errorf("%w: %q", ErrUnknownSource, target.Source))
	}
	adapter := s.adapterFor(src)
	if adapter == nil {
		return failure(scanID, fmt.Errorf("%w: %q is not configured", ErrUnknownSource, src))
	}
	id := strings.TrimSpace(target.Ticker)
	if id == "" {
		return failure(scanID, fmt.Errorf("%w: ticker is required", ErrInvalidTarget))
	}

	entry.Info("Starting single-ticker scan")

	listings := adapter.LookupListing(ctx, id, s.fetchOpts)
	if len(listings) == 0 {
		entry.Warn("Ticker lookup returned nothing")
		return Result{ScanID: scanID, Candidates: []market.ScoredCandidate{}, Outcome: OutcomeDegraded}
	}
	listings = listings[:1]
	if title := strings.TrimSpace(target.Title); title != "" && listings[0].Title == "Unknown" {
		listings[0].Title = title
	}

	return s.score(ctx, scanID, listings, entry)
}

func (s *Scanner) finish(entry *logrus.Entry, kind string, start time.Time, res *Result) {
	if r := recover(); r != nil {
		*res = Result{
			ScanID:  res.ScanID,
			Outcome: OutcomeFailure,
			Err:     fmt.Errorf("scan aborted: %v", r),
		}
		entry.WithField("panic", r).Error("Recovered from panic during scan")
	}

	duration := time.Since(start)
	metrics.RecordScan(kind, string(res.Outcome), duration)

	fields := logrus.Fields{
		"kind":        kind,
		"outcome":     res.Outcome,
		"candidates":  len(res.Candidates),
		"duration_ms": duration.Milliseconds(),
	}
	if res.Err != nil {
		entry.WithFields(fields).WithError(res.Err).Error("Scan failed")
		return
	}
	entry.WithFields(fields).Info("Scan complete")
}

// fetchAll queries every adapter concurrently. Results keep declaration order.
func (s *Scanner) fetchAll(ctx context.Context, entry *logrus.Entry) [][]market.Listing {
	results := make([][]market.Listing, len(s.adapters))

	var g errgroup.Group
	for i, a := range s.adapters {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					entry.WithFields(logrus.Fields{
						"venue": a.Source(),
						"panic": r,
					}).Error("Venue adapter panicked")
					results[i] = nil
				}
			}()
			results[i] = a.FetchListings(ctx, s.fetchOpts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scanner) score(ctx context.Context, scanID string, batch []market.Listing, entry *logrus.Entry) Result {
	if s.scorer == nil {
		return failure(scanID, fmt.Errorf("%w: no oracle configured", oracle.ErrOracleUnavailable))
	}

	raw, err := s.scorer.Score(ctx, batch, s.instructions)
	if err != nil {
		if !errors.Is(err, oracle.ErrOracleUnavailable) {
			err = fmt.Errorf("%w: %v", oracle.ErrOracleUnavailable, err)
		}
		return failure(scanID, err)
	}

	records, err := s.extractor.Extract(raw)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		entry.WithError(err).WithField("raw_length", len(raw)).Warn("Could not extract candidates from oracle output")
		return Result{ScanID: scanID, Candidates: []market.ScoredCandidate{}, Outcome: OutcomeDegraded}
	}

	candidates := s.classifier.Classify(ctx, scanID, records)
	return Result{ScanID: scanID, Candidates: candidates, Outcome: OutcomeSuccess}
}

func (s *Scanner) adapterFor(src market.Source) venue.Adapter {
	for _, a := range s.adapters {
		if a.Source() == src {
			return a
		}
	}
	return nil
}

func failure(scanID string, err error) Result {
	return Result{ScanID: scanID, Outcome: OutcomeFailure, Err: err}
}
