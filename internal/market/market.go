// Package market holds the normalized records that flow through a scan.
package market

import (
	"math"
	"strings"
)

// Source identifies the venue a listing came from
type Source string

const (
	SourcePolymarket Source = "polymarket"
	SourceKalshi     Source = "kalshi"
	SourceFallback   Source = "fallback"
)

// ParseSource maps a user-supplied venue name onto a known Source
func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourcePolymarket:
		return SourcePolymarket, true
	case SourceKalshi:
		return SourceKalshi, true
	}
	return "", false
}

// Topic is the oracle's category tag for a candidate
type Topic string

const (
	TopicGeopolitical  Topic = "geopolitical"
	TopicCrypto        Topic = "crypto"
	TopicSocialMention Topic = "social-mention"
	TopicEconomics     Topic = "economics"
	TopicOther         Topic = "other"
)

// Topics is the closed set the oracle is allowed to answer with
var Topics = []Topic{TopicGeopolitical, TopicCrypto, TopicSocialMention, TopicEconomics, TopicOther}

// ParseTopic returns the matching topic, or TopicOther for anything unrecognized
func ParseTopic(s string) Topic {
	t := Topic(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Topics {
		if t == known {
			return known
		}
	}
	return TopicOther
}

// Listing is one tradable contract as reported by a venue, normalized.
// CurrentPrice is always a probability in [0,1].
type Listing struct {
	Source       Source  `json:"source"`
	Title        string  `json:"title"`
	CurrentPrice float64 `json:"current_price"`
	Link         string  `json:"link"`
}

// ScoredCandidate is a listing annotated with the oracle's estimate
type ScoredCandidate struct {
	Title        string  `json:"title"`
	Source       Source  `json:"source,omitempty"`
	Link         string  `json:"link,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	FairValue    float64 `json:"fair_value"`
	Edge         float64 `json:"edge"`
	Confidence   int     `json:"confidence"`
	Topic        Topic   `json:"topic"`
	Rationale    string  `json:"rationale"`
}

// ClampProbability forces p into [0,1]. NaN maps to 0.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
