package kalshi

import (
	"strings"

	"github.com/liamashdown/edgescan/internal/venue"
)

// Kalshi quotes yes prices in cents on a 1-100 scale
const (
	centsScale   = 100.0
	defaultCents = 50.0
)

// Market represents a market as returned by the Kalshi REST API
type Market struct {
	Ticker      string       `json:"ticker"`
	EventTicker string       `json:"event_ticker"`
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle"`
	Status      string       `json:"status"`
	LastPrice   venue.Number `json:"last_price"`
	PYes        venue.Number `json:"p_yes"`
	YesBid      venue.Number `json:"yes_bid"`
	CloseTime   string       `json:"close_time"`
}

// DisplayTitle returns the market title or "Unknown"
func (m *Market) DisplayTitle() string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return "Unknown"
}

// YesCents returns the last traded price, else p_yes, else the yes bid, else 50
func (m *Market) YesCents() float64 {
	switch {
	case m.LastPrice.Valid:
		return m.LastPrice.Value
	case m.PYes.Valid:
		return m.PYes.Value
	case m.YesBid.Valid:
		return m.YesBid.Value
	}
	return defaultCents
}

// YesProbability is YesCents normalized into [0,1]
func (m *Market) YesProbability() float64 {
	return m.YesCents() / centsScale
}
