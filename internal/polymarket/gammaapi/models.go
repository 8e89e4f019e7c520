package gammaapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/liamashdown/edgescan/internal/venue"
)

// defaultMid is used when a market carries no usable price
const defaultMid = 0.5

// Market represents a Gamma API market
type Market struct {
	Slug          string        `json:"slug"`
	Question      string        `json:"question"`
	Title         string        `json:"title"`
	Category      string        `json:"category"`
	EndDate       string        `json:"endDate"`
	Active        bool          `json:"active"`
	Closed        bool          `json:"closed"`
	Prices        *Prices       `json:"prices"`
	OutcomePrices OutcomePrices `json:"outcomePrices"`
}

// Prices is the nested quote block some Gamma responses carry
type Prices struct {
	Mid venue.Number `json:"mid"`
}

// OutcomePrices handles the outcome price list, which Gamma sends either as a
// JSON-encoded string ("[\"0.45\",\"0.55\"]"), a comma list, or a real array.
type OutcomePrices []float64

func (o *OutcomePrices) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var nums []venue.Number
	if venue.IsArray(data) {
		// A malformed list is treated as absent rather than rejecting the market
		if err := json.Unmarshal(data, &nums); err == nil {
			*o = collect(nums)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &nums); err == nil {
		*o = collect(nums)
		return nil
	}

	var out []float64
	for _, part := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			// Unparseable list: treat as absent rather than rejecting the market
			return nil
		}
		out = append(out, f)
	}
	*o = out
	return nil
}

func collect(nums []venue.Number) []float64 {
	out := make([]float64, 0, len(nums))
	for _, n := range nums {
		if n.Valid {
			out = append(out, n.Value)
		}
	}
	return out
}

// DisplayTitle returns the question, falling back to the title
func (m *Market) DisplayTitle() string {
	if q := strings.TrimSpace(m.Question); q != "" {
		return q
	}
	return strings.TrimSpace(m.Title)
}

// YesPrice returns the nested mid price, else the first outcome price, else 0.5
func (m *Market) YesPrice() float64 {
	if m.Prices != nil && m.Prices.Mid.Valid {
		return m.Prices.Mid.Value
	}
	if len(m.OutcomePrices) > 0 {
		return m.OutcomePrices[0]
	}
	return defaultMid
}
