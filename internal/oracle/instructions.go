package oracle

import (
	"fmt"
	"strings"

	"github.com/liamashdown/edgescan/internal/market"
)

// DefaultMaxCandidates caps the oracle's answer when none is configured
const DefaultMaxCandidates = 10

const instructionsTemplate = `You are a prediction market analyst. You receive a JSON array of open markets,
each with "source", "title", "current_price" (probability of YES, 0 to 1) and "link".

For each market estimate the true probability that it resolves YES and pick the
markets where your estimate differs most from the current price.

Respond with ONLY a JSON array and nothing else. No prose, no markdown fences.
Each element must be an object with exactly these fields:
  "title"         string, copied from the input
  "source"        string, copied from the input
  "link"          string, copied from the input
  "current_price" number, copied from the input
  "fair_value"    number between 0 and 1, your estimated probability of YES
  "confidence"    integer between 0 and 100, how sure you are of fair_value
  "topic"         one of: %s
  "rationale"     one or two sentences explaining the estimate

Return at most %d elements, sorted by confidence from highest to lowest.
If nothing stands out return [].`

// Instructions builds the fixed system prompt sent with every batch
func Instructions(maxCandidates int) string {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	topics := make([]string, len(market.Topics))
	for i, t := range market.Topics {
		topics[i] = `"` + string(t) + `"`
	}

	return fmt.Sprintf(instructionsTemplate, strings.Join(topics, ", "), maxCandidates)
}
