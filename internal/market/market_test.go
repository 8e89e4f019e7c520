package market

import (
	"math"
	"testing"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in     string
		want   Source
		wantOK bool
	}{
		{"polymarket", SourcePolymarket, true},
		{" Kalshi ", SourceKalshi, true},
		{"fallback", "", false},
		{"predictit", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSource(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSource(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestParseTopic(t *testing.T) {
	tests := map[string]Topic{
		"crypto":         TopicCrypto,
		"Social-Mention": TopicSocialMention,
		" economics ":    TopicEconomics,
		"sports":         TopicOther,
		"":               TopicOther,
	}
	for in, want := range tests {
		if got := ParseTopic(in); got != want {
			t.Errorf("ParseTopic(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClampProbability(t *testing.T) {
	tests := map[float64]float64{-0.2: 0, 0: 0, 0.45: 0.45, 1: 1, 1.7: 1, math.Inf(1): 1, math.Inf(-1): 0}
	for in, want := range tests {
		if got := ClampProbability(in); got != want {
			t.Errorf("ClampProbability(%v) = %v, want %v", in, got, want)
		}
	}
	if got := ClampProbability(math.NaN()); got != 0 {
		t.Errorf("ClampProbability(NaN) = %v, want 0", got)
	}
}
