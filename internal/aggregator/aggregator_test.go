package aggregator

import (
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/liamashdown/edgescan/internal/market"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func listings(source market.Source, n int) []market.Listing {
	out := make([]market.Listing, n)
	for i := range out {
		out[i] = market.Listing{
			Source:       source,
			Title:        fmt.Sprintf("%s market %d", source, i),
			CurrentPrice: 0.5,
		}
	}
	return out
}

func TestCombinePreservesOrderAndSource(t *testing.T) {
	a := New(30, quietLogger())
	poly := listings(market.SourcePolymarket, 5)
	kal := listings(market.SourceKalshi, 3)

	batch := a.Combine([][]market.Listing{poly, kal})

	if batch.Degraded {
		t.Error("expected non-degraded batch")
	}
	want := append(append([]market.Listing{}, poly...), kal...)
	if !reflect.DeepEqual(batch.Listings, want) {
		t.Errorf("got %+v, want %+v", batch.Listings, want)
	}
}

func TestCombineFallback(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]market.Listing
	}{
		{"no adapters", nil},
		{"all empty", [][]market.Listing{nil, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := New(30, quietLogger()).Combine(tt.lists)
			if !batch.Degraded {
				t.Error("expected degraded batch")
			}
			if !reflect.DeepEqual(batch.Listings, Fallback()) {
				t.Errorf("expected exactly the fallback set, got %+v", batch.Listings)
			}
			for _, l := range batch.Listings {
				if l.Source != market.SourceFallback {
					t.Errorf("fallback listing tagged %q", l.Source)
				}
			}
		})
	}
}

func TestCombineCeiling(t *testing.T) {
	tests := []struct {
		name    string
		ceiling int
		inputs  []int
		want    int
	}{
		{"under ceiling", 30, []int{10, 5}, 15},
		{"at ceiling", 30, []int{15, 15}, 30},
		{"over ceiling", 30, []int{30, 30}, 30},
		{"zero ceiling uses default", 0, []int{40}, DefaultCeiling},
		{"negative ceiling uses default", -3, []int{40}, DefaultCeiling},
		{"ceiling below fallback size", 2, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lists [][]market.Listing
			for _, n := range tt.inputs {
				lists = append(lists, listings(market.SourcePolymarket, n))
			}
			batch := New(tt.ceiling, quietLogger()).Combine(lists)
			if len(batch.Listings) != tt.want {
				t.Errorf("got %d listings, want %d", len(batch.Listings), tt.want)
			}
		})
	}
}

func TestFallbackReturnsCopy(t *testing.T) {
	f := Fallback()
	f[0].Title = "mutated"
	if Fallback()[0].Title == "mutated" {
		t.Error("Fallback must not expose the shared slice")
	}
}
