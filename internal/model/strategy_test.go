package model

import (
	"math"
	"testing"
)

func TestWeightsSumToOne(t *testing.T) {
	for _, s := range []Strategy{StrategyPrice, StrategyGas, StrategySlippage, StrategyBalanced} {
		w := s.Weights()
		sum := w.Output + w.Gas + w.Slippage
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("%s weights sum to %f", s, sum)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		raw  string
		want Strategy
	}{
		{"price", StrategyPrice},
		{"", StrategyPrice},
		{"GAS", StrategyGas},
		{" slippage ", StrategySlippage},
		{"balanced", StrategyBalanced},
	}
	for _, tc := range cases {
		got, err := ParseStrategy(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %s want %s", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseStrategy("cheapest"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
