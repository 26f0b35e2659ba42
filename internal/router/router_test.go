package router

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"routeScope/internal/model"
)

func TestTopQuotesEmptyPoolSet(t *testing.T) {
	r := New(3, 0, nil)

	_, err := r.TopQuotes(nil, addr(1), addr(2), uint256.NewInt(100), model.StrategyPrice, 3)
	var nre *model.NoRouteError
	if !errors.As(err, &nre) {
		t.Fatalf("want NoRouteError, got %v", err)
	}
}

func TestTopQuotesAllCandidatesFail(t *testing.T) {
	// The only route exists in the graph but cannot be simulated.
	pools := []model.Pool{
		pool(0x10, 1, 3, 1000, 2000),
		pool(0x20, 3, 2, 0, 0),
	}
	r := New(3, 0, nil)

	_, err := r.TopQuotes(pools, addr(1), addr(2), uint256.NewInt(100), model.StrategyPrice, 3)
	var nre *model.NoRouteError
	if !errors.As(err, &nre) {
		t.Fatalf("want NoRouteError when every candidate fails, got %v", err)
	}
}

func TestTopQuotesRanksAndTruncates(t *testing.T) {
	// Three viable routes from 1 to 2: two direct pools plus a 2-hop detour.
	pools := []model.Pool{
		pool(0x10, 1, 2, 1000, 2000),
		pool(0x20, 1, 2, 1000, 3000),
		pool(0x30, 1, 3, 10000, 10000),
		pool(0x40, 3, 2, 10000, 10000),
	}
	r := New(3, 0, nil)

	quotes, err := r.TopQuotes(pools, addr(1), addr(2), uint256.NewInt(100), model.StrategyPrice, 2)
	if err != nil {
		t.Fatalf("top quotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("want 2 quotes, got %d", len(quotes))
	}
	if quotes[1].AmountOut.Gt(quotes[0].AmountOut) {
		t.Fatalf("price ranking violated: %s then %s",
			quotes[0].AmountOut.Dec(), quotes[1].AmountOut.Dec())
	}
	// The deeper 1000/3000 pool pays the most for 100 in.
	if quotes[0].Hops[0].Pool != addr(0x20) {
		t.Fatalf("winner pool = %s, want 0x20 pool", quotes[0].Hops[0].Pool.Hex())
	}
}

func TestBestQuote(t *testing.T) {
	pools := []model.Pool{pool(0x10, 1, 2, 1000, 2000)}
	r := New(3, 0, nil)

	quote, err := r.BestQuote(pools, addr(1), addr(2), uint256.NewInt(100), model.StrategyPrice)
	if err != nil {
		t.Fatalf("best quote: %v", err)
	}
	if quote.AmountOut.Uint64() != 180 {
		t.Fatalf("amount out = %s, want 180", quote.AmountOut.Dec())
	}
	if quote.Score != 1.0 {
		t.Fatalf("sole candidate should score 1.0, got %f", quote.Score)
	}
}

func TestTopQuotesRejectsBadInput(t *testing.T) {
	r := New(3, 0, nil)
	pools := []model.Pool{pool(0x10, 1, 2, 1000, 2000)}

	if _, err := r.TopQuotes(pools, addr(1), addr(2), uint256.NewInt(0), model.StrategyPrice, 1); err == nil {
		t.Fatalf("zero amount must be rejected")
	}
	if _, err := r.TopQuotes(pools, addr(1), addr(1), uint256.NewInt(100), model.StrategyPrice, 1); err == nil {
		t.Fatalf("identical tokens must be rejected")
	}
}

func TestTopQuotesDeterministic(t *testing.T) {
	pools := []model.Pool{
		pool(0x10, 1, 2, 1000, 2000),
		pool(0x20, 1, 3, 5000, 5000),
		pool(0x30, 3, 2, 5000, 5000),
		pool(0x40, 1, 2, 1000, 2000),
	}
	r := New(3, 0, nil)

	first, err := r.TopQuotes(pools, addr(1), addr(2), uint256.NewInt(100), model.StrategyBalanced, 10)
	if err != nil {
		t.Fatalf("top quotes: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.TopQuotes(pools, addr(1), addr(2), uint256.NewInt(100), model.StrategyBalanced, 10)
		if err != nil {
			t.Fatalf("top quotes run %d: %v", i, err)
		}
		if len(again) != len(first) {
			t.Fatalf("quote count changed across runs")
		}
		for j := range first {
			if first[j].Hops[0].Pool != again[j].Hops[0].Pool || first[j].Score != again[j].Score {
				t.Fatalf("ordering changed at %d across runs", j)
			}
		}
	}
}
