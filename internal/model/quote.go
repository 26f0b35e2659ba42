package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RouteHop is one swap through one pool along a route.
type RouteHop struct {
	Pool      common.Address `json:"pool"`
	Venue     string         `json:"venue"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	AmountIn  *uint256.Int   `json:"amount_in"`
	AmountOut *uint256.Int   `json:"amount_out"`
	Fee       *uint256.Int   `json:"fee"`
	ImpactBps uint32         `json:"impact_bps"`
	Gas       uint64         `json:"gas"`
}

// Rate returns the effective exchange rate of the hop (out per in).
func (h *RouteHop) Rate() float64 {
	if h.AmountIn == nil || h.AmountIn.IsZero() || h.AmountOut == nil {
		return 0
	}
	return h.AmountOut.Float64() / h.AmountIn.Float64()
}

// RouteQuote is a fully simulated route with its composite score.
type RouteQuote struct {
	TokenIn     common.Address `json:"token_in"`
	TokenOut    common.Address `json:"token_out"`
	AmountIn    *uint256.Int   `json:"amount_in"`
	AmountOut   *uint256.Int   `json:"amount_out"`
	Hops        []RouteHop     `json:"hops"`
	TotalFee    *uint256.Int   `json:"total_fee"`
	GasEstimate uint64         `json:"gas_estimate"`
	ImpactBps   uint32         `json:"impact_bps"`
	Score       float64        `json:"score"`
	Description string         `json:"description"`
}

// HopCount returns the number of hops on the route.
func (q *RouteQuote) HopCount() int {
	return len(q.Hops)
}

// Rate returns the effective exchange rate of the whole route.
func (q *RouteQuote) Rate() float64 {
	if q.AmountIn == nil || q.AmountIn.IsZero() || q.AmountOut == nil {
		return 0
	}
	return q.AmountOut.Float64() / q.AmountIn.Float64()
}

// RoutePath renders the token sequence as "0xA -> 0xB -> 0xC".
func (q *RouteQuote) RoutePath() string {
	if len(q.Hops) == 0 {
		return "Direct"
	}
	parts := make([]string, 0, len(q.Hops)+1)
	parts = append(parts, q.TokenIn.Hex())
	for _, hop := range q.Hops {
		parts = append(parts, hop.TokenOut.Hex())
	}
	return strings.Join(parts, " -> ")
}

// CacheStats summarizes the pool cache contents.
type CacheStats struct {
	TotalPools     int            `json:"total_pools"`
	DistinctTokens int            `json:"distinct_tokens"`
	VenueCounts    map[string]int `json:"venue_counts"`
	StalePools     int            `json:"stale_pools"`
	OldestUpdated  int64          `json:"oldest_updated"`
	NewestUpdated  int64          `json:"newest_updated"`
	SnapshotPath   string         `json:"snapshot_path,omitempty"`
	CacheEnabled   bool           `json:"cache_enabled"`
}
