package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is a constant-product pool record as held in the cache.
// Token0 and Token1 are stored in canonical order (ascending address).
type Pool struct {
	Address     common.Address `json:"address"`
	Venue       string         `json:"venue"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Reserve0    *uint256.Int   `json:"reserve0"`
	Reserve1    *uint256.Int   `json:"reserve1"`
	FeeBps      uint32         `json:"fee_bps"`
	LastUpdated int64          `json:"last_updated"`
}

// DefaultFeeBps is the UniswapV2-style fee applied when a venue reports none.
const DefaultFeeBps uint32 = 30

// Normalize puts the token pair in canonical order, swapping reserves to match.
func (p *Pool) Normalize() {
	if tokenLess(p.Token1, p.Token0) {
		p.Token0, p.Token1 = p.Token1, p.Token0
		p.Reserve0, p.Reserve1 = p.Reserve1, p.Reserve0
	}
}

// Clone returns a deep copy so cached records cannot be mutated through aliases.
func (p Pool) Clone() Pool {
	out := p
	if p.Reserve0 != nil {
		out.Reserve0 = new(uint256.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		out.Reserve1 = new(uint256.Int).Set(p.Reserve1)
	}
	return out
}

// Other returns the pool's opposite token for the given one.
func (p *Pool) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	default:
		return common.Address{}, false
	}
}

// ReservesFor orients the reserves along a swap entering with tokenIn.
func (p *Pool) ReservesFor(tokenIn common.Address) (rIn, rOut *uint256.Int, ok bool) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, true
	case p.Token1:
		return p.Reserve1, p.Reserve0, true
	default:
		return nil, nil, false
	}
}

// IsStale reports whether the record is older than ttl. A zero ttl disables
// staleness tracking.
func (p *Pool) IsStale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Unix()-p.LastUpdated > int64(ttl/time.Second)
}

func tokenLess(a, b common.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
