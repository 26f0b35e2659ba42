package router

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"

	"routeScope/internal/model"
)

// Rank scores the quotes in place against each other under the strategy and
// returns them ordered best-first. Each metric is normalized against the
// candidate set's extrema so that every norm lies in [0, 1] with higher
// always better:
//
//	outputNorm = amountOut / max(amountOut)
//	gasNorm    = min(gas) / gas
//	impactNorm = min(impact) / impact   (1 when the quote's impact is zero)
//
// Ties break on fewer hops, then on the lexicographically smallest pool
// address sequence, so identical inputs always rank identically.
func Rank(quotes []model.RouteQuote, strategy model.Strategy) []model.RouteQuote {
	if len(quotes) == 0 {
		return quotes
	}

	maxOut := new(uint256.Int)
	minGas := quotes[0].GasEstimate
	minImpact := quotes[0].ImpactBps
	for _, q := range quotes {
		if q.AmountOut != nil && q.AmountOut.Gt(maxOut) {
			maxOut.Set(q.AmountOut)
		}
		if q.GasEstimate < minGas {
			minGas = q.GasEstimate
		}
		if q.ImpactBps < minImpact {
			minImpact = q.ImpactBps
		}
	}

	weights := strategy.Weights()
	maxOutF := maxOut.Float64()
	for i := range quotes {
		q := &quotes[i]

		outputNorm := 0.0
		if maxOutF > 0 && q.AmountOut != nil {
			outputNorm = q.AmountOut.Float64() / maxOutF
		}
		gasNorm := 0.0
		if q.GasEstimate > 0 {
			gasNorm = float64(minGas) / float64(q.GasEstimate)
		}
		impactNorm := 1.0
		if q.ImpactBps > 0 {
			impactNorm = float64(minImpact) / float64(q.ImpactBps)
		}

		q.Score = weights.Output*outputNorm + weights.Gas*gasNorm + weights.Slippage*impactNorm
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].Score != quotes[j].Score {
			return quotes[i].Score > quotes[j].Score
		}
		if len(quotes[i].Hops) != len(quotes[j].Hops) {
			return len(quotes[i].Hops) < len(quotes[j].Hops)
		}
		return poolSequenceLess(quotes[i].Hops, quotes[j].Hops)
	})

	return quotes
}

func poolSequenceLess(a, b []model.RouteHop) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if cmp := bytes.Compare(a[i].Pool[:], b[i].Pool[:]); cmp != 0 {
			return cmp < 0
		}
	}
	return len(a) < len(b)
}
