package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"routeScope/internal/model"
)

// Static gas heuristic: one V2-style swap plus transaction base cost. These
// are estimates for ranking, not chain-simulated costs.
const (
	GasBase   uint64 = 21_000
	GasPerHop uint64 = 100_000
)

const bpsDenominator = 10_000

var (
	bpsDenom = uint256.NewInt(bpsDenominator)
)

// SimulateHop runs one constant-product swap through pool entering with
// tokenIn. All arithmetic is 256-bit unsigned with floor division; the fee is
// floored away from the input first, then the output is floored:
//
//	amountInAfterFee = amountIn * (10000 - feeBps) / 10000
//	amountOut        = amountInAfterFee * reserveOut / (reserveIn + amountInAfterFee)
func SimulateHop(pool model.Pool, tokenIn common.Address, amountIn *uint256.Int) (model.RouteHop, error) {
	tokenOut, ok := pool.Other(tokenIn)
	if !ok {
		return model.RouteHop{}, fmt.Errorf("token %s not in pool %s", tokenIn.Hex(), pool.Address.Hex())
	}
	rIn, rOut, _ := pool.ReservesFor(tokenIn)
	if rIn == nil || rOut == nil || rIn.IsZero() || rOut.IsZero() {
		return model.RouteHop{}, model.ErrInsufficientLiquidity
	}
	if pool.FeeBps >= bpsDenominator {
		return model.RouteHop{}, fmt.Errorf("pool %s fee %d bps exceeds 100%%", pool.Address.Hex(), pool.FeeBps)
	}

	feeFactor := uint256.NewInt(uint64(bpsDenominator - pool.FeeBps))

	afterFee := new(uint256.Int)
	if _, overflow := afterFee.MulOverflow(amountIn, feeFactor); overflow {
		return model.RouteHop{}, model.ErrOverflow
	}
	afterFee.Div(afterFee, bpsDenom)
	if afterFee.IsZero() {
		return model.RouteHop{}, model.ErrInsufficientLiquidity
	}

	numerator := new(uint256.Int)
	if _, overflow := numerator.MulOverflow(afterFee, rOut); overflow {
		return model.RouteHop{}, model.ErrOverflow
	}
	denominator := new(uint256.Int)
	if _, overflow := denominator.AddOverflow(rIn, afterFee); overflow {
		return model.RouteHop{}, model.ErrOverflow
	}

	amountOut := new(uint256.Int).Div(numerator, denominator)
	if amountOut.IsZero() {
		return model.RouteHop{}, model.ErrInsufficientLiquidity
	}

	fee := new(uint256.Int).Sub(amountIn, afterFee)

	return model.RouteHop{
		Pool:      pool.Address,
		Venue:     pool.Venue,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  new(uint256.Int).Set(amountIn),
		AmountOut: amountOut,
		Fee:       fee,
		ImpactBps: hopImpactBps(afterFee, amountOut, rIn, rOut, numerator),
		Gas:       GasPerHop,
	}, nil
}

// hopImpactBps measures the deviation of the effective price
// (amountOut/amountInAfterFee) from the pre-trade spot price (rOut/rIn):
//
//	impact = (afterFee*rOut - amountOut*rIn) * 10000 / (afterFee*rOut)
//
// numerator == afterFee*rOut is passed in already computed.
func hopImpactBps(afterFee, amountOut, rIn, rOut, numerator *uint256.Int) uint32 {
	outTimesRIn := new(uint256.Int)
	if _, overflow := outTimesRIn.MulOverflow(amountOut, rIn); overflow {
		return bpsDenominator
	}

	diff := new(uint256.Int).Sub(numerator, outTimesRIn)
	scaled := new(uint256.Int)
	if _, overflow := scaled.MulOverflow(diff, bpsDenom); overflow {
		return bpsDenominator
	}
	scaled.Div(scaled, numerator)

	if !scaled.IsUint64() || scaled.Uint64() > bpsDenominator {
		return bpsDenominator
	}
	return uint32(scaled.Uint64())
}

// SimulatePath simulates every hop in order, feeding each output into the
// next hop. Any hop failure discards the entire path.
func SimulatePath(path Path, amountIn *uint256.Int) (model.RouteQuote, error) {
	if len(path.Pools) == 0 || len(path.Tokens) != len(path.Pools)+1 {
		return model.RouteQuote{}, fmt.Errorf("malformed path: %d pools, %d tokens", len(path.Pools), len(path.Tokens))
	}

	hops := make([]model.RouteHop, 0, len(path.Pools))
	totalFee := new(uint256.Int)
	current := new(uint256.Int).Set(amountIn)

	for i, pool := range path.Pools {
		hop, err := SimulateHop(pool, path.Tokens[i], current)
		if err != nil {
			return model.RouteQuote{}, fmt.Errorf("hop %d via %s: %w", i, pool.Address.Hex(), err)
		}
		hops = append(hops, hop)
		totalFee.Add(totalFee, hop.Fee)
		current = hop.AmountOut
	}

	quote := model.RouteQuote{
		TokenIn:     path.Tokens[0],
		TokenOut:    path.Tokens[len(path.Tokens)-1],
		AmountIn:    new(uint256.Int).Set(amountIn),
		AmountOut:   current,
		Hops:        hops,
		TotalFee:    totalFee,
		GasEstimate: GasBase + GasPerHop*uint64(len(hops)),
		ImpactBps:   compoundImpactBps(hops),
	}
	quote.Description = quote.RoutePath()
	return quote, nil
}

// compoundImpactBps compounds per-hop impacts multiplicatively: the retained
// fraction of value is the product of each hop's retained fraction.
func compoundImpactBps(hops []model.RouteHop) uint32 {
	retained := uint64(bpsDenominator)
	for _, hop := range hops {
		retained = retained * uint64(bpsDenominator-hop.ImpactBps) / bpsDenominator
	}
	return uint32(bpsDenominator - retained)
}
