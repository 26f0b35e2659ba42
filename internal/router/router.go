package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"routeScope/internal/model"
)

// DefaultMaxHops bounds route depth when the configuration supplies none.
const DefaultMaxHops = 3

// DefaultExploreCap bounds BFS frontier expansion in dense graphs.
const DefaultExploreCap = 4096

// Router finds, simulates and ranks swap routes over a pool snapshot. It is
// a pure function of its inputs: concurrent queries need no locking.
type Router struct {
	maxHops    int
	exploreCap int
	logger     *zap.Logger
}

// New builds a Router. Zero or negative limits fall back to defaults.
func New(maxHops, exploreCap int, logger *zap.Logger) *Router {
	if maxHops < 1 {
		maxHops = DefaultMaxHops
	}
	if exploreCap < 1 {
		exploreCap = DefaultExploreCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{maxHops: maxHops, exploreCap: exploreCap, logger: logger}
}

// TopQuotes returns up to k quotes ordered best-first under the strategy.
// Candidates failing simulation are discarded; the error surfaces only when
// no candidate survives.
func (r *Router) TopQuotes(pools []model.Pool, tokenIn, tokenOut common.Address, amountIn *uint256.Int, strategy model.Strategy, k int) ([]model.RouteQuote, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, fmt.Errorf("amount in must be positive")
	}
	if tokenIn == tokenOut {
		return nil, fmt.Errorf("token in and token out are the same")
	}
	if k < 1 {
		k = 1
	}

	graph := BuildGraph(pools)
	paths := graph.FindPaths(tokenIn, tokenOut, r.maxHops, r.exploreCap)
	if len(paths) == 0 {
		return nil, &model.NoRouteError{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			MaxHops:  r.maxHops,
			Reason:   "no candidate paths",
		}
	}

	r.logger.Debug("candidate paths found",
		zap.Int("paths", len(paths)),
		zap.Int("pools", len(pools)),
		zap.String("strategy", strategy.String()),
	)

	quotes := make([]model.RouteQuote, 0, len(paths))
	for _, path := range paths {
		quote, err := SimulatePath(path, amountIn)
		if err != nil {
			r.logger.Debug("candidate discarded", zap.Error(err))
			continue
		}
		quotes = append(quotes, quote)
	}
	if len(quotes) == 0 {
		return nil, &model.NoRouteError{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			MaxHops:  r.maxHops,
			Reason:   fmt.Sprintf("all %d candidates failed simulation", len(paths)),
		}
	}

	Rank(quotes, strategy)
	if len(quotes) > k {
		quotes = quotes[:k]
	}
	return quotes, nil
}

// BestQuote returns the single best quote under the strategy.
func (r *Router) BestQuote(pools []model.Pool, tokenIn, tokenOut common.Address, amountIn *uint256.Int, strategy model.Strategy) (model.RouteQuote, error) {
	quotes, err := r.TopQuotes(pools, tokenIn, tokenOut, amountIn, strategy, 1)
	if err != nil {
		return model.RouteQuote{}, err
	}
	return quotes[0], nil
}
