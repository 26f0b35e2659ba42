package model

import (
	"fmt"
	"strings"
)

// Strategy selects how candidate routes are weighted against each other.
type Strategy uint8

const (
	// StrategyPrice maximizes output amount.
	StrategyPrice Strategy = iota
	// StrategyGas minimizes gas cost.
	StrategyGas
	// StrategySlippage minimizes price impact.
	StrategySlippage
	// StrategyBalanced trades the three off against each other.
	StrategyBalanced
)

// Weights is the (output, gas, slippage) weight triple of a strategy.
// The three components always sum to 1.
type Weights struct {
	Output   float64
	Gas      float64
	Slippage float64
}

// Price uses weight 1.0 on output so the winning quote is guaranteed to have
// the highest output of all candidates.
var strategyWeights = map[Strategy]Weights{
	StrategyPrice:    {Output: 1.0, Gas: 0.0, Slippage: 0.0},
	StrategyGas:      {Output: 0.1, Gas: 0.8, Slippage: 0.1},
	StrategySlippage: {Output: 0.1, Gas: 0.1, Slippage: 0.8},
	StrategyBalanced: {Output: 0.5, Gas: 0.3, Slippage: 0.2},
}

// Weights returns the scoring weight triple for the strategy.
func (s Strategy) Weights() Weights {
	w, ok := strategyWeights[s]
	if !ok {
		return strategyWeights[StrategyPrice]
	}
	return w
}

func (s Strategy) String() string {
	switch s {
	case StrategyPrice:
		return "price"
	case StrategyGas:
		return "gas"
	case StrategySlippage:
		return "slippage"
	case StrategyBalanced:
		return "balanced"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a CLI/config string onto a Strategy. Matching happens
// only at this boundary; scoring itself dispatches on the enum.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "price":
		return StrategyPrice, nil
	case "gas":
		return StrategyGas, nil
	case "slippage":
		return StrategySlippage, nil
	case "balanced":
		return StrategyBalanced, nil
	default:
		return StrategyPrice, fmt.Errorf("unknown strategy %q (want price, gas, slippage or balanced)", raw)
	}
}
