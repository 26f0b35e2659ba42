package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// knownDecimals maps mainnet tokens whose decimals differ from (or are worth
// pinning at) the ERC-20 default, keyed by lowercase address. Unknown tokens
// fall back to 18.
var knownDecimals = map[string]uint8{
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": 6,  // USDC
	"0xdac17f958d2ee523a2206206994597c13d831ec7": 6,  // USDT
	"0x6b175474e89094c44da98b954eedeac495271d0f": 18, // DAI
	"0x0000000000085d4780b73119b644ae5ecd22b376": 18, // TUSD
	"0x57ab1ec28d129707052df4df418d58a2d46d5f51": 18, // sUSD
	"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": 18, // WETH
	"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599": 8,  // WBTC
	"0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2": 18, // MKR
	"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984": 18, // UNI
	"0x514910771af9ca656af840dff83e8264ecf986ca": 18, // LINK
	"0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0": 18, // MATIC
}

func tokenDecimals(token common.Address) uint8 {
	if d, ok := knownDecimals[strings.ToLower(token.Hex())]; ok {
		return d
	}
	return 18
}

func pow10(decimals uint8) *uint256.Int {
	out := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		out.Mul(out, ten)
	}
	return out
}

// parseAmount converts a human-readable amount ("1.5", "1000") into base
// units for a token with the given decimals.
func parseAmount(raw string, decimals uint8) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	intPart, decPart, hasDec := strings.Cut(raw, ".")
	if intPart == "" || strings.Contains(decPart, ".") {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}

	value, err := uint256.FromDecimal(intPart)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	value.Mul(value, pow10(decimals))

	if hasDec {
		if decPart == "" || len(decPart) > int(decimals) {
			return nil, fmt.Errorf("amount %q: at most %d decimal places", raw, decimals)
		}
		padded := decPart + strings.Repeat("0", int(decimals)-len(decPart))
		frac, err := uint256.FromDecimal(padded)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		value.Add(value, frac)
	}
	return value, nil
}

// formatAmount renders base units as a human-readable decimal string with
// trailing zeros trimmed.
func formatAmount(amount *uint256.Int, decimals uint8) string {
	if amount == nil || amount.IsZero() {
		return "0"
	}

	divisor := pow10(decimals)
	quot := new(uint256.Int)
	rem := new(uint256.Int)
	quot.DivMod(amount, divisor, rem)

	if rem.IsZero() {
		return quot.Dec()
	}

	frac := rem.Dec()
	if pad := int(decimals) - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	frac = strings.TrimRight(frac, "0")
	return quot.Dec() + "." + frac
}

// minReceived applies a slippage tolerance in basis points to the quoted
// output, floor division.
func minReceived(amountOut *uint256.Int, slippageBps uint32) *uint256.Int {
	if amountOut == nil {
		return new(uint256.Int)
	}
	out := new(uint256.Int).Mul(amountOut, uint256.NewInt(uint64(10_000-slippageBps)))
	return out.Div(out, uint256.NewInt(10_000))
}

// gasCostEther converts a gas estimate at the given gwei price into ether.
func gasCostEther(gas uint64, gasPriceGwei float64) float64 {
	return float64(gas) * gasPriceGwei / 1e9
}
