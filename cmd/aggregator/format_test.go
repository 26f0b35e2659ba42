package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000001", 6, "1"},
		{"1000", 6, "1000000000"},
		{"2.5", 0, ""},
		{"", 18, ""},
		{"1.2.3", 18, ""},
		{"abc", 18, ""},
		{"1.1234567", 6, ""}, // more places than decimals
	}

	for _, tc := range cases {
		got, err := parseAmount(tc.raw, tc.decimals)
		if tc.want == "" {
			if err == nil {
				t.Fatalf("parse %q: expected error, got %s", tc.raw, got.Dec())
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got.Dec() != tc.want {
			t.Fatalf("parse %q = %s, want %s", tc.raw, got.Dec(), tc.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 6, "0.000001"},
		{"1000000", 6, "1"},
		{"0", 18, "0"},
		{"123", 0, "123"},
	}

	for _, tc := range cases {
		amount := uint256.MustFromDecimal(tc.raw)
		if got := formatAmount(amount, tc.decimals); got != tc.want {
			t.Fatalf("format %s/%d = %q, want %q", tc.raw, tc.decimals, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"1", "1.5", "0.000001", "123456.789"} {
		amount, err := parseAmount(raw, 18)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := formatAmount(amount, 18); got != raw {
			t.Fatalf("round trip %q -> %q", raw, got)
		}
	}
}

func TestTokenDecimals(t *testing.T) {
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	if got := tokenDecimals(usdc); got != 6 {
		t.Fatalf("usdc decimals = %d", got)
	}
	unknown := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	if got := tokenDecimals(unknown); got != 18 {
		t.Fatalf("unknown token decimals = %d, want 18", got)
	}
}

func TestMinReceived(t *testing.T) {
	out := uint256.NewInt(10_000)
	if got := minReceived(out, 50); got.Uint64() != 9_950 {
		t.Fatalf("min received = %s, want 9950", got.Dec())
	}
	if got := minReceived(out, 0); got.Uint64() != 10_000 {
		t.Fatalf("zero slippage should keep the full amount")
	}
	if got := minReceived(nil, 50); !got.IsZero() {
		t.Fatalf("nil amount should yield zero")
	}
}

func TestGasCostEther(t *testing.T) {
	// 121000 gas at 20 gwei = 0.00242 ETH.
	got := gasCostEther(121_000, 20)
	if got < 0.002419 || got > 0.002421 {
		t.Fatalf("gas cost = %f", got)
	}
}
