package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta holds ERC-20 metadata resolved via RPC. Immutable once resolved.
type TokenMeta struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol,omitempty"`
	Name     string         `json:"name,omitempty"`
	Decimals uint8          `json:"decimals"`
}
