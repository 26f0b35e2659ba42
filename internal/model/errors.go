package model

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound marks a queried key that is absent from the cache.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientLiquidity marks a hop whose reserves cannot serve the
	// trade. Candidates failing with it are discarded silently.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrOverflow marks 256-bit arithmetic overflow during simulation.
	ErrOverflow = errors.New("arithmetic overflow")
)

// NoRouteError reports that no usable route exists between two tokens.
type NoRouteError struct {
	TokenIn  common.Address
	TokenOut common.Address
	MaxHops  int
	Reason   string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route from %s to %s within %d hops: %s",
		e.TokenIn.Hex(), e.TokenOut.Hex(), e.MaxHops, e.Reason)
}

// IsNoRoute reports whether err is a NoRouteError.
func IsNoRoute(err error) bool {
	var nre *NoRouteError
	return errors.As(err, &nre)
}

// PersistenceError reports a failed snapshot load or save. The in-memory
// cache is never modified when one is returned.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
