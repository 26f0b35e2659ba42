package router

import (
	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/model"
)

// Path is a candidate route: len(Tokens) == len(Pools)+1, consecutive hops
// share exactly one token and no token repeats.
type Path struct {
	Tokens []common.Address
	Pools  []model.Pool
}

type frontierEntry struct {
	token  common.Address
	tokens []common.Address
	pools  []model.Pool
}

// FindPaths enumerates all cycle-free paths from `from` to `to` of at most
// maxHops hops using breadth-first expansion. exploreCap bounds the number of
// expanded frontier entries so dense graphs cannot blow up combinatorially;
// when the cap is hit the paths found so far are returned.
func (g *Graph) FindPaths(from, to common.Address, maxHops, exploreCap int) []Path {
	if from == to || maxHops < 1 {
		return nil
	}

	var found []Path
	queue := []frontierEntry{{
		token:  from,
		tokens: []common.Address{from},
	}}

	explored := 0
	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if exploreCap > 0 {
			explored++
			if explored > exploreCap {
				break
			}
		}

		for _, e := range g.adj[entry.token] {
			if containsToken(entry.tokens, e.to) {
				continue
			}

			tokens := append(append([]common.Address{}, entry.tokens...), e.to)
			pools := append(append([]model.Pool{}, entry.pools...), e.pool)

			if e.to == to {
				found = append(found, Path{Tokens: tokens, Pools: pools})
				continue
			}
			if len(pools) < maxHops {
				queue = append(queue, frontierEntry{token: e.to, tokens: tokens, pools: pools})
			}
		}
	}

	return found
}

func containsToken(tokens []common.Address, token common.Address) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
