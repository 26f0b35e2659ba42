package router

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/model"
)

// edge is one traversal direction through a pool.
type edge struct {
	pool model.Pool
	to   common.Address
}

// Graph is a token-adjacency view over a set of pool records. It is rebuilt
// from a cache snapshot per query; the rebuild is linear in pool count and
// keeps the graph consistent with fetches and imports between queries.
type Graph struct {
	adj map[common.Address][]edge
}

// BuildGraph derives the adjacency graph from pools. Every pool contributes
// one edge in each direction; adjacency lists are ordered by ascending pool
// address so identical inputs enumerate identically.
func BuildGraph(pools []model.Pool) *Graph {
	g := &Graph{adj: make(map[common.Address][]edge)}
	for _, pool := range pools {
		g.adj[pool.Token0] = append(g.adj[pool.Token0], edge{pool: pool, to: pool.Token1})
		g.adj[pool.Token1] = append(g.adj[pool.Token1], edge{pool: pool, to: pool.Token0})
	}
	for token := range g.adj {
		edges := g.adj[token]
		sort.Slice(edges, func(i, j int) bool {
			return bytes.Compare(edges[i].pool.Address[:], edges[j].pool.Address[:]) < 0
		})
	}
	return g
}

// TokenCount returns the number of distinct tokens in the graph.
func (g *Graph) TokenCount() int {
	return len(g.adj)
}
