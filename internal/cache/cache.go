package cache

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/model"
)

// PoolCache is a concurrent store of pool records with a derived token index.
// Records are replaced wholesale on update; readers never observe a partially
// written record. Stale records are flagged by Stats but never evicted.
type PoolCache struct {
	mu      sync.RWMutex
	pools   map[common.Address]model.Pool
	byToken map[common.Address]map[common.Address]struct{}
	ttl     time.Duration
}

// New creates an empty PoolCache. A zero ttl disables staleness tracking.
func New(ttl time.Duration) *PoolCache {
	return &PoolCache{
		pools:   make(map[common.Address]model.Pool),
		byToken: make(map[common.Address]map[common.Address]struct{}),
		ttl:     ttl,
	}
}

// Upsert inserts or replaces the record for pool.Address. Racing writers
// resolve last-call-wins.
func (c *PoolCache) Upsert(pool model.Pool) {
	stored := pool.Clone()
	stored.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pools[stored.Address]; ok {
		c.unindexLocked(prev)
	}
	c.pools[stored.Address] = stored
	c.indexLocked(stored)
}

// Get returns a copy of the record, or false when the address is absent.
// Absence is a normal queryable result, not a failure.
func (c *PoolCache) Get(address common.Address) (model.Pool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pool, ok := c.pools[address]
	if !ok {
		return model.Pool{}, false
	}
	return pool.Clone(), true
}

// ByToken returns all pools touching the token, ordered by ascending pool
// address for deterministic downstream iteration.
func (c *PoolCache) ByToken(token common.Address) []model.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	addrs, ok := c.byToken[token]
	if !ok {
		return nil
	}
	out := make([]model.Pool, 0, len(addrs))
	for addr := range addrs {
		out = append(out, c.pools[addr].Clone())
	}
	sortPoolsByAddress(out)
	return out
}

// Remove deletes the record and its index entries. Returns false when the
// address was absent.
func (c *PoolCache) Remove(address common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, ok := c.pools[address]
	if !ok {
		return false
	}
	delete(c.pools, address)
	c.unindexLocked(pool)
	return true
}

// Clear drops every record and index entry.
func (c *PoolCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools = make(map[common.Address]model.Pool)
	c.byToken = make(map[common.Address]map[common.Address]struct{})
}

// Len returns the number of cached pools.
func (c *PoolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools)
}

// Snapshot returns copies of all records ordered by ascending pool address.
func (c *PoolCache) Snapshot() []model.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Pool, 0, len(c.pools))
	for _, pool := range c.pools {
		out = append(out, pool.Clone())
	}
	sortPoolsByAddress(out)
	return out
}

// Restore upserts every record in the list. Importing the same snapshot
// twice yields the same cache contents as importing once.
func (c *PoolCache) Restore(pools []model.Pool) {
	for _, pool := range pools {
		c.Upsert(pool)
	}
}

// Stats summarizes the cache contents as of now.
func (c *PoolCache) Stats(now time.Time) model.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := model.CacheStats{
		TotalPools:     len(c.pools),
		DistinctTokens: len(c.byToken),
		VenueCounts:    make(map[string]int),
	}
	for _, pool := range c.pools {
		stats.VenueCounts[pool.Venue]++
		if pool.IsStale(now, c.ttl) {
			stats.StalePools++
		}
		if stats.OldestUpdated == 0 || pool.LastUpdated < stats.OldestUpdated {
			stats.OldestUpdated = pool.LastUpdated
		}
		if pool.LastUpdated > stats.NewestUpdated {
			stats.NewestUpdated = pool.LastUpdated
		}
	}
	return stats
}

// TTL returns the configured staleness threshold.
func (c *PoolCache) TTL() time.Duration {
	return c.ttl
}

func (c *PoolCache) indexLocked(pool model.Pool) {
	for _, token := range []common.Address{pool.Token0, pool.Token1} {
		set, ok := c.byToken[token]
		if !ok {
			set = make(map[common.Address]struct{})
			c.byToken[token] = set
		}
		set[pool.Address] = struct{}{}
	}
}

func (c *PoolCache) unindexLocked(pool model.Pool) {
	for _, token := range []common.Address{pool.Token0, pool.Token1} {
		if set, ok := c.byToken[token]; ok {
			delete(set, pool.Address)
			if len(set) == 0 {
				delete(c.byToken, token)
			}
		}
	}
}

func sortPoolsByAddress(pools []model.Pool) {
	sort.Slice(pools, func(i, j int) bool {
		return bytes.Compare(pools[i].Address[:], pools[j].Address[:]) < 0
	})
}
