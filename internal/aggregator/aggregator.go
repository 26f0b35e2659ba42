package aggregator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"routeScope/internal/cache"
	"routeScope/internal/model"
	"routeScope/internal/router"
	"routeScope/internal/storage"
)

// PoolReader abstracts on-chain pool discovery so fetch logic can be tested
// without an RPC endpoint. *dex.Reader satisfies it.
type PoolReader interface {
	PairCount(ctx context.Context, factory common.Address) (uint64, error)
	PairAddress(ctx context.Context, factory common.Address, index uint64) (common.Address, error)
	ReadPool(ctx context.Context, pair common.Address, venue string) (model.Pool, error)
}

// Factory is a named V2-style factory contract to discover pools from.
type Factory struct {
	Name    string
	Address common.Address
}

// Options tunes fetch behavior and routing limits.
type Options struct {
	Factories        []Factory
	CacheTTL         time.Duration
	CachePath        string
	CacheEnabled     bool
	MaxHops          int
	ExploreCap       int
	FetchConcurrency int
	MaxRetries       int
	RetryBackoff     time.Duration
	ReadTimeout      time.Duration
	FetchTimeout     time.Duration
}

// FetchResult summarizes one discovery run.
type FetchResult struct {
	Factory   string
	Requested int
	Fetched   int
	Skipped   int
}

// Aggregator ties pool discovery, the pool cache, snapshot persistence and
// the route finder together behind one facade.
type Aggregator struct {
	opts      Options
	reader    PoolReader
	pools     *cache.PoolCache
	router    *router.Router
	snapshots *storage.SnapshotStore
	logger    *zap.Logger
}

// New builds an Aggregator. When the file cache is enabled and a snapshot
// already exists it is imported immediately; a broken snapshot logs a warning
// and the aggregator starts empty rather than failing construction.
func New(opts Options, reader PoolReader, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 8
	}

	a := &Aggregator{
		opts:   opts,
		reader: reader,
		pools:  cache.New(opts.CacheTTL),
		router: router.New(opts.MaxHops, opts.ExploreCap, logger),
		logger: logger,
	}
	if opts.CachePath != "" {
		a.snapshots = storage.NewSnapshotStore(opts.CachePath)
	}

	if opts.CacheEnabled && a.snapshots != nil && a.snapshots.Exists() {
		n, err := a.ImportCache(opts.CachePath)
		if err != nil {
			logger.Warn("snapshot import failed, starting empty",
				zap.String("path", opts.CachePath),
				zap.Error(err),
			)
		} else {
			logger.Info("snapshot imported",
				zap.String("path", opts.CachePath),
				zap.Int("pools", n),
			)
		}
	}
	return a
}

// FetchPools discovers up to limit pools from one factory and upserts them
// into the cache. Individual pool reads that still fail after retries are
// skipped and counted, never fatal; only enumeration failure or context
// cancellation aborts the run.
func (a *Aggregator) FetchPools(ctx context.Context, factory Factory, limit int) (FetchResult, error) {
	result := FetchResult{Factory: factory.Name}

	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}

	var count uint64
	err := withRetry(ctx, a.opts.MaxRetries, a.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		count, err = a.reader.PairCount(ctx, factory.Address)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("pair count for %s: %w", factory.Name, err)
	}

	total := int(count)
	if limit > 0 && limit < total {
		total = limit
	}
	result.Requested = total

	a.logger.Info("fetching pools",
		zap.String("factory", factory.Name),
		zap.Uint64("registered", count),
		zap.Int("requested", total),
		zap.Int("concurrency", a.opts.FetchConcurrency),
	)

	var fetched, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.FetchConcurrency)

	for i := 0; i < total; i++ {
		index := uint64(i)
		g.Go(func() error {
			pool, err := a.fetchOne(gctx, factory, index)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				skipped.Add(1)
				a.logger.Warn("pool skipped",
					zap.String("factory", factory.Name),
					zap.Uint64("index", index),
					zap.Error(err),
				)
				return nil
			}
			a.pools.Upsert(pool)
			fetched.Add(1)
			return nil
		})
	}

	waitErr := g.Wait()
	result.Fetched = int(fetched.Load())
	result.Skipped = int(skipped.Load())

	a.logger.Info("fetch finished",
		zap.String("factory", factory.Name),
		zap.Int("fetched", result.Fetched),
		zap.Int("skipped", result.Skipped),
	)
	if waitErr != nil {
		return result, fmt.Errorf("fetch %s: %w", factory.Name, waitErr)
	}
	return result, nil
}

// FetchAllPools runs FetchPools for every configured factory in order. The
// limit applies per factory. A factory whose enumeration fails outright is
// skipped with a warning so one dead factory cannot starve the rest.
func (a *Aggregator) FetchAllPools(ctx context.Context, limit int) ([]FetchResult, error) {
	if len(a.opts.Factories) == 0 {
		return nil, fmt.Errorf("no factories configured")
	}

	results := make([]FetchResult, 0, len(a.opts.Factories))
	for _, factory := range a.opts.Factories {
		res, err := a.FetchPools(ctx, factory, limit)
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			a.logger.Warn("factory fetch failed",
				zap.String("factory", factory.Name),
				zap.Error(err),
			)
		}
		results = append(results, res)
	}
	return results, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, factory Factory, index uint64) (model.Pool, error) {
	var pool model.Pool
	err := withRetry(ctx, a.opts.MaxRetries, a.opts.RetryBackoff, func(ctx context.Context) error {
		if a.opts.ReadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.opts.ReadTimeout)
			defer cancel()
		}
		pair, err := a.reader.PairAddress(ctx, factory.Address, index)
		if err != nil {
			return err
		}
		pool, err = a.reader.ReadPool(ctx, pair, factory.Name)
		return err
	})
	return pool, err
}

// BestQuote returns the best route for the swap under the strategy, computed
// over the current cache contents.
func (a *Aggregator) BestQuote(tokenIn, tokenOut common.Address, amountIn *uint256.Int, strategy model.Strategy) (model.RouteQuote, error) {
	return a.router.BestQuote(a.pools.Snapshot(), tokenIn, tokenOut, amountIn, strategy)
}

// TopQuotes returns up to k routes ordered best-first under the strategy.
func (a *Aggregator) TopQuotes(tokenIn, tokenOut common.Address, amountIn *uint256.Int, strategy model.Strategy, k int) ([]model.RouteQuote, error) {
	return a.router.TopQuotes(a.pools.Snapshot(), tokenIn, tokenOut, amountIn, strategy, k)
}

// Pool returns a single cached pool record.
func (a *Aggregator) Pool(address common.Address) (model.Pool, bool) {
	return a.pools.Get(address)
}

// PoolsWithToken returns cached pools containing the token, address-ordered.
func (a *Aggregator) PoolsWithToken(token common.Address) []model.Pool {
	return a.pools.ByToken(token)
}

// Snapshot returns copies of every cached pool, address-ordered.
func (a *Aggregator) Snapshot() []model.Pool {
	return a.pools.Snapshot()
}

// Restore upserts the given pools into the cache.
func (a *Aggregator) Restore(pools []model.Pool) {
	a.pools.Restore(pools)
}

// ExportCache writes the cache to the given path, or to the configured
// snapshot path when path is empty.
func (a *Aggregator) ExportCache(path string) (int, error) {
	store, err := a.snapshotStore(path)
	if err != nil {
		return 0, err
	}
	pools := a.pools.Snapshot()
	if err := store.Save(pools); err != nil {
		return 0, err
	}
	return len(pools), nil
}

// ImportCache loads a snapshot and merges it into the cache. The document is
// validated wholesale before a single record is applied.
func (a *Aggregator) ImportCache(path string) (int, error) {
	store, err := a.snapshotStore(path)
	if err != nil {
		return 0, err
	}
	pools, err := store.Load()
	if err != nil {
		return 0, err
	}
	a.pools.Restore(pools)
	return len(pools), nil
}

func (a *Aggregator) snapshotStore(path string) (*storage.SnapshotStore, error) {
	if path != "" && (a.snapshots == nil || path != a.snapshots.Path()) {
		return storage.NewSnapshotStore(path), nil
	}
	if a.snapshots == nil {
		return nil, fmt.Errorf("no snapshot path configured")
	}
	return a.snapshots, nil
}

// ClearCache drops every cached pool.
func (a *Aggregator) ClearCache() {
	a.pools.Clear()
}

// CacheStats summarizes the cache contents and persistence configuration.
func (a *Aggregator) CacheStats() model.CacheStats {
	stats := a.pools.Stats(time.Now())
	stats.CacheEnabled = a.opts.CacheEnabled
	if a.snapshots != nil {
		stats.SnapshotPath = a.snapshots.Path()
	}
	return stats
}
