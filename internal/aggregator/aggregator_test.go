package aggregator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"routeScope/internal/model"
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

// stubReader serves pools from memory and can be told to fail specific
// indexes, either permanently or for the first N attempts.
type stubReader struct {
	mu       sync.Mutex
	pools    []model.Pool
	failures map[uint64]int // index -> remaining failures, -1 means always
	countErr error
	attempts map[uint64]int
}

func newStubReader(pools ...model.Pool) *stubReader {
	return &stubReader{
		pools:    pools,
		failures: make(map[uint64]int),
		attempts: make(map[uint64]int),
	}
}

func (s *stubReader) PairCount(ctx context.Context, factory common.Address) (uint64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return uint64(len(s.pools)), nil
}

func (s *stubReader) PairAddress(ctx context.Context, factory common.Address, index uint64) (common.Address, error) {
	if index >= uint64(len(s.pools)) {
		return common.Address{}, fmt.Errorf("index %d out of range", index)
	}
	return s.pools[index].Address, nil
}

func (s *stubReader) ReadPool(ctx context.Context, pair common.Address, venue string) (model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pool := range s.pools {
		if pool.Address != pair {
			continue
		}
		index := uint64(i)
		s.attempts[index]++
		if remaining, ok := s.failures[index]; ok {
			if remaining < 0 {
				return model.Pool{}, fmt.Errorf("pool %s unavailable", pair.Hex())
			}
			if remaining > 0 {
				s.failures[index] = remaining - 1
				return model.Pool{}, fmt.Errorf("pool %s transient failure", pair.Hex())
			}
		}
		out := pool.Clone()
		out.Venue = venue
		out.LastUpdated = time.Now().Unix()
		return out, nil
	}
	return model.Pool{}, fmt.Errorf("unknown pair %s", pair.Hex())
}

func stubPool(address, token0, token1 byte, r0, r1 uint64) model.Pool {
	p := model.Pool{
		Address:  addr(address),
		Token0:   addr(token0),
		Token1:   addr(token1),
		Reserve0: uint256.NewInt(r0),
		Reserve1: uint256.NewInt(r1),
		FeeBps:   model.DefaultFeeBps,
	}
	p.Normalize()
	return p
}

func testOptions() Options {
	return Options{
		Factories:        []Factory{{Name: "uniswap_v2", Address: addr(0xAA)}},
		MaxRetries:       2,
		RetryBackoff:     time.Millisecond,
		FetchConcurrency: 4,
	}
}

func TestFetchPoolsHappyPath(t *testing.T) {
	reader := newStubReader(
		stubPool(0x10, 1, 2, 1000, 2000),
		stubPool(0x20, 2, 3, 3000, 4000),
		stubPool(0x30, 1, 3, 5000, 6000),
	)
	agg := New(testOptions(), reader, nil)

	res, err := agg.FetchPools(context.Background(), Factory{Name: "uniswap_v2", Address: addr(0xAA)}, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Fetched != 3 || res.Skipped != 0 || res.Requested != 3 {
		t.Fatalf("result = %+v", res)
	}

	pool, ok := agg.Pool(addr(0x10))
	if !ok {
		t.Fatalf("fetched pool missing from cache")
	}
	if pool.Venue != "uniswap_v2" {
		t.Fatalf("venue = %q", pool.Venue)
	}
}

func TestFetchPoolsLimit(t *testing.T) {
	reader := newStubReader(
		stubPool(0x10, 1, 2, 1, 1),
		stubPool(0x20, 2, 3, 1, 1),
		stubPool(0x30, 1, 3, 1, 1),
	)
	agg := New(testOptions(), reader, nil)

	res, err := agg.FetchPools(context.Background(), Factory{Name: "uniswap_v2", Address: addr(0xAA)}, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Requested != 2 || res.Fetched != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestFetchPoolsSkipsFailedReads(t *testing.T) {
	reader := newStubReader(
		stubPool(0x10, 1, 2, 1, 1),
		stubPool(0x20, 2, 3, 1, 1),
		stubPool(0x30, 1, 3, 1, 1),
	)
	reader.failures[1] = -1 // always fails

	agg := New(testOptions(), reader, nil)
	res, err := agg.FetchPools(context.Background(), Factory{Name: "uniswap_v2", Address: addr(0xAA)}, 0)
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}
	if res.Fetched != 2 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, ok := agg.Pool(addr(0x20)); ok {
		t.Fatalf("failed pool must not be cached")
	}
}

func TestFetchPoolsRetriesTransientFailures(t *testing.T) {
	reader := newStubReader(stubPool(0x10, 1, 2, 1, 1))
	reader.failures[0] = 1 // fail once, then succeed

	agg := New(testOptions(), reader, nil)
	res, err := agg.FetchPools(context.Background(), Factory{Name: "uniswap_v2", Address: addr(0xAA)}, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Fetched != 1 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}
	if reader.attempts[0] != 2 {
		t.Fatalf("attempts = %d, want 2", reader.attempts[0])
	}
}

func TestFetchPoolsEnumerationFailureIsFatal(t *testing.T) {
	reader := newStubReader()
	reader.countErr = errors.New("rpc down")

	agg := New(testOptions(), reader, nil)
	if _, err := agg.FetchPools(context.Background(), Factory{Name: "uniswap_v2", Address: addr(0xAA)}, 0); err == nil {
		t.Fatalf("enumeration failure must surface")
	}
}

func TestFetchAllPoolsSurvivesDeadFactory(t *testing.T) {
	good := newStubReader(stubPool(0x10, 1, 2, 1, 1))

	opts := testOptions()
	opts.Factories = []Factory{
		{Name: "dead", Address: addr(0xBB)},
		{Name: "uniswap_v2", Address: addr(0xAA)},
	}

	// The stub serves every factory address; make the first one fail by
	// pointing enumeration failures at it via a wrapper.
	agg := New(opts, &factorySelectiveReader{inner: good, dead: addr(0xBB)}, nil)

	results, err := agg.FetchAllPools(context.Background(), 0)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want results for both factories, got %d", len(results))
	}
	if results[1].Fetched != 1 {
		t.Fatalf("live factory result = %+v", results[1])
	}
}

type factorySelectiveReader struct {
	inner *stubReader
	dead  common.Address
}

func (f *factorySelectiveReader) PairCount(ctx context.Context, factory common.Address) (uint64, error) {
	if factory == f.dead {
		return 0, errors.New("factory unreachable")
	}
	return f.inner.PairCount(ctx, factory)
}

func (f *factorySelectiveReader) PairAddress(ctx context.Context, factory common.Address, index uint64) (common.Address, error) {
	return f.inner.PairAddress(ctx, factory, index)
}

func (f *factorySelectiveReader) ReadPool(ctx context.Context, pair common.Address, venue string) (model.Pool, error) {
	return f.inner.ReadPool(ctx, pair, venue)
}

func TestQuoteThroughFacade(t *testing.T) {
	agg := New(testOptions(), nil, nil)
	agg.Restore([]model.Pool{stubPool(0x10, 1, 2, 1000, 2000)})

	quote, err := agg.BestQuote(addr(1), addr(2), uint256.NewInt(100), model.StrategyPrice)
	if err != nil {
		t.Fatalf("best quote: %v", err)
	}
	if quote.AmountOut.Uint64() != 180 {
		t.Fatalf("amount out = %s, want 180", quote.AmountOut.Dec())
	}

	_, err = agg.TopQuotes(addr(1), addr(9), uint256.NewInt(100), model.StrategyPrice, 3)
	var nre *model.NoRouteError
	if !errors.As(err, &nre) {
		t.Fatalf("want NoRouteError for unknown token, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.json")

	opts := testOptions()
	opts.CachePath = path
	agg := New(opts, nil, nil)
	agg.Restore([]model.Pool{
		stubPool(0x10, 1, 2, 1000, 2000),
		stubPool(0x20, 2, 3, 3000, 4000),
	})

	n, err := agg.ExportCache("")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d pools, want 2", n)
	}

	fresh := New(opts, nil, nil)
	m, err := fresh.ImportCache(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if m != 2 || fresh.CacheStats().TotalPools != 2 {
		t.Fatalf("import restored %d pools, stats %+v", m, fresh.CacheStats())
	}
}

func TestAutoImportOnConstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.json")

	opts := testOptions()
	opts.CachePath = path
	opts.CacheEnabled = true

	seed := New(opts, nil, nil)
	seed.Restore([]model.Pool{stubPool(0x10, 1, 2, 1000, 2000)})
	if _, err := seed.ExportCache(""); err != nil {
		t.Fatalf("export: %v", err)
	}

	agg := New(opts, nil, nil)
	if agg.CacheStats().TotalPools != 1 {
		t.Fatalf("snapshot not auto-imported: %+v", agg.CacheStats())
	}
}

func TestImportRejectsMalformedSnapshot(t *testing.T) {
	agg := New(testOptions(), nil, nil)
	agg.Restore([]model.Pool{stubPool(0x10, 1, 2, 1000, 2000)})

	_, err := agg.ImportCache(filepath.Join(t.TempDir(), "missing.json"))
	var perr *model.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("want PersistenceError, got %v", err)
	}
	if agg.CacheStats().TotalPools != 1 {
		t.Fatalf("failed import must leave the cache untouched")
	}
}

func TestCacheStatsCarriesPersistenceConfig(t *testing.T) {
	opts := testOptions()
	opts.CachePath = "/tmp/pools.json"
	opts.CacheEnabled = true

	agg := New(opts, nil, nil)
	stats := agg.CacheStats()
	if stats.SnapshotPath != "/tmp/pools.json" || !stats.CacheEnabled {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestClearCache(t *testing.T) {
	agg := New(testOptions(), nil, nil)
	agg.Restore([]model.Pool{stubPool(0x10, 1, 2, 1, 1)})

	agg.ClearCache()
	if agg.CacheStats().TotalPools != 0 {
		t.Fatalf("clear left pools behind")
	}
}
