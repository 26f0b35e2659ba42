package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routeScope/internal/model"
)

// Store provides Postgres persistence for pool records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database behind dsn.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool records in one batch.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		reserve0, reserve1 := "0", "0"
		if pool.Reserve0 != nil {
			reserve0 = pool.Reserve0.Dec()
		}
		if pool.Reserve1 != nil {
			reserve1 = pool.Reserve1.Dec()
		}
		batch.Queue(`
			INSERT INTO pools (
				pool_address, venue, token0, token1, reserve0, reserve1, fee_bps, last_updated, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				venue = EXCLUDED.venue,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				fee_bps = EXCLUDED.fee_bps,
				last_updated = EXCLUDED.last_updated,
				updated_at = now()
		`,
			pool.Address.Hex(),
			pool.Venue,
			pool.Token0.Hex(),
			pool.Token1.Hex(),
			reserve0,
			reserve1,
			int64(pool.FeeBps),
			pool.LastUpdated,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPools reads all pool records ordered by address.
func (s *Store) LoadPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, venue, token0, token1, reserve0, reserve1, fee_bps, last_updated
		FROM pools
		ORDER BY pool_address ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var (
			address, venue, token0, token1 string
			reserve0, reserve1             string
			feeBps                         int64
			lastUpdated                    int64
		)
		if err := rows.Scan(&address, &venue, &token0, &token1, &reserve0, &reserve1, &feeBps, &lastUpdated); err != nil {
			return nil, err
		}

		r0, err := uint256.FromDecimal(reserve0)
		if err != nil {
			return nil, fmt.Errorf("pool %s reserve0: %w", address, err)
		}
		r1, err := uint256.FromDecimal(reserve1)
		if err != nil {
			return nil, fmt.Errorf("pool %s reserve1: %w", address, err)
		}

		pool := model.Pool{
			Address:     common.HexToAddress(address),
			Venue:       venue,
			Token0:      common.HexToAddress(token0),
			Token1:      common.HexToAddress(token1),
			Reserve0:    r0,
			Reserve1:    r1,
			FeeBps:      uint32(feeBps),
			LastUpdated: lastUpdated,
		}
		pool.Normalize()
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}
