package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"routeScope/internal/model"
)

const snapshotVersion = 1

// snapshotFile is the on-disk snapshot document. Reserves are decimal strings
// so the file stays readable and diffable.
type snapshotFile struct {
	Version    int              `json:"version"`
	ExportedAt int64            `json:"exported_at"`
	Pools      []snapshotRecord `json:"pools"`
}

type snapshotRecord struct {
	Address     string `json:"address"`
	Venue       string `json:"venue"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
	FeeBps      uint32 `json:"fee_bps"`
	LastUpdated int64  `json:"last_updated"`
}

// SnapshotStore persists pool records to a JSON snapshot file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store bound to the given path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the configured snapshot path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes the records atomically (tmp file + rename). Callers pass pools
// already ordered by address; the order is preserved in the document.
func (s *SnapshotStore) Save(pools []model.Pool) error {
	doc := snapshotFile{
		Version:    snapshotVersion,
		ExportedAt: time.Now().Unix(),
		Pools:      make([]snapshotRecord, 0, len(pools)),
	}
	for _, pool := range pools {
		doc.Pools = append(doc.Pools, toRecord(pool))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &model.PersistenceError{Op: "marshal snapshot", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &model.PersistenceError{Op: "create snapshot dir", Path: s.path, Err: err}
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return &model.PersistenceError{Op: "write snapshot tmp", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &model.PersistenceError{Op: "rename snapshot", Path: s.path, Err: err}
	}
	return nil
}

// Load reads and validates the whole document before returning any records.
// A malformed document is rejected wholesale so a failed import can never
// leave a partially restored cache behind.
func (s *SnapshotStore) Load() ([]model.Pool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &model.PersistenceError{Op: "read snapshot", Path: s.path, Err: err}
	}

	var doc snapshotFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.PersistenceError{Op: "parse snapshot", Path: s.path, Err: err}
	}

	pools := make([]model.Pool, 0, len(doc.Pools))
	for i, rec := range doc.Pools {
		pool, err := fromRecord(rec)
		if err != nil {
			return nil, &model.PersistenceError{
				Op:   "validate snapshot",
				Path: s.path,
				Err:  fmt.Errorf("record %d: %w", i, err),
			}
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// Exists reports whether a snapshot file is present at the configured path.
func (s *SnapshotStore) Exists() bool {
	stat, err := os.Stat(s.path)
	return err == nil && !stat.IsDir()
}

func toRecord(pool model.Pool) snapshotRecord {
	rec := snapshotRecord{
		Address:     pool.Address.Hex(),
		Venue:       pool.Venue,
		Token0:      pool.Token0.Hex(),
		Token1:      pool.Token1.Hex(),
		Reserve0:    "0",
		Reserve1:    "0",
		FeeBps:      pool.FeeBps,
		LastUpdated: pool.LastUpdated,
	}
	if pool.Reserve0 != nil {
		rec.Reserve0 = pool.Reserve0.Dec()
	}
	if pool.Reserve1 != nil {
		rec.Reserve1 = pool.Reserve1.Dec()
	}
	return rec
}

func fromRecord(rec snapshotRecord) (model.Pool, error) {
	if !common.IsHexAddress(rec.Address) {
		return model.Pool{}, fmt.Errorf("invalid pool address %q", rec.Address)
	}
	if !common.IsHexAddress(rec.Token0) || !common.IsHexAddress(rec.Token1) {
		return model.Pool{}, fmt.Errorf("invalid token address in pool %s", rec.Address)
	}

	reserve0, err := uint256.FromDecimal(rec.Reserve0)
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve0 %q: %w", rec.Reserve0, err)
	}
	reserve1, err := uint256.FromDecimal(rec.Reserve1)
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve1 %q: %w", rec.Reserve1, err)
	}

	pool := model.Pool{
		Address:     common.HexToAddress(rec.Address),
		Venue:       rec.Venue,
		Token0:      common.HexToAddress(rec.Token0),
		Token1:      common.HexToAddress(rec.Token1),
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		FeeBps:      rec.FeeBps,
		LastUpdated: rec.LastUpdated,
	}
	pool.Normalize()
	return pool, nil
}
