// Package clientdata is the TTL blob cache backing market-data lookups.
// Entries live in client_data.db, serialized with msgpack; the cache is
// disposable and can be rebuilt from the upstream sources at any time.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Table names the cache partitions. Each table has the same shape; the
// split keeps pruning and invalidation per concern.
type Table string

const (
	TableStockQuotes  Table = "stock_quotes"
	TableCryptoQuotes Table = "crypto_quotes"
	TableExchangeRate Table = "exchangerate"
	TableAssetSearch  Table = "asset_search"
)

var knownTables = map[Table]bool{
	TableStockQuotes:  true,
	TableCryptoQuotes: true,
	TableExchangeRate: true,
	TableAssetSearch:  true,
}

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = fmt.Errorf("cache miss")

// Store is the msgpack-over-sqlite cache.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new client-data store
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("store", "clientdata").Logger(),
	}
}

func checkTable(table Table) error {
	if !knownTables[table] {
		return fmt.Errorf("unknown cache table: %s", table)
	}
	return nil
}

// Put serializes value and stores it under key with the given TTL,
// replacing any previous entry.
func (s *Store) Put(table Table, key string, value interface{}, ttl time.Duration) error {
	if err := checkTable(table); err != nil {
		return err
	}
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	now := time.Now().Unix()
	query := fmt.Sprintf(`
		INSERT INTO %s (key, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, table)
	_, err = s.db.Exec(query, key, blob, now+int64(ttl.Seconds()), now)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// GetFresh loads key into dest if the entry exists and has not expired.
// Returns ErrMiss otherwise.
func (s *Store) GetFresh(table Table, key string, dest interface{}) error {
	return s.get(table, key, dest, false)
}

// GetStale loads key into dest regardless of expiry. Used as a fallback
// when the upstream source is unreachable.
func (s *Store) GetStale(table Table, key string, dest interface{}) error {
	return s.get(table, key, dest, true)
}

func (s *Store) get(table Table, key string, dest interface{}, allowStale bool) error {
	if err := checkTable(table); err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT data, expires_at FROM %s WHERE key = ?", table)

	var blob []byte
	var expiresAt int64
	err := s.db.QueryRow(query, key).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache entry: %w", err)
	}
	if !allowStale && time.Now().Unix() >= expiresAt {
		return ErrMiss
	}
	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete removes one entry. Missing keys are not an error.
func (s *Store) Delete(table Table, key string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key)
	return err
}

// PruneExpired deletes expired rows across all tables and returns the
// total number removed. Run from the scheduler.
func (s *Store) PruneExpired() (int64, error) {
	now := time.Now().Unix()
	var total int64
	for table := range knownTables {
		res, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), now)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		s.log.Debug().Int64("removed", total).Msg("Pruned expired cache entries")
	}
	return total, nil
}
