package store

import (
	"database/sql"
	"fmt"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

// CacheStore is the keyed snapshot store: last-known entity state by cache
// key. Values are opaque JSON; the store never interprets them.
type CacheStore struct {
	db *sql.DB
}

func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db}
}

func (s *CacheStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("put cache entry %q: %w", key, err)
	}
	return nil
}

func (s *CacheStore) Get(key string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var value string
	err := s.db.QueryRow(`SELECT key, value, updated_at FROM cache_entries WHERE key = ?`, key).
		Scan(&e.Key, &value, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %q: %w", key, err)
	}
	e.Value = []byte(value)
	return &e, nil
}

func (s *CacheStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

// Keys returns all cache keys, sorted. Mostly useful for debugging and
// cache invalidation sweeps.
func (s *CacheStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM cache_entries ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
