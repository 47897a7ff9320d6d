package model

import "time"

// CacheEntry is a last-known entity snapshot keyed by cache key. The value
// is an opaque JSON blob; staleness is the caller's problem.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
