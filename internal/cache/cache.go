// Package cache keeps last-known entity snapshots so kiosk devices can
// render something meaningful before their first round-trip after a
// restart. Keys are namespaced per member; values are opaque JSON.
package cache

import (
	"fmt"

	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type Service struct {
	entries *store.CacheStore
}

func NewService(entries *store.CacheStore) *Service {
	return &Service{entries: entries}
}

// Key builds the namespaced cache key for a member and entity name.
func Key(memberID int64, entity string) string {
	return fmt.Sprintf("member:%d:%s", memberID, entity)
}

func (s *Service) Put(memberID int64, entity string, value []byte) error {
	return s.entries.Put(Key(memberID, entity), value)
}

// Get returns the snapshot and true, or nil and false when the key has
// never been written.
func (s *Service) Get(memberID int64, entity string) (*model.CacheEntry, bool, error) {
	e, err := s.entries.Get(Key(memberID, entity))
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}
	return e, true, nil
}

func (s *Service) Delete(memberID int64, entity string) error {
	return s.entries.Delete(Key(memberID, entity))
}

func (s *Service) Keys() ([]string, error) {
	return s.entries.Keys()
}
