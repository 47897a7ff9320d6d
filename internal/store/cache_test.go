package store

import (
	"testing"

	"github.com/ho8ae/growpromise-sub001/internal/database"
)

func setupCacheTestDB(t *testing.T) *CacheStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCacheStore(db)
}

func TestCachePutGet(t *testing.T) {
	cs := setupCacheTestDB(t)

	if err := cs.Put("member:1:plants", []byte(`{"stage":2}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	entry, err := cs.Get("member:1:plants")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("get returned nil for stored key")
	}
	if string(entry.Value) != `{"stage":2}` {
		t.Errorf("value = %s, want %s", entry.Value, `{"stage":2}`)
	}

	// Put is an upsert
	if err := cs.Put("member:1:plants", []byte(`{"stage":3}`)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	entry, err = cs.Get("member:1:plants")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if string(entry.Value) != `{"stage":3}` {
		t.Errorf("value = %s, want the replacement", entry.Value)
	}

	keys, err := cs.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("key count = %d, want 1 after upsert", len(keys))
	}
}

func TestCacheMissAndDelete(t *testing.T) {
	cs := setupCacheTestDB(t)

	entry, err := cs.Get("member:9:rewards")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if entry != nil {
		t.Errorf("missing key returned %+v, want nil", entry)
	}

	if err := cs.Put("member:9:rewards", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cs.Delete("member:9:rewards"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entry, err = cs.Get("member:9:rewards")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if entry != nil {
		t.Error("key should be gone after delete")
	}
}
