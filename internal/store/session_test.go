package store

import (
	"testing"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *MemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewMemberStore(db)
}

func TestSessionLookup(t *testing.T) {
	ss, ms := setupSessionTestDB(t)
	guardian, _ := createFamily(t, ms)

	expires := time.Now().Add(time.Hour)
	created, err := ss.Create("tok-valid", guardian.ID, expires)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if created.MemberID != guardian.ID {
		t.Errorf("member id = %d, want %d", created.MemberID, guardian.ID)
	}

	got, err := ss.GetByToken("tok-valid")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.MemberID != guardian.ID {
		t.Fatalf("lookup = %+v, want session for member %d", got, guardian.ID)
	}

	missing, err := ss.GetByToken("tok-unknown")
	if err != nil {
		t.Fatalf("get unknown token: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown token returned %+v, want nil", missing)
	}
}

func TestSessionExpiry(t *testing.T) {
	ss, ms := setupSessionTestDB(t)
	guardian, _ := createFamily(t, ms)

	if _, err := ss.Create("tok-stale", guardian.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	if _, err := ss.Create("tok-fresh", guardian.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create fresh session: %v", err)
	}

	got, err := ss.GetByToken("tok-stale")
	if err != nil {
		t.Fatalf("get stale token: %v", err)
	}
	if got != nil {
		t.Errorf("expired session returned %+v, want nil", got)
	}

	deleted, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	got, err = ss.GetByToken("tok-fresh")
	if err != nil {
		t.Fatalf("get fresh token: %v", err)
	}
	if got == nil {
		t.Error("fresh session should survive cleanup")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, ms := setupSessionTestDB(t)
	guardian, _ := createFamily(t, ms)

	if _, err := ss.Create("tok-logout", guardian.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.Delete("tok-logout"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err := ss.GetByToken("tok-logout")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("session should be gone after delete")
	}
}
