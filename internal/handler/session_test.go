package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/database"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type sessionHandlerFixture struct {
	handler  *SessionHandler
	members  *store.MemberStore
	sessions *store.SessionStore
	member   *model.Member
}

func setupSessionHandlerTest(t *testing.T) *sessionHandlerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	members := store.NewMemberStore(db)
	sessions := store.NewSessionStore(db)
	member, err := members.Create("Mina", model.RoleGuardian, "🌻")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return &sessionHandlerFixture{
		handler:  NewSessionHandler(members, sessions, slog.Default()),
		members:  members,
		sessions: sessions,
		member:   member,
	}
}

func (f *sessionHandlerFixture) login(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.Login(rec, req)
	return rec
}

func TestLoginWithoutPIN(t *testing.T) {
	f := setupSessionHandlerTest(t)

	rec := f.login(t, `{"member_id": `+jsonID(f.member.ID)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Token  string        `json:"token"`
		Member *model.Member `json:"member"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login should return a token")
	}
	if resp.Member == nil || resp.Member.ID != f.member.ID {
		t.Errorf("member = %+v, want id %d", resp.Member, f.member.ID)
	}

	sess, err := f.sessions.GetByToken(resp.Token)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if sess == nil || sess.MemberID != f.member.ID {
		t.Errorf("session = %+v, want one for member %d", sess, f.member.ID)
	}
}

func TestLoginWithPIN(t *testing.T) {
	f := setupSessionHandlerTest(t)

	hash, err := auth.HashPIN("4921")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if err := f.members.SetPIN(f.member.ID, hash); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	rec := f.login(t, `{"member_id": `+jsonID(f.member.ID)+`, "pin": "0000"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong pin: status = %d, want 401", rec.Code)
	}

	rec = f.login(t, `{"member_id": `+jsonID(f.member.ID)+`}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing pin: status = %d, want 401", rec.Code)
	}

	rec = f.login(t, `{"member_id": `+jsonID(f.member.ID)+`, "pin": "4921"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("correct pin: status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestLoginUnknownMember(t *testing.T) {
	f := setupSessionHandlerTest(t)

	rec := f.login(t, `{"member_id": 9999}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = f.login(t, `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	f := setupSessionHandlerTest(t)

	rec := f.login(t, `{"member_id": `+jsonID(f.member.ID)+`}`)
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	f.handler.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	sess, err := f.sessions.GetByToken(resp.Token)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if sess != nil {
		t.Error("session should be gone after logout")
	}
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
