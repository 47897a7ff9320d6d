package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

const sessionTTL = 90 * 24 * time.Hour

type SessionHandler struct {
	members  *store.MemberStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewSessionHandler(members *store.MemberStore, sessions *store.SessionStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{members: members, sessions: sessions, logger: logger}
}

// Login exchanges a member id plus PIN for a bearer token. Members without
// a PIN log in with an empty one; setting a PIN is how a family opts into
// locking an account.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID int64  `json:"member_id"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	member, err := h.members.GetByID(req.MemberID)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if member == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	if member.HasPIN {
		hash, err := h.members.GetPINHash(req.MemberID)
		if err != nil {
			h.logger.Error("login pin hash", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
		if !auth.VerifyPIN(hash, req.PIN) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		h.logger.Error("generate token", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	sess, err := h.sessions.Create(token, member.ID, time.Now().UTC().Add(sessionTTL))
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"member":     member,
	})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if tok, found := cutBearer(token); found {
		if err := h.sessions.Delete(tok); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return "", false
}
