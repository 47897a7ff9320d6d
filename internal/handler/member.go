package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type MemberHandler struct {
	members *store.MemberStore
	logger  *slog.Logger
}

func NewMemberHandler(members *store.MemberStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: members, logger: logger}
}

type memberRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	AvatarEmoji string `json:"avatar_emoji"`
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	if req.Role != model.RoleGuardian && req.Role != model.RoleDependent {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "role must be guardian or dependent"})
		return
	}

	member, err := h.members.Create(req.Name, req.Role, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create member"})
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List()
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list members"})
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	member, err := h.members.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get member"})
		return
	}
	if member == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "member not found"})
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	member, err := h.members.Update(id, req.Name, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to update member"})
		return
	}
	if member == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "member not found"})
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := h.members.Delete(id); err != nil {
		h.logger.Error("delete member", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete member"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPIN sets or replaces a member's PIN. Guardians manage every PIN;
// members may set their own.
func (h *MemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	ident, _ := auth.FromContext(r.Context())
	if ident.Role != model.RoleGuardian && ident.MemberID != id {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if len(req.PIN) < 4 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pin must be at least 4 digits"})
		return
	}

	hashed, err := auth.HashPIN(req.PIN)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to set pin"})
		return
	}
	if err := h.members.SetPIN(id, hashed); err != nil {
		h.logger.Error("set pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to set pin"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := h.members.ClearPIN(id); err != nil {
		h.logger.Error("clear pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to clear pin"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
