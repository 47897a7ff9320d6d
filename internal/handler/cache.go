package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/cache"
)

const maxSnapshotBytes = 256 * 1024

// CacheHandler lets a device persist and recover entity snapshots keyed by
// its member. Entries belong to the caller; there is no cross-member read.
type CacheHandler struct {
	svc    *cache.Service
	logger *slog.Logger
}

func NewCacheHandler(svc *cache.Service, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{svc: svc, logger: logger}
}

func (h *CacheHandler) Put(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	if entity == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "entity is required"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}
	if len(body) > maxSnapshotBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "snapshot too large"})
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "snapshot must be valid JSON"})
		return
	}

	if err := h.svc.Put(auth.MemberID(r.Context()), entity, body); err != nil {
		h.logger.Error("put snapshot", "entity", entity, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store snapshot"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CacheHandler) Get(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	entry, ok, err := h.svc.Get(auth.MemberID(r.Context()), entity)
	if err != nil {
		h.logger.Error("get snapshot", "entity", entity, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load snapshot"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", entry.UpdatedAt.UTC().Format(http.TimeFormat))
	w.Write(entry.Value)
}

func (h *CacheHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	if err := h.svc.Delete(auth.MemberID(r.Context()), entity); err != nil {
		h.logger.Error("delete snapshot", "entity", entity, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete snapshot"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
