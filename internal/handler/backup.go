package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ho8ae/growpromise-sub001/internal/backup"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

// BackupHandler is guardian-only; routes are registered behind
// RequireGuardian.
type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(manager *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: manager, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	backups, err := h.manager.List(limit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	record, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore backup", "backup_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored, restart required"})
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "backup_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	io.Copy(w, body)
}
