package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/ledger"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type LedgerHandler struct {
	svc    *ledger.Service
	logger *slog.Logger
}

func NewLedgerHandler(svc *ledger.Service, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// dependentID resolves which dependent a read targets: the caller when
// they are a dependent, ?dependent_id= when a guardian asks.
func dependentID(r *http.Request) (int64, error) {
	if q := r.URL.Query().Get("dependent_id"); q != "" {
		return strconv.ParseInt(q, 10, 64)
	}
	return auth.MemberID(r.Context()), nil
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := dependentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
		return
	}
	balance, err := h.svc.Balance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *LedgerHandler) ListStickers(w http.ResponseWriter, r *http.Request) {
	id, err := dependentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
		return
	}
	stickers, err := h.svc.ListStickers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if stickers == nil {
		stickers = []model.Sticker{}
	}
	writeJSON(w, http.StatusOK, stickers)
}

func (h *LedgerHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	id, err := dependentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
		return
	}
	redemptions, err := h.svc.ListRedemptions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if redemptions == nil {
		redemptions = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

type rewardRequest struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	RequiredStickerCount int    `json:"required_sticker_count"`
	Active               bool   `json:"active"`
}

func (h *LedgerHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	reward, err := h.svc.CreateReward(r.Context(), req.Title, req.Description, req.RequiredStickerCount, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *LedgerHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.svc.ListRewards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *LedgerHandler) GetReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	reward, err := h.svc.GetReward(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *LedgerHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	reward, err := h.svc.UpdateReward(r.Context(), id, req.Title, req.Description, req.RequiredStickerCount, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *LedgerHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := h.svc.DeleteReward(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	redemption, err := h.svc.Redeem(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, redemption)
}
