package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ho8ae/growpromise-sub001/internal/commitment"
	"github.com/ho8ae/growpromise-sub001/internal/growth"
	"github.com/ho8ae/growpromise-sub001/internal/ledger"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/queue"
)

// SyncHandler exposes the pending-action queue: enqueue while offline
// actions pile up, drain to replay them against the engine in order.
type SyncHandler struct {
	queue       *queue.Service
	commitments *commitment.Service
	growth      *growth.Service
	ledger      *ledger.Service
	logger      *slog.Logger
}

func NewSyncHandler(q *queue.Service, cs *commitment.Service, gs *growth.Service, ls *ledger.Service, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		queue:       q,
		commitments: cs,
		growth:      gs,
		ledger:      ls,
		logger:      logger,
	}
}

func (h *SyncHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	action, err := decodeRaw(req.Kind, req.Payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	entry, err := h.queue.Enqueue(r.Context(), req.Kind, action)
	if err != nil {
		h.logger.Error("enqueue action", "kind", req.Kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to enqueue"})
		return
	}
	writeJSON(w, http.StatusAccepted, entry)
}

func decodeRaw(kind string, payload json.RawMessage) (any, error) {
	entry := &model.PendingAction{Kind: kind, Payload: payload}
	return queue.Decode(entry)
}

func (h *SyncHandler) Pending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queue.Pending(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list queue"})
		return
	}
	if entries == nil {
		entries = []model.PendingAction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Drain replays the queue as the calling member and returns one result
// per entry.
func (h *SyncHandler) Drain(w http.ResponseWriter, r *http.Request) {
	results, err := h.queue.Drain(r.Context(), h.replay)
	if err != nil {
		h.logger.Error("drain queue", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to drain queue"})
		return
	}
	if results == nil {
		results = []queue.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *SyncHandler) replay(ctx context.Context, action any) error {
	switch a := action.(type) {
	case queue.SubmitVerification:
		_, err := h.commitments.SubmitVerification(ctx, a.AssignmentID, a.ImageRef, a.Note)
		return err
	case queue.WaterPlant:
		_, err := h.growth.Water(ctx, a.PlantID)
		return err
	case queue.RedeemReward:
		_, err := h.ledger.Redeem(ctx, a.RewardID)
		return err
	default:
		return fmt.Errorf("unknown action type %T", action)
	}
}
