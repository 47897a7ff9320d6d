package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/push"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type PushHandler struct {
	subs    *store.PushStore
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(subs *store.PushStore, service *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, service: service, logger: logger}
}

func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint   string `json:"endpoint"`
		P256dhKey  string `json:"p256dh_key"`
		AuthKey    string `json:"auth_key"`
		DeviceName string `json:"device_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "endpoint and keys are required"})
		return
	}

	sub, err := h.subs.Upsert(auth.MemberID(r.Context()), req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName)
	if err != nil {
		h.logger.Error("upsert subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to subscribe"})
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListByMember(auth.MemberID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := h.subs.DeleteByEndpoint(req.Endpoint); err != nil {
		h.logger.Error("delete subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to unsubscribe"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test sends a notification to the caller's own devices.
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListByMember(auth.MemberID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list subscriptions"})
		return
	}
	if len(subs) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no subscriptions"})
		return
	}

	payload := push.Payload{Title: "Test notification", Body: "Push notifications are working"}
	sent := 0
	for i := range subs {
		if err := h.service.Send(&subs[i], payload); err != nil {
			h.logger.Warn("send test push", "endpoint", subs[i].Endpoint, "error", err)
			continue
		}
		sent++
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
