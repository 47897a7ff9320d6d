package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ho8ae/growpromise-sub001/internal/growth"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type PlantHandler struct {
	svc    *growth.Service
	logger *slog.Logger
}

func NewPlantHandler(svc *growth.Service, logger *slog.Logger) *PlantHandler {
	return &PlantHandler{svc: svc, logger: logger}
}

func (h *PlantHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListPlantTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if types == nil {
		types = []model.PlantType{}
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *PlantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlantTypeID int64 `json:"plant_type_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	plant, err := h.svc.CreatePlant(r.Context(), req.PlantTypeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plant)
}

// Active returns the caller's growing plant, or a guardian's chosen
// dependent's via ?dependent_id=.
func (h *PlantHandler) Active(w http.ResponseWriter, r *http.Request) {
	id, err := dependentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
		return
	}
	plant, err := h.svc.ActivePlant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if plant == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no active plant"})
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *PlantHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := dependentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
		return
	}
	plants, err := h.svc.ListPlants(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if plants == nil {
		plants = []model.Plant{}
	}
	writeJSON(w, http.StatusOK, plants)
}

func (h *PlantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	plant, err := h.svc.GetPlant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *PlantHandler) Water(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	result, err := h.svc.Water(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GrantExperience adds experience to a plant outside the approval flow,
// for guardian-initiated bonuses.
func (h *PlantHandler) GrantExperience(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	plant, err := h.svc.GrantExperience(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *PlantHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	plant, err := h.svc.AdvanceStage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *PlantHandler) WateringHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	logs, err := h.svc.WateringHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []model.WateringLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
