// Package handler exposes the engine over JSON HTTP. Handlers stay thin:
// decode, call the service, map the error, encode.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/fault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type errorResponse struct {
	Error     string `json:"error"`
	Shortfall int    `json:"shortfall,omitempty"`
	NextAt    string `json:"next_at,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Expected outcomes
// (invalid transition, short balance, already watered, not enough
// experience) are 409: the request was well formed, the state said no.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *fault.ValidationError
		transition   *fault.InvalidTransitionError
		insufficient *fault.InsufficientBalanceError
		watered      *fault.AlreadyWateredError
		experience   *fault.NotEnoughExperienceError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.Is(err, fault.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, fault.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: transition.Error()})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     insufficient.Error(),
			Shortfall: insufficient.Shortfall(),
		})
	case errors.As(err, &watered):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:  watered.Error(),
			NextAt: watered.NextAt.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &experience):
		writeJSON(w, http.StatusConflict, errorResponse{Error: experience.Error()})
	case errors.Is(err, fault.ErrPlantCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "plant is already fully grown"})
	case fault.IsRetryable(err):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
