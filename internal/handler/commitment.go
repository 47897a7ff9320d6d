package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/commitment"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type CommitmentHandler struct {
	svc    *commitment.Service
	logger *slog.Logger
}

func NewCommitmentHandler(svc *commitment.Service, logger *slog.Logger) *CommitmentHandler {
	return &CommitmentHandler{svc: svc, logger: logger}
}

type commitmentRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Recurrence  string     `json:"recurrence"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (req commitmentRequest) input() commitment.CommitmentInput {
	return commitment.CommitmentInput{
		Title:       req.Title,
		Description: req.Description,
		Recurrence:  req.Recurrence,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
}

func (h *CommitmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	c, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CommitmentHandler) List(w http.ResponseWriter, r *http.Request) {
	commitments, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if commitments == nil {
		commitments = []model.Commitment{}
	}
	writeJSON(w, http.StatusOK, commitments)
}

func (h *CommitmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CommitmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req commitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	c, err := h.svc.Update(r.Context(), id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CommitmentHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := h.svc.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommitmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Instantiate materializes dated assignments for a commitment and
// dependent over the requested window.
func (h *CommitmentHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		DependentID int64     `json:"dependent_id"`
		From        time.Time `json:"from"`
		To          time.Time `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	created, err := h.svc.Instantiate(r.Context(), id, req.DependentID, req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	if created == nil {
		created = []model.Assignment{}
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CommitmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	assignments, err := h.svc.AssignmentsForCommitment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// MyAssignments lists assignments for the calling dependent, or for
// ?dependent_id= when a guardian asks.
func (h *CommitmentHandler) MyAssignments(w http.ResponseWriter, r *http.Request) {
	dependentID := auth.MemberID(r.Context())
	if q := r.URL.Query().Get("dependent_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dependent_id"})
			return
		}
		dependentID = id
	}

	assignments, err := h.svc.AssignmentsForDependent(r.Context(), dependentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (h *CommitmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	a, err := h.svc.Assignment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *CommitmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		ImageRef string `json:"image_ref"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	a, err := h.svc.SubmitVerification(r.Context(), id, req.ImageRef, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *CommitmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	a, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *CommitmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	a, err := h.svc.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
