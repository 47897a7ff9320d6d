package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/fault"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	nextAt := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fault.Validationf("title is required"), http.StatusBadRequest},
		{"permission", fault.ErrPermissionDenied, http.StatusForbidden},
		{"not found", fault.ErrNotFound, http.StatusNotFound},
		{"invalid transition", &fault.InvalidTransitionError{AssignmentID: 1, From: "approved", Op: "submit"}, http.StatusConflict},
		{"insufficient balance", &fault.InsufficientBalanceError{Required: 5, Available: 2}, http.StatusConflict},
		{"already watered", &fault.AlreadyWateredError{NextAt: nextAt}, http.StatusConflict},
		{"not enough experience", &fault.NotEnoughExperienceError{Experience: 10, Required: 100}, http.StatusConflict},
		{"plant completed", fault.ErrPlantCompleted, http.StatusConflict},
		{"transport", &fault.TransportError{Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: content type = %q, want application/json", tc.name, ct)
		}
	}
}

func TestWriteErrorBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &fault.InsufficientBalanceError{Required: 5, Available: 2})
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Shortfall != 3 {
		t.Errorf("shortfall = %d, want 3", body.Shortfall)
	}

	nextAt := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	rec = httptest.NewRecorder()
	writeError(rec, &fault.AlreadyWateredError{NextAt: nextAt})
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.NextAt != "2026-03-03T08:00:00Z" {
		t.Errorf("next_at = %q, want RFC 3339 UTC", body.NextAt)
	}
}

func TestCutBearer(t *testing.T) {
	if tok, ok := cutBearer("Bearer abc123"); !ok || tok != "abc123" {
		t.Errorf("cutBearer = %q/%v, want abc123/true", tok, ok)
	}
	if _, ok := cutBearer("Basic abc123"); ok {
		t.Error("non-bearer header should not match")
	}
	if _, ok := cutBearer(""); ok {
		t.Error("empty header should not match")
	}
}
