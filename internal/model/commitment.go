package model

import "time"

// AssignmentStatus is the lifecycle state of one assignment. Approved and
// expired are terminal; rejected can be re-submitted.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusSubmitted AssignmentStatus = "submitted"
	StatusApproved  AssignmentStatus = "approved"
	StatusRejected  AssignmentStatus = "rejected"
	StatusExpired   AssignmentStatus = "expired"
)

// Valid reports whether s is one of the five known statuses.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the assignment can never transition again.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusApproved || s == StatusExpired
}

type Commitment struct {
	ID          int64      `json:"id"`
	GuardianID  int64      `json:"guardian_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Recurrence  string     `json:"recurrence"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Assignment struct {
	ID               int64            `json:"id"`
	CommitmentID     int64            `json:"commitment_id"`
	DependentID      int64            `json:"dependent_id"`
	DueDate          time.Time        `json:"due_date"`
	Status           AssignmentStatus `json:"status"`
	VerificationRef  string           `json:"verification_ref,omitempty"`
	VerificationNote string           `json:"verification_note,omitempty"`
	VerificationTime *time.Time       `json:"verification_time,omitempty"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
