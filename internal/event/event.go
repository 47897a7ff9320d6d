// Package event carries the engine's domain events. The engine publishes
// them; subscribers (websocket fan-out, push notifications) decide what to
// do with them. The engine never formats or delivers notifications itself.
package event

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindAssignmentSubmitted Kind = "assignment_submitted"
	KindAssignmentApproved  Kind = "assignment_approved"
	KindAssignmentRejected  Kind = "assignment_rejected"
	KindRewardRedeemed      Kind = "reward_redeemed"
	KindPlantAdvanced       Kind = "plant_advanced"
)

// Event is the envelope every domain event travels in. IDs are ULIDs, so
// they sort by emission time.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(kind Kind, payload any) Event {
	return Event{
		ID:         ulid.Make().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type AssignmentSubmitted struct {
	AssignmentID int64 `json:"assignment_id"`
	CommitmentID int64 `json:"commitment_id"`
	DependentID  int64 `json:"dependent_id"`
}

type AssignmentApproved struct {
	AssignmentID      int64 `json:"assignment_id"`
	CommitmentID      int64 `json:"commitment_id"`
	DependentID       int64 `json:"dependent_id"`
	StickerID         int64 `json:"sticker_id"`
	ExperienceGranted int   `json:"experience_granted"`
}

type AssignmentRejected struct {
	AssignmentID int64  `json:"assignment_id"`
	CommitmentID int64  `json:"commitment_id"`
	DependentID  int64  `json:"dependent_id"`
	Reason       string `json:"reason"`
}

type RewardRedeemed struct {
	RedemptionID int64 `json:"redemption_id"`
	RewardID     int64 `json:"reward_id"`
	DependentID  int64 `json:"dependent_id"`
	StickerCount int   `json:"sticker_count"`
}

type PlantAdvanced struct {
	PlantID     int64 `json:"plant_id"`
	DependentID int64 `json:"dependent_id"`
	Stage       int   `json:"stage"`
	Completed   bool  `json:"completed"`
}
