package model

import "time"

// Sticker is one unit of spendable reward currency. Exactly one sticker
// exists per approved assignment; RedeemedByRewardID is nil while the
// sticker is still available.
type Sticker struct {
	ID                 int64     `json:"id"`
	DependentID        int64     `json:"dependent_id"`
	SourceAssignmentID int64     `json:"source_assignment_id"`
	Title              string    `json:"title"`
	ImageRef           string    `json:"image_ref"`
	MintedAt           time.Time `json:"minted_at"`
	RedeemedByRewardID *int64    `json:"redeemed_by_reward_id,omitempty"`
}

// StickerBalance is always derived from the sticker rows, never stored.
type StickerBalance struct {
	DependentID   int64 `json:"dependent_id"`
	TotalMinted   int   `json:"total_minted"`
	TotalRedeemed int   `json:"total_redeemed"`
	Available     int   `json:"available"`
}
