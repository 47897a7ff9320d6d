package model

import "time"

type Reward struct {
	ID                   int64     `json:"id"`
	GuardianID           int64     `json:"guardian_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	RequiredStickerCount int       `json:"required_sticker_count"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type RewardRedemption struct {
	ID          int64     `json:"id"`
	RewardID    int64     `json:"reward_id"`
	DependentID int64     `json:"dependent_id"`
	StickerIDs  []int64   `json:"sticker_ids"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}
