package model

import "time"

const (
	RoleGuardian  = "guardian"
	RoleDependent = "dependent"
)

type Member struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	AvatarEmoji string    `json:"avatar_emoji"`
	HasPIN      bool      `json:"has_pin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
