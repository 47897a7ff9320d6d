package model

import "time"

// PlantType is a catalog entry describing how a plant species grows.
type PlantType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MaxStage  int       `json:"max_stage"`
	ImageRef  string    `json:"image_ref"`
	CreatedAt time.Time `json:"created_at"`
}

// Plant is one dependent's growth-simulation instance. A dependent has at
// most one plant with Completed == false at any time.
type Plant struct {
	ID                  int64      `json:"id"`
	DependentID         int64      `json:"dependent_id"`
	PlantTypeID         int64      `json:"plant_type_id"`
	Stage               int        `json:"stage"`
	Health              int        `json:"health"`
	Experience          int        `json:"experience"`
	ExperienceToAdvance int        `json:"experience_to_advance"`
	LastWateredAt       *time.Time `json:"last_watered_at,omitempty"`
	Completed           bool       `json:"completed"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CanAdvance reports whether the plant has banked enough experience to move
// to the next stage.
func (p *Plant) CanAdvance() bool {
	return !p.Completed && p.Experience >= p.ExperienceToAdvance
}

type WateringLog struct {
	ID         int64     `json:"id"`
	PlantID    int64     `json:"plant_id"`
	WateredAt  time.Time `json:"watered_at"`
	HealthGain int       `json:"health_gain"`
}
