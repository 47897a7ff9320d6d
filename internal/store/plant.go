package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type PlantStore struct {
	db *sql.DB
}

func NewPlantStore(db *sql.DB) *PlantStore {
	return &PlantStore{db: db}
}

// --- Plant type methods ---

const plantTypeCols = `id, name, max_stage, image_ref, created_at`

func scanPlantType(scanner interface{ Scan(...any) error }) (*model.PlantType, error) {
	var pt model.PlantType
	err := scanner.Scan(&pt.ID, &pt.Name, &pt.MaxStage, &pt.ImageRef, &pt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func (s *PlantStore) GetPlantType(id int64) (*model.PlantType, error) {
	row := s.db.QueryRow(`SELECT `+plantTypeCols+` FROM plant_types WHERE id = ?`, id)
	pt, err := scanPlantType(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant type: %w", err)
	}
	return pt, nil
}

func (s *PlantStore) ListPlantTypes() ([]model.PlantType, error) {
	rows, err := s.db.Query(`SELECT ` + plantTypeCols + ` FROM plant_types ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list plant types: %w", err)
	}
	defer rows.Close()

	var types []model.PlantType
	for rows.Next() {
		pt, err := scanPlantType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plant type: %w", err)
		}
		types = append(types, *pt)
	}
	return types, rows.Err()
}

func (s *PlantStore) CreatePlantType(name string, maxStage int, imageRef string) (*model.PlantType, error) {
	result, err := s.db.Exec(
		`INSERT INTO plant_types (name, max_stage, image_ref) VALUES (?, ?, ?)`,
		name, maxStage, imageRef,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plant type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPlantType(id)
}

// --- Plant methods ---

const plantCols = `id, dependent_id, plant_type_id, stage, health, experience, experience_to_advance, last_watered_at, completed, completed_at, created_at, updated_at`

func scanPlant(scanner interface{ Scan(...any) error }) (*model.Plant, error) {
	var p model.Plant
	var lastWatered, completedAt sql.NullTime
	var completed int

	err := scanner.Scan(
		&p.ID, &p.DependentID, &p.PlantTypeID, &p.Stage, &p.Health,
		&p.Experience, &p.ExperienceToAdvance, &lastWatered, &completed,
		&completedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastWatered.Valid {
		p.LastWateredAt = &lastWatered.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	p.Completed = completed != 0
	return &p, nil
}

// Create inserts a new plant at stage 1. A partial unique index on
// (dependent_id) WHERE completed = 0 rejects a second active plant; the
// caller checks GetActive first, this is the backstop.
func (s *PlantStore) Create(dependentID, plantTypeID int64, health, experienceToAdvance int) (*model.Plant, error) {
	result, err := s.db.Exec(
		`INSERT INTO plants (dependent_id, plant_type_id, health, experience_to_advance) VALUES (?, ?, ?, ?)`,
		dependentID, plantTypeID, health, experienceToAdvance,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PlantStore) GetByID(id int64) (*model.Plant, error) {
	row := s.db.QueryRow(`SELECT `+plantCols+` FROM plants WHERE id = ?`, id)
	p, err := scanPlant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant: %w", err)
	}
	return p, nil
}

// GetActive returns the dependent's single incomplete plant, or nil.
func (s *PlantStore) GetActive(dependentID int64) (*model.Plant, error) {
	row := s.db.QueryRow(`SELECT `+plantCols+` FROM plants WHERE dependent_id = ? AND completed = 0`, dependentID)
	p, err := scanPlant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active plant: %w", err)
	}
	return p, nil
}

func (s *PlantStore) ListByDependent(dependentID int64) ([]model.Plant, error) {
	rows, err := s.db.Query(
		`SELECT `+plantCols+` FROM plants WHERE dependent_id = ? ORDER BY created_at DESC, id DESC`,
		dependentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	var plants []model.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		plants = append(plants, *p)
	}
	return plants, rows.Err()
}

// SetWatered records a successful watering: new health and last-watered
// time, plus the log row, in one transaction.
func (s *PlantStore) SetWatered(id int64, health int, at time.Time, healthGain int) (*model.WateringLog, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE plants SET health = ?, last_watered_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		health, at.UTC(), id,
	); err != nil {
		return nil, fmt.Errorf("update plant watering: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO watering_logs (plant_id, watered_at, health_gain) VALUES (?, ?, ?)`,
		id, at.UTC(), healthGain,
	)
	if err != nil {
		return nil, fmt.Errorf("insert watering log: %w", err)
	}
	logID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit watering: %w", err)
	}

	return &model.WateringLog{ID: logID, PlantID: id, WateredAt: at.UTC(), HealthGain: healthGain}, nil
}

func (s *PlantStore) SetExperience(id int64, experience int) error {
	_, err := s.db.Exec(
		`UPDATE plants SET experience = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		experience, id,
	)
	if err != nil {
		return fmt.Errorf("set experience: %w", err)
	}
	return nil
}

// SetStage applies a stage advance: new stage, remaining experience, the
// next stage's cost, and completion when the final stage is reached.
func (s *PlantStore) SetStage(id int64, stage, experience, experienceToAdvance int, completed bool, completedAt *time.Time) error {
	var c int
	if completed {
		c = 1
	}
	var done sql.NullTime
	if completedAt != nil {
		done = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE plants SET stage = ?, experience = ?, experience_to_advance = ?, completed = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		stage, experience, experienceToAdvance, c, done, id,
	)
	if err != nil {
		return fmt.Errorf("set stage: %w", err)
	}
	return nil
}

// --- Watering log methods ---

func (s *PlantStore) ListWateringLogs(plantID int64) ([]model.WateringLog, error) {
	rows, err := s.db.Query(
		`SELECT id, plant_id, watered_at, health_gain FROM watering_logs WHERE plant_id = ? ORDER BY watered_at DESC, id DESC`,
		plantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list watering logs: %w", err)
	}
	defer rows.Close()

	var logs []model.WateringLog
	for rows.Next() {
		var l model.WateringLog
		if err := rows.Scan(&l.ID, &l.PlantID, &l.WateredAt, &l.HealthGain); err != nil {
			return nil, fmt.Errorf("scan watering log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
