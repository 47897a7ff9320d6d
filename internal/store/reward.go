package store

import (
	"database/sql"
	"fmt"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, guardian_id, title, description, required_sticker_count, active, created_at, updated_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.GuardianID, &r.Title, &r.Description, &r.RequiredStickerCount, &active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

func (s *RewardStore) Create(guardianID int64, title, description string, requiredStickerCount int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO rewards (guardian_id, title, description, required_sticker_count, active) VALUES (?, ?, ?, ?, ?)`,
		guardianID, title, description, requiredStickerCount, a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, active first, then by title.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY active DESC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()
	return collectRewards(rows)
}

// ListActive returns only active rewards, ordered by title.
func (s *RewardStore) ListActive() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards WHERE active = 1 ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active rewards: %w", err)
	}
	defer rows.Close()
	return collectRewards(rows)
}

func collectRewards(rows *sql.Rows) ([]model.Reward, error) {
	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, requiredStickerCount int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, required_sticker_count = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, requiredStickerCount, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}
