package store

import (
	"database/sql"
	"fmt"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, name, role, avatar_emoji, pin_hash IS NOT NULL, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(&m.ID, &m.Name, &m.Role, &m.AvatarEmoji, &m.HasPIN, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(name, role, avatarEmoji string) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (name, role, avatar_emoji) VALUES (?, ?, ?)`,
		name, role, avatarEmoji,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List() ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT ` + memberCols + ` FROM members ORDER BY role ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) ListByRole(role string) ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT `+memberCols+` FROM members WHERE role = ? ORDER BY name ASC`, role)
	if err != nil {
		return nil, fmt.Errorf("list members by role: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Update(id int64, name, avatarEmoji string) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET name = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *MemberStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE members SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *MemberStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE members SET pin_hash = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *MemberStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM members WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("member not found")
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return pin.String, nil
}
