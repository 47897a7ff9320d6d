package store

import (
	"database/sql"
	"fmt"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, member_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var p model.PushSubscription
	err := scanner.Scan(&p.ID, &p.MemberID, &p.Endpoint, &p.P256dhKey, &p.AuthKey, &p.DeviceName, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert registers a subscription, replacing the keys if the endpoint is
// already known (browsers rotate keys on re-subscribe).
func (s *PushStore) Upsert(memberID int64, endpoint, p256dh, authKey, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (member_id, endpoint, p256dh_key, auth_key, device_name) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (endpoint) DO UPDATE SET member_id = excluded.member_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		memberID, endpoint, p256dh, authKey, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return scanPushSubscription(row)
}

func (s *PushStore) ListByMember(memberID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(`SELECT `+pushCols+` FROM push_subscriptions WHERE member_id = ? ORDER BY id ASC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()
	return collectPushSubscriptions(rows)
}

func (s *PushStore) ListAll() ([]model.PushSubscription, error) {
	rows, err := s.db.Query(`SELECT ` + pushCols + ` FROM push_subscriptions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all push subscriptions: %w", err)
	}
	defer rows.Close()
	return collectPushSubscriptions(rows)
}

func collectPushSubscriptions(rows *sql.Rows) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	for rows.Next() {
		p, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *p)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
