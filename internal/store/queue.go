package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

// QueueStore persists pending actions in enqueue order. The seq column is
// an autoincrement rowid, so order survives process restarts.
type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

const pendingActionCols = `seq, id, kind, payload, attempts, last_error, enqueued_at`

func scanPendingAction(scanner interface{ Scan(...any) error }) (*model.PendingAction, error) {
	var a model.PendingAction
	var payload string
	err := scanner.Scan(&a.Seq, &a.ID, &a.Kind, &payload, &a.Attempts, &a.LastError, &a.EnqueuedAt)
	if err != nil {
		return nil, err
	}
	a.Payload = []byte(payload)
	return &a, nil
}

func (s *QueueStore) Enqueue(id, kind string, payload []byte, at time.Time) (*model.PendingAction, error) {
	result, err := s.db.Exec(
		`INSERT INTO pending_actions (id, kind, payload, enqueued_at) VALUES (?, ?, ?, ?)`,
		id, kind, string(payload), at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert pending action: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pendingActionCols+` FROM pending_actions WHERE seq = ?`, seq)
	return scanPendingAction(row)
}

// List returns all queued actions in enqueue order.
func (s *QueueStore) List() ([]model.PendingAction, error) {
	rows, err := s.db.Query(`SELECT ` + pendingActionCols + ` FROM pending_actions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var actions []model.PendingAction
	for rows.Next() {
		a, err := scanPendingAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

func (s *QueueStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return n, nil
}

// Delete removes a single replayed entry. Removal is per-item so a partial
// drain keeps its progress.
func (s *QueueStore) Delete(seq int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_actions WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("delete pending action: %w", err)
	}
	return nil
}

// MarkFailed records a failed replay attempt; the entry stays queued.
func (s *QueueStore) MarkFailed(seq int64, message string) error {
	_, err := s.db.Exec(
		`UPDATE pending_actions SET attempts = attempts + 1, last_error = ? WHERE seq = ?`,
		message, seq,
	)
	if err != nil {
		return fmt.Errorf("mark pending action failed: %w", err)
	}
	return nil
}
