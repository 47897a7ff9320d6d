package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type StickerStore struct {
	db *sql.DB
}

func NewStickerStore(db *sql.DB) *StickerStore {
	return &StickerStore{db: db}
}

const stickerCols = `id, dependent_id, source_assignment_id, title, image_ref, minted_at, redeemed_by_reward_id`

func scanSticker(scanner interface{ Scan(...any) error }) (*model.Sticker, error) {
	var st model.Sticker
	var redeemedBy sql.NullInt64

	err := scanner.Scan(&st.ID, &st.DependentID, &st.SourceAssignmentID, &st.Title, &st.ImageRef, &st.MintedAt, &redeemedBy)
	if err != nil {
		return nil, err
	}

	if redeemedBy.Valid {
		st.RedeemedByRewardID = &redeemedBy.Int64
	}
	return &st, nil
}

// Mint creates the sticker for an approved assignment. The assignment id is
// the idempotency key: a second mint for the same assignment returns the
// existing sticker without inserting a new one.
func (s *StickerStore) Mint(dependentID, assignmentID int64, title, imageRef string, at time.Time) (*model.Sticker, error) {
	_, err := s.db.Exec(
		`INSERT INTO stickers (dependent_id, source_assignment_id, title, image_ref, minted_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source_assignment_id) DO NOTHING`,
		dependentID, assignmentID, title, imageRef, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert sticker: %w", err)
	}
	return s.GetByAssignment(assignmentID)
}

func (s *StickerStore) GetByID(id int64) (*model.Sticker, error) {
	row := s.db.QueryRow(`SELECT `+stickerCols+` FROM stickers WHERE id = ?`, id)
	st, err := scanSticker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sticker: %w", err)
	}
	return st, nil
}

func (s *StickerStore) GetByAssignment(assignmentID int64) (*model.Sticker, error) {
	row := s.db.QueryRow(`SELECT `+stickerCols+` FROM stickers WHERE source_assignment_id = ?`, assignmentID)
	st, err := scanSticker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sticker by assignment: %w", err)
	}
	return st, nil
}

func (s *StickerStore) ListByDependent(dependentID int64) ([]model.Sticker, error) {
	rows, err := s.db.Query(
		`SELECT `+stickerCols+` FROM stickers WHERE dependent_id = ? ORDER BY minted_at ASC, id ASC`,
		dependentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stickers: %w", err)
	}
	defer rows.Close()
	return collectStickers(rows)
}

// ListAvailable returns the unredeemed stickers oldest-first, the order
// redemption consumes them in.
func (s *StickerStore) ListAvailable(dependentID int64) ([]model.Sticker, error) {
	rows, err := s.db.Query(
		`SELECT `+stickerCols+` FROM stickers WHERE dependent_id = ? AND redeemed_by_reward_id IS NULL ORDER BY minted_at ASC, id ASC`,
		dependentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list available stickers: %w", err)
	}
	defer rows.Close()
	return collectStickers(rows)
}

func collectStickers(rows *sql.Rows) ([]model.Sticker, error) {
	var stickers []model.Sticker
	for rows.Next() {
		st, err := scanSticker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sticker: %w", err)
		}
		stickers = append(stickers, *st)
	}
	return stickers, rows.Err()
}

// Balance derives the sticker balance from the rows. Never stored.
func (s *StickerStore) Balance(dependentID int64) (*model.StickerBalance, error) {
	var minted, redeemed int
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(redeemed_by_reward_id) FROM stickers WHERE dependent_id = ?`,
		dependentID,
	).Scan(&minted, &redeemed)
	if err != nil {
		return nil, fmt.Errorf("sticker balance: %w", err)
	}
	return &model.StickerBalance{
		DependentID:   dependentID,
		TotalMinted:   minted,
		TotalRedeemed: redeemed,
		Available:     minted - redeemed,
	}, nil
}

// RedeemOldest atomically marks the n oldest available stickers as redeemed
// by rewardID and records the redemption, all in one transaction. If fewer
// than n stickers are available it changes nothing and returns the count
// that was available.
func (s *StickerStore) RedeemOldest(dependentID, rewardID int64, n int, at time.Time) (*model.RewardRedemption, int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id FROM stickers WHERE dependent_id = ? AND redeemed_by_reward_id IS NULL ORDER BY minted_at ASC, id ASC LIMIT ?`,
		dependentID, n,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select oldest stickers: %w", err)
	}
	var stickerIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan sticker id: %w", err)
		}
		stickerIDs = append(stickerIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterate sticker ids: %w", err)
	}
	rows.Close()

	if len(stickerIDs) < n {
		// Report the true available count, not just the LIMIT slice.
		var available int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM stickers WHERE dependent_id = ? AND redeemed_by_reward_id IS NULL`,
			dependentID,
		).Scan(&available)
		if err != nil {
			return nil, 0, fmt.Errorf("count available: %w", err)
		}
		return nil, available, nil
	}

	for _, id := range stickerIDs {
		result, err := tx.Exec(
			`UPDATE stickers SET redeemed_by_reward_id = ? WHERE id = ? AND redeemed_by_reward_id IS NULL`,
			rewardID, id,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("redeem sticker %d: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, 0, fmt.Errorf("rows affected: %w", err)
		}
		if affected != 1 {
			return nil, 0, fmt.Errorf("sticker %d already redeemed", id)
		}
	}

	result, err := tx.Exec(
		`INSERT INTO reward_redemptions (reward_id, dependent_id, redeemed_at) VALUES (?, ?, ?)`,
		rewardID, dependentID, at.UTC(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("insert redemption: %w", err)
	}
	redemptionID, err := result.LastInsertId()
	if err != nil {
		return nil, 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, id := range stickerIDs {
		if _, err := tx.Exec(
			`INSERT INTO reward_redemption_stickers (redemption_id, sticker_id) VALUES (?, ?)`,
			redemptionID, id,
		); err != nil {
			return nil, 0, fmt.Errorf("insert redemption sticker: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit redemption: %w", err)
	}

	return &model.RewardRedemption{
		ID:          redemptionID,
		RewardID:    rewardID,
		DependentID: dependentID,
		StickerIDs:  stickerIDs,
		RedeemedAt:  at.UTC(),
	}, len(stickerIDs), nil
}

// ListRedemptionsByDependent returns redemptions newest-first, with the
// sticker ids each one consumed.
func (s *StickerStore) ListRedemptionsByDependent(dependentID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT id, reward_id, dependent_id, redeemed_at FROM reward_redemptions WHERE dependent_id = ? ORDER BY redeemed_at DESC, id DESC`,
		dependentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		var r model.RewardRedemption
		if err := rows.Scan(&r.ID, &r.RewardID, &r.DependentID, &r.RedeemedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemptions: %w", err)
	}

	for i := range redemptions {
		ids, err := s.redemptionStickerIDs(redemptions[i].ID)
		if err != nil {
			return nil, err
		}
		redemptions[i].StickerIDs = ids
	}
	return redemptions, nil
}

func (s *StickerStore) redemptionStickerIDs(redemptionID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT sticker_id FROM reward_redemption_stickers WHERE redemption_id = ? ORDER BY sticker_id ASC`,
		redemptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemption stickers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan redemption sticker: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
