package store

import (
	"testing"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/database"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type stickerFixture struct {
	stickers    *StickerStore
	rewards     *RewardStore
	commitments *CommitmentStore
	guardian    *model.Member
	dependent   *model.Member
}

func setupStickerTestDB(t *testing.T) *stickerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ms := NewMemberStore(db)
	guardian, dependent := createFamily(t, ms)
	return &stickerFixture{
		stickers:    NewStickerStore(db),
		rewards:     NewRewardStore(db),
		commitments: NewCommitmentStore(db),
		guardian:    guardian,
		dependent:   dependent,
	}
}

// mintForNewAssignment creates a fresh assignment and mints its sticker.
func (f *stickerFixture) mintForNewAssignment(t *testing.T, day int, at time.Time) *model.Sticker {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.commitments.Create(f.guardian.ID, "Feed the cat", "", "DAILY", start, nil)
	if err != nil {
		t.Fatalf("create commitment: %v", err)
	}
	a, err := f.commitments.CreateAssignment(c.ID, f.dependent.ID, start.AddDate(0, 0, day))
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	st, err := f.stickers.Mint(f.dependent.ID, a.ID, "Feed the cat", "", at)
	if err != nil {
		t.Fatalf("mint sticker: %v", err)
	}
	return st
}

func TestMintIdempotent(t *testing.T) {
	f := setupStickerTestDB(t)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := f.mintForNewAssignment(t, 1, at)

	again, err := f.stickers.Mint(f.dependent.ID, st.SourceAssignmentID, "Feed the cat", "", at.Add(time.Hour))
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if again.ID != st.ID {
		t.Errorf("second mint returned sticker %d, want existing %d", again.ID, st.ID)
	}

	balance, err := f.stickers.Balance(f.dependent.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.TotalMinted != 1 {
		t.Errorf("total minted = %d, want 1", balance.TotalMinted)
	}
}

func TestRedeemOldestConsumesInMintOrder(t *testing.T) {
	f := setupStickerTestDB(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	var minted []int64
	for i := 0; i < 3; i++ {
		st := f.mintForNewAssignment(t, i+1, base.Add(time.Duration(i)*time.Hour))
		minted = append(minted, st.ID)
	}

	reward, err := f.rewards.Create(f.guardian.ID, "Ice cream trip", "", 2, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	redemption, available, err := f.stickers.RedeemOldest(f.dependent.ID, reward.ID, 2, base.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption == nil {
		t.Fatalf("redeem returned nil with %d available", available)
	}
	if len(redemption.StickerIDs) != 2 {
		t.Fatalf("consumed %d stickers, want 2", len(redemption.StickerIDs))
	}
	if redemption.StickerIDs[0] != minted[0] || redemption.StickerIDs[1] != minted[1] {
		t.Errorf("consumed %v, want oldest-first %v", redemption.StickerIDs, minted[:2])
	}

	remaining, err := f.stickers.ListAvailable(f.dependent.ID)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != minted[2] {
		t.Errorf("remaining = %+v, want only sticker %d", remaining, minted[2])
	}

	balance, err := f.stickers.Balance(f.dependent.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.TotalMinted != 3 || balance.TotalRedeemed != 2 || balance.Available != 1 {
		t.Errorf("balance = %+v, want 3 minted / 2 redeemed / 1 available", balance)
	}
}

func TestRedeemOldestInsufficient(t *testing.T) {
	f := setupStickerTestDB(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.mintForNewAssignment(t, 1, base)

	reward, err := f.rewards.Create(f.guardian.ID, "Movie night", "", 3, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	redemption, available, err := f.stickers.RedeemOldest(f.dependent.ID, reward.ID, 3, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption != nil {
		t.Fatalf("redeem with too few stickers returned %+v, want nil", redemption)
	}
	if available != 1 {
		t.Errorf("available = %d, want 1", available)
	}

	// nothing was consumed
	left, err := f.stickers.ListAvailable(f.dependent.ID)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("available count = %d, want 1 after failed redemption", len(left))
	}
}

func TestListRedemptions(t *testing.T) {
	f := setupStickerTestDB(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := f.mintForNewAssignment(t, 1, base)

	reward, err := f.rewards.Create(f.guardian.ID, "Sticker album", "", 1, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, _, err := f.stickers.RedeemOldest(f.dependent.ID, reward.ID, 1, base.Add(time.Hour)); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	redemptions, err := f.stickers.ListRedemptionsByDependent(f.dependent.ID)
	if err != nil {
		t.Fatalf("list redemptions: %v", err)
	}
	if len(redemptions) != 1 {
		t.Fatalf("redemption count = %d, want 1", len(redemptions))
	}
	r := redemptions[0]
	if r.RewardID != reward.ID {
		t.Errorf("reward id = %d, want %d", r.RewardID, reward.ID)
	}
	if len(r.StickerIDs) != 1 || r.StickerIDs[0] != st.ID {
		t.Errorf("sticker ids = %v, want [%d]", r.StickerIDs, st.ID)
	}
}
