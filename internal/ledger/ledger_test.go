package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/database"
	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/fault"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type ledgerFixture struct {
	svc         *Service
	commitments *store.CommitmentStore
	guardian    *model.Member
	dependent   *model.Member
	guardCtx    context.Context
	depCtx      context.Context
}

func setupLedgerTest(t *testing.T) *ledgerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	members := store.NewMemberStore(db)
	guardian, err := members.Create("Mina", model.RoleGuardian, "🌻")
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	dependent, err := members.Create("Juno", model.RoleDependent, "🐣")
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}

	bus := event.NewBus(slog.Default())
	svc := NewService(store.NewStickerStore(db), store.NewRewardStore(db), bus, slog.Default())

	return &ledgerFixture{
		svc:         svc,
		commitments: store.NewCommitmentStore(db),
		guardian:    guardian,
		dependent:   dependent,
		guardCtx: auth.WithIdentity(context.Background(), auth.Identity{
			MemberID: guardian.ID, Role: model.RoleGuardian,
		}),
		depCtx: auth.WithIdentity(context.Background(), auth.Identity{
			MemberID: dependent.ID, Role: model.RoleDependent,
		}),
	}
}

// mintStickers mints n stickers, each backed by its own assignment.
func (f *ledgerFixture) mintStickers(t *testing.T, n int) {
	t.Helper()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c, err := f.commitments.Create(f.guardian.ID, "Feed the cat", "", "DAILY", start, nil)
	if err != nil {
		t.Fatalf("create commitment: %v", err)
	}
	for i := 0; i < n; i++ {
		a, err := f.commitments.CreateAssignment(c.ID, f.dependent.ID, start.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("create assignment %d: %v", i, err)
		}
		if _, err := f.svc.Mint(f.guardCtx, f.dependent.ID, a.ID, "Feed the cat", ""); err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
	}
}

func TestRewardCatalogPermissions(t *testing.T) {
	f := setupLedgerTest(t)

	// dependents cannot define rewards
	_, err := f.svc.CreateReward(f.depCtx, "Ice cream", "", 3, true)
	if !errors.Is(err, fault.ErrPermissionDenied) {
		t.Fatalf("dependent create: got %v, want permission denied", err)
	}

	reward, err := f.svc.CreateReward(f.guardCtx, "Ice cream", "one scoop", 3, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	// another guardian cannot touch it
	otherCtx := auth.WithIdentity(context.Background(), auth.Identity{
		MemberID: f.guardian.ID + 100, Role: model.RoleGuardian,
	})
	if _, err := f.svc.UpdateReward(otherCtx, reward.ID, "Hijacked", "", 1, true); !errors.Is(err, fault.ErrPermissionDenied) {
		t.Errorf("foreign update: got %v, want permission denied", err)
	}
	if err := f.svc.DeleteReward(otherCtx, reward.ID); !errors.Is(err, fault.ErrPermissionDenied) {
		t.Errorf("foreign delete: got %v, want permission denied", err)
	}
}

func TestRewardValidation(t *testing.T) {
	f := setupLedgerTest(t)

	var verr *fault.ValidationError
	if _, err := f.svc.CreateReward(f.guardCtx, "  ", "", 3, true); !errors.As(err, &verr) {
		t.Errorf("blank title: got %v, want validation error", err)
	}
	if _, err := f.svc.CreateReward(f.guardCtx, "Ice cream", "", 0, true); !errors.As(err, &verr) {
		t.Errorf("zero cost: got %v, want validation error", err)
	}
}

func TestListRewardsByRole(t *testing.T) {
	f := setupLedgerTest(t)

	if _, err := f.svc.CreateReward(f.guardCtx, "Ice cream", "", 3, true); err != nil {
		t.Fatalf("create active reward: %v", err)
	}
	if _, err := f.svc.CreateReward(f.guardCtx, "Theme park", "", 20, false); err != nil {
		t.Fatalf("create inactive reward: %v", err)
	}

	all, err := f.svc.ListRewards(f.guardCtx)
	if err != nil {
		t.Fatalf("guardian list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("guardian sees %d rewards, want 2", len(all))
	}

	visible, err := f.svc.ListRewards(f.depCtx)
	if err != nil {
		t.Fatalf("dependent list: %v", err)
	}
	if len(visible) != 1 || visible[0].Title != "Ice cream" {
		t.Errorf("dependent sees %+v, want only the active reward", visible)
	}
}

func TestRedeem(t *testing.T) {
	f := setupLedgerTest(t)
	f.mintStickers(t, 3)

	reward, err := f.svc.CreateReward(f.guardCtx, "Ice cream", "", 2, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	redemption, err := f.svc.Redeem(f.depCtx, reward.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if len(redemption.StickerIDs) != 2 {
		t.Errorf("consumed %d stickers, want 2", len(redemption.StickerIDs))
	}

	balance, err := f.svc.Balance(f.depCtx, f.dependent.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Available != 1 {
		t.Errorf("available = %d, want 1", balance.Available)
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	f := setupLedgerTest(t)
	f.mintStickers(t, 1)

	reward, err := f.svc.CreateReward(f.guardCtx, "Theme park", "", 5, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	_, err = f.svc.Redeem(f.depCtx, reward.ID)
	var berr *fault.InsufficientBalanceError
	if !errors.As(err, &berr) {
		t.Fatalf("redeem: got %v, want insufficient balance", err)
	}
	if berr.Required != 5 || berr.Available != 1 {
		t.Errorf("balance error = %+v, want required 5 / available 1", berr)
	}
	if berr.Shortfall() != 4 {
		t.Errorf("shortfall = %d, want 4", berr.Shortfall())
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	f := setupLedgerTest(t)
	f.mintStickers(t, 5)

	reward, err := f.svc.CreateReward(f.guardCtx, "Retired prize", "", 1, false)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	_, err = f.svc.Redeem(f.depCtx, reward.ID)
	var verr *fault.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("redeem inactive: got %v, want validation error", err)
	}
}

func TestRedeemGuardianDenied(t *testing.T) {
	f := setupLedgerTest(t)

	reward, err := f.svc.CreateReward(f.guardCtx, "Ice cream", "", 1, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := f.svc.Redeem(f.guardCtx, reward.ID); !errors.Is(err, fault.ErrPermissionDenied) {
		t.Errorf("guardian redeem: got %v, want permission denied", err)
	}
}
