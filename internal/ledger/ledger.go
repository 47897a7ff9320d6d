// Package ledger owns the sticker economy: minting on approval and
// oldest-first redemption against guardian-defined rewards. Balances are
// always derived from the sticker rows, never stored.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/fault"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type Service struct {
	stickers *store.StickerStore
	rewards  *store.RewardStore
	bus      *event.Bus
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(stickers *store.StickerStore, rewards *store.RewardStore, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		stickers: stickers,
		rewards:  rewards,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// Mint creates the sticker for an approved assignment. Called only from
// the approval path; the assignment id is the idempotency key, so a
// replayed approval cannot mint twice.
func (s *Service) Mint(ctx context.Context, dependentID, assignmentID int64, title, imageRef string) (*model.Sticker, error) {
	return s.stickers.Mint(dependentID, assignmentID, title, imageRef, s.now())
}

func (s *Service) Balance(ctx context.Context, dependentID int64) (*model.StickerBalance, error) {
	return s.stickers.Balance(dependentID)
}

func (s *Service) ListStickers(ctx context.Context, dependentID int64) ([]model.Sticker, error) {
	return s.stickers.ListByDependent(dependentID)
}

func (s *Service) ListAvailable(ctx context.Context, dependentID int64) ([]model.Sticker, error) {
	return s.stickers.ListAvailable(dependentID)
}

func (s *Service) ListRedemptions(ctx context.Context, dependentID int64) ([]model.RewardRedemption, error) {
	return s.stickers.ListRedemptionsByDependent(dependentID)
}

// --- Reward catalog ---

func (s *Service) CreateReward(ctx context.Context, title, description string, requiredStickerCount int, active bool) (*model.Reward, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleGuardian {
		return nil, fault.ErrPermissionDenied
	}
	if strings.TrimSpace(title) == "" {
		return nil, fault.Validationf("title is required")
	}
	if requiredStickerCount < 1 {
		return nil, fault.Validationf("required sticker count must be at least 1")
	}
	return s.rewards.Create(ident.MemberID, strings.TrimSpace(title), description, requiredStickerCount, active)
}

func (s *Service) UpdateReward(ctx context.Context, rewardID int64, title, description string, requiredStickerCount int, active bool) (*model.Reward, error) {
	if _, err := s.ownedReward(ctx, rewardID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, fault.Validationf("title is required")
	}
	if requiredStickerCount < 1 {
		return nil, fault.Validationf("required sticker count must be at least 1")
	}
	return s.rewards.Update(rewardID, strings.TrimSpace(title), description, requiredStickerCount, active)
}

func (s *Service) DeleteReward(ctx context.Context, rewardID int64) error {
	if _, err := s.ownedReward(ctx, rewardID); err != nil {
		return err
	}
	return s.rewards.Delete(rewardID)
}

func (s *Service) GetReward(ctx context.Context, rewardID int64) (*model.Reward, error) {
	r, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fault.ErrNotFound
	}
	return r, nil
}

func (s *Service) ListRewards(ctx context.Context) ([]model.Reward, error) {
	if auth.IsGuardian(ctx) {
		return s.rewards.List()
	}
	return s.rewards.ListActive()
}

// Redeem exchanges the caller's oldest available stickers for a reward.
// The check-then-act runs as one atomic store update; success marks
// exactly the required count redeemed and records one redemption.
func (s *Service) Redeem(ctx context.Context, rewardID int64) (*model.RewardRedemption, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleDependent {
		return nil, fault.ErrPermissionDenied
	}

	reward, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, fault.ErrNotFound
	}
	if !reward.Active {
		return nil, fault.Validationf("reward is not active")
	}

	redemption, available, err := s.stickers.RedeemOldest(ident.MemberID, reward.ID, reward.RequiredStickerCount, s.now())
	if err != nil {
		return nil, err
	}
	if redemption == nil {
		return nil, &fault.InsufficientBalanceError{
			Required:  reward.RequiredStickerCount,
			Available: available,
		}
	}

	s.bus.Publish(event.New(event.KindRewardRedeemed, event.RewardRedeemed{
		RedemptionID: redemption.ID,
		RewardID:     reward.ID,
		DependentID:  ident.MemberID,
		StickerCount: len(redemption.StickerIDs),
	}))
	s.logger.Info("reward redeemed", "reward_id", reward.ID, "dependent_id", ident.MemberID, "stickers", len(redemption.StickerIDs))

	return redemption, nil
}

func (s *Service) ownedReward(ctx context.Context, rewardID int64) (*model.Reward, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleGuardian {
		return nil, fault.ErrPermissionDenied
	}

	r, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fault.ErrNotFound
	}
	if r.GuardianID != ident.MemberID {
		return nil, fault.ErrPermissionDenied
	}
	return r, nil
}
