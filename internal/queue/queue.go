// Package queue holds actions taken while the authoritative store is
// unreachable and replays them in order once it is back. Each entry is a
// tagged variant with a JSON payload; drain reports a result per entry so
// one bad action never blocks the ones behind it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"

	"github.com/ho8ae/growpromise-sub001/internal/config"
	"github.com/ho8ae/growpromise-sub001/internal/fault"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

// Action kinds. The kind string is stored alongside the payload and picks
// the decode target on replay.
const (
	KindSubmitVerification = "submit_verification"
	KindWaterPlant         = "water_plant"
	KindRedeemReward       = "redeem_reward"
)

type SubmitVerification struct {
	AssignmentID int64  `json:"assignment_id"`
	ImageRef     string `json:"image_ref"`
	Note         string `json:"note,omitempty"`
}

type WaterPlant struct {
	PlantID int64 `json:"plant_id"`
}

type RedeemReward struct {
	RewardID int64 `json:"reward_id"`
}

// Decode unmarshals an entry's payload into its kind's value. Unknown
// kinds are an error, not a skip; they indicate a version mismatch.
func Decode(a *model.PendingAction) (any, error) {
	switch a.Kind {
	case KindSubmitVerification:
		var v SubmitVerification
		if err := json.Unmarshal(a.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Kind, err)
		}
		return v, nil
	case KindWaterPlant:
		var v WaterPlant
		if err := json.Unmarshal(a.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Kind, err)
		}
		return v, nil
	case KindRedeemReward:
		var v RedeemReward
		if err := json.Unmarshal(a.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Kind, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// ReplayFunc applies one decoded action against the authoritative store.
type ReplayFunc func(ctx context.Context, action any) error

// Result records what happened to one queue entry during a drain.
type Result struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

type Service struct {
	store  *store.QueueStore
	cfg    config.QueueConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewService(st *store.QueueStore, cfg config.QueueConfig, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue records an action for later replay and returns the stored entry.
func (s *Service) Enqueue(ctx context.Context, kind string, action any) (*model.PendingAction, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	entry, err := s.store.Enqueue(ulid.Make().String(), kind, payload, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("action queued", "id", entry.ID, "kind", entry.Kind)
	return entry, nil
}

func (s *Service) Len(ctx context.Context) (int, error) {
	return s.store.Len()
}

func (s *Service) Pending(ctx context.Context) ([]model.PendingAction, error) {
	return s.store.List()
}

// Drain replays every queued action in enqueue order. Transport failures
// are retried with exponential backoff up to the configured attempts.
// Applied entries are removed one by one; an entry that still fails, for
// any reason, stays queued with its attempt and error recorded, and the
// drain moves on to the next entry.
func (s *Service) Drain(ctx context.Context, replay ReplayFunc) ([]Result, error) {
	entries, err := s.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		res := Result{ID: entry.ID, Kind: entry.Kind}

		action, err := Decode(entry)
		if err == nil {
			err = s.replayWithRetry(ctx, replay, action)
		}
		if err == nil {
			res.Applied = true
			results = append(results, res)
			if derr := s.store.Delete(entry.Seq); derr != nil {
				return results, derr
			}
			continue
		}

		res.Error = err.Error()
		results = append(results, res)
		if merr := s.store.MarkFailed(entry.Seq, err.Error()); merr != nil {
			return results, merr
		}
		s.logger.Warn("queued action failed", "id", entry.ID, "kind", entry.Kind, "attempts", entry.Attempts+1, "error", err)
	}
	return results, nil
}

func (s *Service) replayWithRetry(ctx context.Context, replay ReplayFunc, action any) error {
	backoff := retry.NewExponential(s.cfg.RetryBackoff.Std())
	backoff = retry.WithMaxRetries(uint64(s.cfg.RetryAttempts), backoff)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := replay(ctx, action)
		if err != nil && fault.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
