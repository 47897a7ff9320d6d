// Package growth is the plant simulator: watering keeps health up, approved
// assignments feed experience, and banked experience buys stage advances.
// All gains and costs come from configuration, never literals.
package growth

import (
	"context"
	"log/slog"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/config"
	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/fault"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

const (
	maxHealth      = 100
	wateringWindow = 24 * time.Hour
)

type Service struct {
	plants *store.PlantStore
	cfg    config.GrowthConfig
	bus    *event.Bus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(plants *store.PlantStore, cfg config.GrowthConfig, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		plants: plants,
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WaterResult is what a successful watering reports back: the new health
// and the streak of consecutive prior days with a watering.
type WaterResult struct {
	Plant  *model.Plant       `json:"plant"`
	Log    *model.WateringLog `json:"log"`
	Streak int                `json:"streak"`
}

// CreatePlant starts a new plant for the calling dependent. Only one
// incomplete plant may exist per dependent.
func (s *Service) CreatePlant(ctx context.Context, plantTypeID int64) (*model.Plant, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleDependent {
		return nil, fault.ErrPermissionDenied
	}

	pt, err := s.plants.GetPlantType(plantTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, fault.ErrNotFound
	}

	active, err := s.plants.GetActive(ident.MemberID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fault.Validationf("an active plant already exists")
	}

	return s.plants.Create(ident.MemberID, plantTypeID, s.cfg.InitialHealth, s.cfg.ExperienceToAdvance(1))
}

func (s *Service) GetPlant(ctx context.Context, plantID int64) (*model.Plant, error) {
	return s.ownedPlant(ctx, plantID)
}

func (s *Service) ActivePlant(ctx context.Context, dependentID int64) (*model.Plant, error) {
	return s.plants.GetActive(dependentID)
}

func (s *Service) ListPlantTypes(ctx context.Context) ([]model.PlantType, error) {
	return s.plants.ListPlantTypes()
}

func (s *Service) ListPlants(ctx context.Context, dependentID int64) ([]model.Plant, error) {
	return s.plants.ListByDependent(dependentID)
}

func (s *Service) WateringHistory(ctx context.Context, plantID int64) ([]model.WateringLog, error) {
	if _, err := s.ownedPlant(ctx, plantID); err != nil {
		return nil, err
	}
	return s.plants.ListWateringLogs(plantID)
}

// Water applies one watering. Legal at most once per rolling 24-hour
// window measured from the last watering, boundary inclusive: exactly 24
// hours later succeeds.
func (s *Service) Water(ctx context.Context, plantID int64) (*WaterResult, error) {
	p, err := s.ownedPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if p.Completed {
		return nil, fault.ErrPlantCompleted
	}

	now := s.now()
	if p.LastWateredAt != nil && now.Sub(*p.LastWateredAt) < wateringWindow {
		return nil, &fault.AlreadyWateredError{NextAt: p.LastWateredAt.Add(wateringWindow)}
	}

	health := p.Health + s.cfg.WateringHealthGain
	if health > maxHealth {
		health = maxHealth
	}

	log, err := s.plants.SetWatered(p.ID, health, now, s.cfg.WateringHealthGain)
	if err != nil {
		return nil, err
	}

	logs, err := s.plants.ListWateringLogs(p.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.plants.GetByID(p.ID)
	if err != nil {
		return nil, err
	}

	return &WaterResult{
		Plant:  updated,
		Log:    log,
		Streak: streak(logs, now),
	}, nil
}

// streak counts consecutive prior calendar days with at least one watering,
// walking back from yesterday. Today's watering does not count toward its
// own streak; any missed day breaks it.
func streak(logs []model.WateringLog, now time.Time) int {
	days := make(map[time.Time]bool, len(logs))
	for _, l := range logs {
		days[startOfDay(l.WateredAt.In(now.Location()))] = true
	}

	count := 0
	for day := startOfDay(now).AddDate(0, 0, -1); days[day]; day = day.AddDate(0, 0, -1) {
		count++
	}
	return count
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GrantExperience adds experience to a plant. Pure bookkeeping: the stage
// does not advance until AdvanceStage is called.
func (s *Service) GrantExperience(ctx context.Context, plantID int64, amount int) (*model.Plant, error) {
	if amount <= 0 {
		return nil, fault.Validationf("experience amount must be positive")
	}

	p, err := s.plants.GetByID(plantID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fault.ErrNotFound
	}
	if p.Completed {
		return nil, fault.ErrPlantCompleted
	}

	if err := s.plants.SetExperience(p.ID, p.Experience+amount); err != nil {
		return nil, err
	}
	return s.plants.GetByID(p.ID)
}

// GrantApprovalExperience gives the dependent's active plant the configured
// approval grant. No active plant is a no-op, not an error.
func (s *Service) GrantApprovalExperience(ctx context.Context, dependentID int64) (int, error) {
	p, err := s.plants.GetActive(dependentID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, nil
	}
	if _, err := s.GrantExperience(ctx, p.ID, s.cfg.ApprovalExperience); err != nil {
		return 0, err
	}
	return s.cfg.ApprovalExperience, nil
}

// AdvanceStage spends banked experience to move the plant up one stage.
// Leftover experience carries forward. Reaching the type's max stage
// completes the plant permanently.
func (s *Service) AdvanceStage(ctx context.Context, plantID int64) (*model.Plant, error) {
	p, err := s.ownedPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if p.Completed {
		return nil, fault.ErrPlantCompleted
	}
	if !p.CanAdvance() {
		return nil, &fault.NotEnoughExperienceError{Experience: p.Experience, Required: p.ExperienceToAdvance}
	}

	pt, err := s.plants.GetPlantType(p.PlantTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, fault.ErrNotFound
	}

	stage := p.Stage + 1
	remaining := p.Experience - p.ExperienceToAdvance
	completed := stage >= pt.MaxStage

	var completedAt *time.Time
	if completed {
		now := s.now()
		completedAt = &now
	}

	if err := s.plants.SetStage(p.ID, stage, remaining, s.cfg.ExperienceToAdvance(stage), completed, completedAt); err != nil {
		return nil, err
	}

	updated, err := s.plants.GetByID(p.ID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(event.New(event.KindPlantAdvanced, event.PlantAdvanced{
		PlantID:     updated.ID,
		DependentID: updated.DependentID,
		Stage:       updated.Stage,
		Completed:   updated.Completed,
	}))
	s.logger.Info("plant advanced", "plant_id", updated.ID, "stage", updated.Stage, "completed", updated.Completed)

	return updated, nil
}

// ownedPlant loads a plant and checks the caller may touch it: the owning
// dependent, or any guardian.
func (s *Service) ownedPlant(ctx context.Context, plantID int64) (*model.Plant, error) {
	p, err := s.plants.GetByID(plantID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fault.ErrNotFound
	}

	ident, ok := auth.FromContext(ctx)
	if !ok {
		return nil, fault.ErrPermissionDenied
	}
	if ident.Role != model.RoleGuardian && ident.MemberID != p.DependentID {
		return nil, fault.ErrPermissionDenied
	}
	return p, nil
}
