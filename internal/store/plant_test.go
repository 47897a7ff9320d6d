package store

import (
	"testing"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/database"
	"github.com/ho8ae/growpromise-sub001/internal/model"
)

func setupPlantTestDB(t *testing.T) (*PlantStore, *MemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPlantStore(db), NewMemberStore(db)
}

func TestPlantTypeSeedData(t *testing.T) {
	ps, _ := setupPlantTestDB(t)

	types, err := ps.ListPlantTypes()
	if err != nil {
		t.Fatalf("list plant types: %v", err)
	}
	if len(types) != 4 {
		t.Fatalf("expected 4 seed plant types, got %d", len(types))
	}
	byName := make(map[string]model.PlantType, len(types))
	for _, pt := range types {
		byName[pt.Name] = pt
	}
	if pt, ok := byName["Sunflower"]; !ok || pt.MaxStage != 5 {
		t.Errorf("Sunflower = %+v, want max stage 5", pt)
	}
	if pt, ok := byName["Pine Tree"]; !ok || pt.MaxStage != 6 {
		t.Errorf("Pine Tree = %+v, want max stage 6", pt)
	}
}

func TestPlantLifecycle(t *testing.T) {
	ps, ms := setupPlantTestDB(t)
	_, dependent := createFamily(t, ms)

	types, err := ps.ListPlantTypes()
	if err != nil {
		t.Fatalf("list plant types: %v", err)
	}

	p, err := ps.Create(dependent.ID, types[0].ID, 80, 100)
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	if p.Stage != 1 {
		t.Errorf("stage = %d, want 1", p.Stage)
	}
	if p.Health != 80 {
		t.Errorf("health = %d, want 80", p.Health)
	}
	if p.LastWateredAt != nil {
		t.Error("new plant should have no watering timestamp")
	}

	active, err := ps.GetActive(dependent.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active == nil || active.ID != p.ID {
		t.Fatalf("active plant = %+v, want id %d", active, p.ID)
	}

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	log, err := ps.SetWatered(p.ID, 90, at, 10)
	if err != nil {
		t.Fatalf("set watered: %v", err)
	}
	if log.HealthGain != 10 {
		t.Errorf("health gain = %d, want 10", log.HealthGain)
	}
	got, err := ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get plant: %v", err)
	}
	if got.Health != 90 {
		t.Errorf("health = %d, want 90", got.Health)
	}
	if got.LastWateredAt == nil || !got.LastWateredAt.Equal(at) {
		t.Errorf("last watered = %v, want %v", got.LastWateredAt, at)
	}

	if err := ps.SetExperience(p.ID, 40); err != nil {
		t.Fatalf("set experience: %v", err)
	}

	done := at.Add(time.Hour)
	if err := ps.SetStage(p.ID, 2, 0, 150, false, nil); err != nil {
		t.Fatalf("set stage: %v", err)
	}
	got, err = ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get plant: %v", err)
	}
	if got.Stage != 2 || got.Experience != 0 || got.ExperienceToAdvance != 150 {
		t.Errorf("after advance: stage=%d exp=%d toAdvance=%d, want 2/0/150",
			got.Stage, got.Experience, got.ExperienceToAdvance)
	}

	if err := ps.SetStage(p.ID, 5, 0, 0, true, &done); err != nil {
		t.Fatalf("complete plant: %v", err)
	}
	got, err = ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get plant: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Errorf("plant should be completed, got %+v", got)
	}

	// a completed plant is no longer the active one
	active, err = ps.GetActive(dependent.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active != nil {
		t.Errorf("active plant = %+v, want nil after completion", active)
	}

	logs, err := ps.ListWateringLogs(p.ID)
	if err != nil {
		t.Fatalf("list watering logs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("watering log count = %d, want 1", len(logs))
	}
}
