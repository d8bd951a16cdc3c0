package surveillance

import (
	"context"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/utils"
)

type fakeSectorRepo struct {
	sectors map[string]*models.SectorSurveillance
	heat    map[string]*models.PlayerHeat
}

func newFakeSectorRepo() *fakeSectorRepo {
	return &fakeSectorRepo{
		sectors: make(map[string]*models.SectorSurveillance),
		heat:    make(map[string]*models.PlayerHeat),
	}
}

func (f *fakeSectorRepo) DB() *bun.DB { return nil }

func (f *fakeSectorRepo) GetSector(_ context.Context, sectorID string) (*models.SectorSurveillance, error) {
	s, ok := f.sectors[sectorID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "sector_surveillance", ID: sectorID}
	}
	return s, nil
}

func (f *fakeSectorRepo) UpsertSector(_ context.Context, sector *models.SectorSurveillance) error {
	f.sectors[sector.SectorID] = sector
	return nil
}

func (f *fakeSectorRepo) RecordSectorFeedback(_ context.Context, sectorID string, surveillanceDelta, alertDelta int) error {
	s, ok := f.sectors[sectorID]
	if !ok {
		return nil
	}
	s.SurveillanceLevel = utils.Clamp(s.SurveillanceLevel+surveillanceDelta, 0, 100)
	s.AlertLevel = utils.Clamp(s.AlertLevel+alertDelta, 0, 100)
	return nil
}

func (f *fakeSectorRepo) GetHeat(_ context.Context, playerID string) (*models.PlayerHeat, error) {
	h, ok := f.heat[playerID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "player_heat", ID: playerID}
	}
	return h, nil
}

func (f *fakeSectorRepo) ModifyHeat(_ context.Context, playerID string, fn func(h *models.PlayerHeat) error) (*models.PlayerHeat, error) {
	h, ok := f.heat[playerID]
	if !ok {
		h = &models.PlayerHeat{PlayerID: playerID}
		f.heat[playerID] = h
	}
	if err := fn(h); err != nil {
		return nil, err
	}
	return h, nil
}

func (f *fakeSectorRepo) DecayHeat(_ context.Context, step, floor int) (int64, error) {
	var affected int64
	for _, h := range f.heat {
		if h.HeatLevel <= floor {
			continue
		}
		h.HeatLevel -= step
		if h.HeatLevel < floor {
			h.HeatLevel = floor
		}
		affected++
	}
	return affected, nil
}

type fakePursuitRepo struct {
	pursuits []*models.Pursuit
	nextID   int64
}

func (f *fakePursuitRepo) DB() *bun.DB { return nil }

func (f *fakePursuitRepo) Create(_ context.Context, p *models.Pursuit) error {
	f.nextID++
	p.ID = f.nextID
	p.Active = true
	if p.LastSpottedAt.IsZero() {
		p.LastSpottedAt = time.Now()
	}
	f.pursuits = append(f.pursuits, p)
	return nil
}

func (f *fakePursuitRepo) GetActiveByPlayer(_ context.Context, playerID string) (*models.Pursuit, error) {
	for _, p := range f.pursuits {
		if p.PlayerID == playerID && p.Active {
			return p, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "pursuit", ID: playerID}
}

func (f *fakePursuitRepo) MutateActive(ctx context.Context, playerID string, fn func(p *models.Pursuit) error) (*models.Pursuit, error) {
	p, err := f.GetActiveByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakePursuitRepo) ListStale(_ context.Context, cutoff time.Time) ([]*models.Pursuit, error) {
	var out []*models.Pursuit
	for _, p := range f.pursuits {
		if p.Active && p.LastSpottedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeSectorRepo, *fakePursuitRepo) {
	sectors := newFakeSectorRepo()
	pursuits := &fakePursuitRepo{}
	return NewService(sectors, pursuits, nil), sectors, pursuits
}

func TestDetectionChanceDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	chance, err := svc.DetectionChance(context.Background(), "sector-7", "player-1")
	if err != nil {
		t.Fatalf("DetectionChance: %v", err)
	}
	if chance != 18.75 {
		t.Errorf("default chance = %v, want 18.75", chance)
	}
}

func TestResolveDetectionCounters(t *testing.T) {
	svc, sectors, _ := newTestService()
	sectors.sectors["sector-7"] = &models.SectorSurveillance{
		SectorID: "sector-7", SurveillanceLevel: 80, ScannerCoverage: 0.9,
	}
	sectors.heat["player-1"] = &models.PlayerHeat{PlayerID: "player-1", HeatLevel: 40}

	// Chance is 54: a roll of 10 detects, a roll of 90 evades.
	outcome, err := svc.ResolveDetection(context.Background(), "sector-7", "player-1", 10)
	if err != nil {
		t.Fatalf("ResolveDetection: %v", err)
	}
	if outcome != OutcomeDetected {
		t.Errorf("roll 10 = %s, want detected", outcome)
	}

	outcome, err = svc.ResolveDetection(context.Background(), "sector-7", "player-1", 90)
	if err != nil {
		t.Fatalf("ResolveDetection: %v", err)
	}
	if outcome != OutcomeEvaded {
		t.Errorf("roll 90 = %s, want evaded", outcome)
	}

	h := sectors.heat["player-1"]
	if h.TotalDetections != 1 || h.TotalEvasions != 1 {
		t.Errorf("counters = %d detections %d evasions, want 1/1", h.TotalDetections, h.TotalEvasions)
	}

	// The confirmed detection should have fed the sector.
	s := sectors.sectors["sector-7"]
	if s.SurveillanceLevel != 81 || s.AlertLevel != 1 {
		t.Errorf("sector feedback = level %d alert %d, want 81/1", s.SurveillanceLevel, s.AlertLevel)
	}
}

func TestRaiseHeatOpensPursuitAtLevelOne(t *testing.T) {
	svc, sectors, pursuits := newTestService()

	// Heat 90 meets the level 4 requirement, but a fresh episode still
	// starts at level 1.
	if _, err := svc.RaiseHeat(context.Background(), "player-1", 90, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}

	p, err := pursuits.GetActiveByPlayer(context.Background(), "player-1")
	if err != nil {
		t.Fatalf("expected active pursuit: %v", err)
	}
	if p.Level != 1 {
		t.Errorf("new pursuit level = %d, want 1", p.Level)
	}
	if p.PursuitCode == "" {
		t.Error("pursuit code must be assigned")
	}
	if sectors.heat["player-1"].HeatLevel != 90 {
		t.Errorf("heat = %d, want 90", sectors.heat["player-1"].HeatLevel)
	}
}

func TestRaiseHeatEscalatesOneLevelPerCall(t *testing.T) {
	svc, _, pursuits := newTestService()

	if _, err := svc.RaiseHeat(context.Background(), "player-1", 100, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}

	for i, wantLevel := range []int{2, 3, 4, 5} {
		if _, err := svc.RaiseHeat(context.Background(), "player-1", 0, "sector-7"); err != nil {
			t.Fatalf("RaiseHeat escalation %d: %v", i, err)
		}
		p, _ := pursuits.GetActiveByPlayer(context.Background(), "player-1")
		if p.Level != wantLevel {
			t.Fatalf("after escalation %d level = %d, want %d", i, p.Level, wantLevel)
		}
	}

	// Already at maximum: further raises must not push past level 5.
	if _, err := svc.RaiseHeat(context.Background(), "player-1", 0, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat at max: %v", err)
	}
	p, _ := pursuits.GetActiveByPlayer(context.Background(), "player-1")
	if p.Level != 5 {
		t.Errorf("level past maximum: %d", p.Level)
	}
	spec, _ := PursuitLevel(5)
	if p.DronesAssigned != spec.Drones || p.EnforcersAssigned != spec.Enforcers {
		t.Errorf("level 5 response = %d drones %d enforcers, want %d/%d",
			p.DronesAssigned, p.EnforcersAssigned, spec.Drones, spec.Enforcers)
	}
}

func TestRaiseHeatClampsAndRejectsNegative(t *testing.T) {
	svc, sectors, _ := newTestService()

	if _, err := svc.RaiseHeat(context.Background(), "player-1", 150, ""); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}
	if sectors.heat["player-1"].HeatLevel != 100 {
		t.Errorf("heat must clamp at 100, got %d", sectors.heat["player-1"].HeatLevel)
	}

	if _, err := svc.RaiseHeat(context.Background(), "player-1", -5, ""); err == nil {
		t.Error("negative amount must be rejected")
	}
}

func TestAttemptEscapeSuccessHalvesHeat(t *testing.T) {
	svc, sectors, _ := newTestService()

	if _, err := svc.RaiseHeat(context.Background(), "player-1", 60, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}

	// Level 1 difficulty is 20; a roll of 50 escapes.
	result, err := svc.AttemptEscape(context.Background(), "player-1", 50)
	if err != nil {
		t.Fatalf("AttemptEscape: %v", err)
	}
	if !result.Escaped || result.Caught {
		t.Fatalf("result = %+v, want escaped", result)
	}
	if result.Pursuit.Active {
		t.Error("escaped pursuit must be inactive")
	}
	if result.Pursuit.Resolution != models.PursuitEscaped {
		t.Errorf("resolution = %s, want escaped", result.Pursuit.Resolution)
	}
	if sectors.heat["player-1"].HeatLevel != 30 {
		t.Errorf("heat after escape = %d, want 30", sectors.heat["player-1"].HeatLevel)
	}
}

func TestAttemptEscapeCaughtAtMaxLevel(t *testing.T) {
	svc, sectors, pursuits := newTestService()

	if _, err := svc.RaiseHeat(context.Background(), "player-1", 100, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}
	// Walk the episode up to maximum response.
	for i := 0; i < 4; i++ {
		if _, err := svc.RaiseHeat(context.Background(), "player-1", 0, "sector-7"); err != nil {
			t.Fatalf("escalation: %v", err)
		}
	}

	// Level 5 difficulty is 90; a roll of 10 fails and capture follows.
	result, err := svc.AttemptEscape(context.Background(), "player-1", 10)
	if err != nil {
		t.Fatalf("AttemptEscape: %v", err)
	}
	if !result.Caught {
		t.Fatalf("result = %+v, want caught", result)
	}
	if result.CashPenaltyPct != 50 || result.JailMinutes != 120 {
		t.Errorf("penalties = %d%% cash %d min, want 50/120", result.CashPenaltyPct, result.JailMinutes)
	}

	h := sectors.heat["player-1"]
	if h.HeatLevel != 0 || !h.Flagged {
		t.Errorf("after capture heat = %d flagged = %v, want 0/true", h.HeatLevel, h.Flagged)
	}

	if _, err := pursuits.GetActiveByPlayer(context.Background(), "player-1"); !repositories.IsNotFound(err) {
		t.Error("captured episode must no longer be active")
	}
}

func TestAttemptEscapeFailureBelowMaxKeepsEpisode(t *testing.T) {
	svc, _, pursuits := newTestService()

	if _, err := svc.RaiseHeat(context.Background(), "player-1", 30, "sector-7"); err != nil {
		t.Fatalf("RaiseHeat: %v", err)
	}

	result, err := svc.AttemptEscape(context.Background(), "player-1", 5)
	if err != nil {
		t.Fatalf("AttemptEscape: %v", err)
	}
	if result.Escaped || result.Caught {
		t.Fatalf("result = %+v, want episode alive", result)
	}
	if p, err := pursuits.GetActiveByPlayer(context.Background(), "player-1"); err != nil || !p.Active {
		t.Error("episode must stay active after a failed attempt below max level")
	}
}

func TestSweepTimeoutsDeescalatesAndEnds(t *testing.T) {
	svc, _, pursuits := newTestService()

	stale := time.Now().Add(-time.Hour)
	pursuits.Create(context.Background(), &models.Pursuit{
		PursuitCode: "p-high", PlayerID: "player-1", Level: 3, LastSpottedAt: stale,
	})
	pursuits.Create(context.Background(), &models.Pursuit{
		PursuitCode: "p-low", PlayerID: "player-2", Level: 1, LastSpottedAt: stale,
	})
	pursuits.Create(context.Background(), &models.Pursuit{
		PursuitCode: "p-fresh", PlayerID: "player-3", Level: 4, LastSpottedAt: time.Now(),
	})

	swept, err := svc.SweepTimeouts(context.Background(), 10*time.Minute)
	if err != nil {
		t.Fatalf("SweepTimeouts: %v", err)
	}
	if swept != 2 {
		t.Errorf("swept = %d, want 2", swept)
	}

	p1, _ := pursuits.GetActiveByPlayer(context.Background(), "player-1")
	if p1.Level != 2 {
		t.Errorf("stale level 3 pursuit should step to 2, got %d", p1.Level)
	}

	if _, err := pursuits.GetActiveByPlayer(context.Background(), "player-2"); !repositories.IsNotFound(err) {
		t.Error("stale level 1 pursuit should end")
	}

	p3, _ := pursuits.GetActiveByPlayer(context.Background(), "player-3")
	if p3.Level != 4 {
		t.Errorf("fresh pursuit must keep its level, got %d", p3.Level)
	}
}

func TestDecayHeat(t *testing.T) {
	svc, sectors, _ := newTestService()
	sectors.heat["hot"] = &models.PlayerHeat{PlayerID: "hot", HeatLevel: 10}
	sectors.heat["cold"] = &models.PlayerHeat{PlayerID: "cold", HeatLevel: 0}

	affected, err := svc.DecayHeat(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("DecayHeat: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
	if sectors.heat["hot"].HeatLevel != 7 {
		t.Errorf("heat after decay = %d, want 7", sectors.heat["hot"].HeatLevel)
	}
}
