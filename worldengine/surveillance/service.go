package surveillance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/utils"
)

type Outcome string

const (
	OutcomeDetected Outcome = "detected"
	OutcomeEvaded   Outcome = "evaded"
)

// EscapeResult reports how an escape attempt resolved.
type EscapeResult struct {
	Escaped        bool            `json:"escaped"`
	Caught         bool            `json:"caught"`
	Pursuit        *models.Pursuit `json:"pursuit"`
	CashPenaltyPct int             `json:"cash_penalty_pct,omitempty"`
	JailMinutes    int             `json:"jail_minutes,omitempty"`
}

type Service struct {
	sectors  repositories.SurveillanceRepository
	pursuits repositories.PursuitRepository
	log      *slog.Logger
}

func NewService(sectors repositories.SurveillanceRepository, pursuits repositories.PursuitRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{sectors: sectors, pursuits: pursuits, log: log}
}

// DetectionChance computes the current detection probability for a player in
// a sector. A sector with no surveillance record falls back to level 50 with
// 0.75 scanner coverage; a player with no heat record counts as heat 0.
func (s *Service) DetectionChance(ctx context.Context, sectorID, playerID string) (float64, error) {
	level := config.DefaultSurveillanceLevel
	coverage := config.DefaultScannerCoverage

	sector, err := s.sectors.GetSector(ctx, sectorID)
	if err == nil {
		level = sector.SurveillanceLevel
		coverage = sector.ScannerCoverage
	} else if !repositories.IsNotFound(err) {
		return 0, err
	}

	heat := 0
	ph, err := s.sectors.GetHeat(ctx, playerID)
	if err == nil {
		heat = ph.HeatLevel
	} else if !repositories.IsNotFound(err) {
		return 0, err
	}

	return Chance(level, heat, coverage), nil
}

// ResolveDetection applies the detection chance to a caller-supplied roll in
// [0,100) and records the outcome: detection and evasion counters on the
// player, and a surveillance/alert bump on the sector when the scan connects.
func (s *Service) ResolveDetection(ctx context.Context, sectorID, playerID string, roll float64) (Outcome, error) {
	chance, err := s.DetectionChance(ctx, sectorID, playerID)
	if err != nil {
		return "", err
	}

	detected := roll < chance
	_, err = s.sectors.ModifyHeat(ctx, playerID, func(h *models.PlayerHeat) error {
		h.CurrentSector = sectorID
		if detected {
			h.TotalDetections++
		} else {
			h.TotalEvasions++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if !detected {
		return OutcomeEvaded, nil
	}

	if err := s.sectors.RecordSectorFeedback(ctx, sectorID, 1, 1); err != nil {
		s.log.Warn("Sector feedback failed",
			slog.String("sector_id", sectorID),
			slog.Any("error", err))
	}

	// A confirmed detection refreshes the pursuit's trail if one is live.
	if _, err := s.pursuits.MutateActive(ctx, playerID, func(p *models.Pursuit) error {
		p.LastSpottedSector = sectorID
		p.LastSpottedAt = time.Now()
		return nil
	}); err != nil && !repositories.IsNotFound(err) {
		return "", err
	}

	return OutcomeDetected, nil
}

// RaiseHeat adds heat to a player, clamped to [0,100], and escalates the
// pursuit machine when the new heat crosses the next level's threshold.
// Escalation moves exactly one level per call; the episode is created at L1
// when none is active.
func (s *Service) RaiseHeat(ctx context.Context, playerID string, amount int, sectorID string) (*models.PlayerHeat, error) {
	if amount < 0 {
		return nil, &repositories.ValidationError{Rule: "heat_amount", Detail: "heat amount must be non-negative"}
	}

	heat, err := s.sectors.ModifyHeat(ctx, playerID, func(h *models.PlayerHeat) error {
		h.HeatLevel = utils.Clamp(h.HeatLevel+amount, config.HeatMin, config.HeatMax)
		if sectorID != "" {
			h.CurrentSector = sectorID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.escalateForHeat(ctx, playerID, heat.HeatLevel, sectorID); err != nil {
		return nil, err
	}
	return heat, nil
}

func (s *Service) escalateForHeat(ctx context.Context, playerID string, heatLevel int, sectorID string) error {
	target := HighestLevelForHeat(heatLevel)
	if target == 0 {
		return nil
	}

	pursuit, err := s.pursuits.GetActiveByPlayer(ctx, playerID)
	if repositories.IsNotFound(err) {
		spec, _ := PursuitLevel(1)
		pursuit = &models.Pursuit{
			PursuitCode:       uuid.NewString(),
			PlayerID:          playerID,
			Level:             spec.Level,
			DronesAssigned:    spec.Drones,
			EnforcersAssigned: spec.Enforcers,
			LastSpottedSector: sectorID,
			LastSpottedAt:     time.Now(),
		}
		if err := s.pursuits.Create(ctx, pursuit); err != nil {
			return err
		}
		s.log.Info("Pursuit opened",
			slog.String("player_id", playerID),
			slog.String("pursuit_code", pursuit.PursuitCode))
		return nil
	}
	if err != nil {
		return err
	}

	if pursuit.Level >= target || pursuit.Level >= MaxPursuitLevel {
		return nil
	}

	// One level at a time, even when the heat jumped multiple thresholds.
	next, ok := PursuitLevel(pursuit.Level + 1)
	if !ok {
		return nil
	}
	_, err = s.pursuits.MutateActive(ctx, playerID, func(p *models.Pursuit) error {
		if p.Level != pursuit.Level {
			// Someone else escalated between the read and the lock.
			return nil
		}
		p.Level = next.Level
		p.DronesAssigned = next.Drones
		p.EnforcersAssigned = next.Enforcers
		if sectorID != "" {
			p.LastSpottedSector = sectorID
		}
		p.LastSpottedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Pursuit escalated",
		slog.String("player_id", playerID),
		slog.Int("level", next.Level))
	return nil
}

// AttemptEscape resolves one escape roll in [0,100) against the active
// pursuit. Success ends the episode and halves the player's heat. Failure at
// maximum escalation means capture: the level's cash and jail penalty apply
// and heat resets to zero. Failure below maximum keeps the episode alive.
func (s *Service) AttemptEscape(ctx context.Context, playerID string, roll int) (*EscapeResult, error) {
	result := &EscapeResult{}

	pursuit, err := s.pursuits.MutateActive(ctx, playerID, func(p *models.Pursuit) error {
		spec, ok := PursuitLevel(p.Level)
		if !ok {
			return fmt.Errorf("pursuit %s has invalid level %d", p.PursuitCode, p.Level)
		}

		now := time.Now()
		switch {
		case roll >= spec.EscapeDifficulty:
			p.Active = false
			p.Resolution = models.PursuitEscaped
			p.ResolvedAt = &now
			result.Escaped = true
		case p.Level >= MaxPursuitLevel:
			p.Active = false
			p.Resolution = models.PursuitCaught
			p.CashPenaltyPct = spec.CashPenaltyPct
			p.JailMinutes = spec.JailMinutes
			p.ResolvedAt = &now
			result.Caught = true
			result.CashPenaltyPct = spec.CashPenaltyPct
			result.JailMinutes = spec.JailMinutes
		default:
			// Failed attempt below max response: the pursuers close in but
			// the episode continues.
			p.LastSpottedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Pursuit = pursuit

	if result.Escaped {
		_, err = s.sectors.ModifyHeat(ctx, playerID, func(h *models.PlayerHeat) error {
			h.HeatLevel = h.HeatLevel / 2
			return nil
		})
	} else if result.Caught {
		_, err = s.sectors.ModifyHeat(ctx, playerID, func(h *models.PlayerHeat) error {
			h.HeatLevel = 0
			h.Flagged = true
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPursuitStatus returns the player's active pursuit, or a NotFoundError
// when no episode is live.
func (s *Service) GetPursuitStatus(ctx context.Context, playerID string) (*models.Pursuit, error) {
	return s.pursuits.GetActiveByPlayer(ctx, playerID)
}

// SweepTimeouts de-escalates pursuits with no detection inside the
// inactivity window: one level down per sweep, ending as escaped below L1.
// Idempotent; episodes touched by a detection mid-sweep keep their level.
func (s *Service) SweepTimeouts(ctx context.Context, inactivity time.Duration) (int, error) {
	cutoff := time.Now().Add(-inactivity)
	stale, err := s.pursuits.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, stalePursuit := range stale {
		_, err := s.pursuits.MutateActive(ctx, stalePursuit.PlayerID, func(p *models.Pursuit) error {
			if p.LastSpottedAt.After(cutoff) {
				return nil
			}
			if p.Level <= 1 {
				now := time.Now()
				p.Active = false
				p.Resolution = models.PursuitEscaped
				p.ResolvedAt = &now
				return nil
			}
			spec, _ := PursuitLevel(p.Level - 1)
			p.Level = spec.Level
			p.DronesAssigned = spec.Drones
			p.EnforcersAssigned = spec.Enforcers
			// Reset the clock so the next step down takes another full
			// window.
			p.LastSpottedAt = time.Now()
			return nil
		})
		if repositories.IsNotFound(err) {
			continue
		}
		if err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// DecayHeat lowers every player's heat by step toward floor. Scheduled, not
// invoked per action.
func (s *Service) DecayHeat(ctx context.Context, step, floor int) (int64, error) {
	return s.sectors.DecayHeat(ctx, step, floor)
}
