package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/uptrace/bun"
)

type SurveillanceRepository interface {
	DB() *bun.DB
	GetSector(ctx context.Context, sectorID string) (*models.SectorSurveillance, error)
	UpsertSector(ctx context.Context, sector *models.SectorSurveillance) error
	RecordSectorFeedback(ctx context.Context, sectorID string, surveillanceDelta, alertDelta int) error
	GetHeat(ctx context.Context, playerID string) (*models.PlayerHeat, error)
	ModifyHeat(ctx context.Context, playerID string, fn func(h *models.PlayerHeat) error) (*models.PlayerHeat, error)
	DecayHeat(ctx context.Context, step, floor int) (int64, error)
}

type surveillanceRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewSurveillanceRepository(db *bun.DB) SurveillanceRepository {
	return &surveillanceRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *surveillanceRepository) DB() *bun.DB {
	return r.db
}

func (r *surveillanceRepository) GetSector(ctx context.Context, sectorID string) (*models.SectorSurveillance, error) {
	sector := new(models.SectorSurveillance)
	err := r.db.NewSelect().
		Model(sector).
		Where("sector_id = ?", sectorID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "sector_surveillance", sectorID, err)
	}
	return sector, nil
}

func (r *surveillanceRepository) UpsertSector(ctx context.Context, sector *models.SectorSurveillance) error {
	sector.UpdatedAt = time.Now()
	if sector.CreatedAt.IsZero() {
		sector.CreatedAt = sector.UpdatedAt
	}
	if sector.GridStatus == "" {
		sector.GridStatus = models.GridStatusOnline
	}

	_, err := r.db.NewInsert().
		Model(sector).
		On("CONFLICT (sector_id) DO UPDATE").
		Set("surveillance_level = EXCLUDED.surveillance_level").
		Set("drone_density = EXCLUDED.drone_density").
		Set("scanner_coverage = EXCLUDED.scanner_coverage").
		Set("hnc_presence = EXCLUDED.hnc_presence").
		Set("alert_level = EXCLUDED.alert_level").
		Set("grid_status = EXCLUDED.grid_status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleError("upsert", "sector_surveillance", err)
}

// RecordSectorFeedback nudges a sector's surveillance and alert levels after
// a detection outcome. Sectors running on defaults (no row) are left alone.
func (r *surveillanceRepository) RecordSectorFeedback(ctx context.Context, sectorID string, surveillanceDelta, alertDelta int) error {
	_, err := r.db.NewUpdate().
		Model((*models.SectorSurveillance)(nil)).
		Set("surveillance_level = LEAST(100, GREATEST(0, surveillance_level + ?))", surveillanceDelta).
		Set("alert_level = LEAST(100, GREATEST(0, alert_level + ?))", alertDelta).
		Set("updated_at = ?", time.Now()).
		Where("sector_id = ?", sectorID).
		Exec(ctx)
	return r.HandleError("feedback", "sector_surveillance", err)
}

func (r *surveillanceRepository) GetHeat(ctx context.Context, playerID string) (*models.PlayerHeat, error) {
	heat := new(models.PlayerHeat)
	err := r.db.NewSelect().
		Model(heat).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "player_heat", playerID, err)
	}
	return heat, nil
}

// ModifyHeat applies fn to the player's heat row inside one transaction,
// creating the row on first use. The row is locked while fn runs.
func (r *surveillanceRepository) ModifyHeat(ctx context.Context, playerID string, fn func(h *models.PlayerHeat) error) (*models.PlayerHeat, error) {
	heat := new(models.PlayerHeat)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(heat).
			Where("player_id = ?", playerID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			heat = &models.PlayerHeat{
				PlayerID:  playerID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if _, err := tx.NewInsert().
				Model(heat).
				On("CONFLICT (player_id) DO NOTHING").
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create heat row: %w", err)
			}
			// Re-read under lock in case a concurrent insert won.
			if err := tx.NewSelect().
				Model(heat).
				Where("player_id = ?", playerID).
				For("UPDATE").
				Scan(ctx); err != nil {
				return fmt.Errorf("failed to re-read heat row: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to lock heat row: %w", err)
		}

		if err := fn(heat); err != nil {
			return err
		}

		heat.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(heat).
			Column("heat_level", "current_sector", "flagged",
				"total_detections", "total_evasions", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update heat row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return heat, nil
}

// DecayHeat lowers every player's heat by step toward floor in one batch
// statement. Safe to re-run; rows already at the floor are skipped.
func (r *surveillanceRepository) DecayHeat(ctx context.Context, step, floor int) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.PlayerHeat)(nil)).
		Set("heat_level = GREATEST(?, heat_level - ?)", floor, step).
		Set("updated_at = ?", time.Now()).
		Where("heat_level > ?", floor).
		Exec(ctx)
	if err != nil {
		return 0, r.HandleError("decay", "player_heat", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
