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

type PursuitRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, pursuit *models.Pursuit) error
	GetActiveByPlayer(ctx context.Context, playerID string) (*models.Pursuit, error)
	MutateActive(ctx context.Context, playerID string, fn func(p *models.Pursuit) error) (*models.Pursuit, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]*models.Pursuit, error)
}

type pursuitRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewPursuitRepository(db *bun.DB) PursuitRepository {
	return &pursuitRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *pursuitRepository) DB() *bun.DB {
	return r.db
}

func (r *pursuitRepository) Create(ctx context.Context, pursuit *models.Pursuit) error {
	pursuit.Active = true
	pursuit.CreatedAt = time.Now()
	pursuit.UpdatedAt = time.Now()
	if pursuit.LastSpottedAt.IsZero() {
		pursuit.LastSpottedAt = pursuit.CreatedAt
	}

	_, err := r.db.NewInsert().Model(pursuit).Exec(ctx)
	return r.HandleError("create", "pursuit", err)
}

func (r *pursuitRepository) GetActiveByPlayer(ctx context.Context, playerID string) (*models.Pursuit, error) {
	pursuit := new(models.Pursuit)
	err := r.db.NewSelect().
		Model(pursuit).
		Where("player_id = ? AND active = true", playerID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get_active", "pursuit", playerID, err)
	}
	return pursuit, nil
}

// MutateActive locks the player's active pursuit episode, applies fn and
// writes the result back — one episode transition per transaction.
func (r *pursuitRepository) MutateActive(ctx context.Context, playerID string, fn func(p *models.Pursuit) error) (*models.Pursuit, error) {
	pursuit := new(models.Pursuit)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(pursuit).
			Where("player_id = ? AND active = true", playerID).
			Order("id DESC").
			Limit(1).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "pursuit", ID: playerID}
		}
		if err != nil {
			return fmt.Errorf("failed to lock pursuit: %w", err)
		}

		if err := fn(pursuit); err != nil {
			return err
		}

		pursuit.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(pursuit).
			Column("level", "drones_assigned", "enforcers_assigned",
				"last_spotted_sector", "last_spotted_at", "active", "resolution",
				"cash_penalty_pct", "jail_minutes", "resolved_at", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update pursuit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pursuit, nil
}

func (r *pursuitRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*models.Pursuit, error) {
	var pursuits []*models.Pursuit
	err := r.db.NewSelect().
		Model(&pursuits).
		Where("active = true AND last_spotted_at < ?", cutoff).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_stale", "pursuit", err)
	}
	return pursuits, nil
}
