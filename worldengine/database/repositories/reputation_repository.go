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

type ReputationRepository interface {
	DB() *bun.DB
	Modify(ctx context.Context, playerID string, relType models.RelationType, targetID string, fn func(ctx context.Context, tx TxInserter, rec *models.ReputationRecord) error) (*models.ReputationRecord, error)
	ListByPlayer(ctx context.Context, playerID string, relType models.RelationType) ([]*models.ReputationRecord, error)
	DecayHeat(ctx context.Context, step, floor int) (int64, error)
	ListEventsBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*models.ReputationEvent, error)
	ListEventsByRecord(ctx context.Context, recordID int64) ([]*models.ReputationEvent, error)
}

type reputationRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewReputationRepository(db *bun.DB) ReputationRepository {
	return &reputationRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *reputationRepository) DB() *bun.DB {
	return r.db
}

// Modify runs fn against the (player, type, target) record inside one
// transaction, creating the record lazily on first touch. The row stays
// locked while fn runs; fn writes its audit row through the TxInserter so a
// concurrent reader never observes the update without its audit trail.
func (r *reputationRepository) Modify(ctx context.Context, playerID string, relType models.RelationType, targetID string, fn func(ctx context.Context, tx TxInserter, rec *models.ReputationRecord) error) (*models.ReputationRecord, error) {
	rec := new(models.ReputationRecord)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(rec).
			Where("player_id = ? AND relation_type = ? AND target_id = ?", playerID, relType, targetID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			rec = &models.ReputationRecord{
				PlayerID:  playerID,
				Type:      relType,
				TargetID:  targetID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if _, err := tx.NewInsert().
				Model(rec).
				On("CONFLICT (player_id, relation_type, target_id) DO NOTHING").
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create reputation record: %w", err)
			}
			if err := tx.NewSelect().
				Model(rec).
				Where("player_id = ? AND relation_type = ? AND target_id = ?", playerID, relType, targetID).
				For("UPDATE").
				Scan(ctx); err != nil {
				return fmt.Errorf("failed to re-read reputation record: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to lock reputation record: %w", err)
		}

		if err := fn(ctx, bunTxInserter{tx: tx}, rec); err != nil {
			return err
		}

		rec.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(rec).
			Column("respect", "fear", "trust", "heat", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update reputation record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *reputationRepository) ListByPlayer(ctx context.Context, playerID string, relType models.RelationType) ([]*models.ReputationRecord, error) {
	var records []*models.ReputationRecord
	q := r.db.NewSelect().
		Model(&records).
		Where("player_id = ?", playerID)
	if relType != "" {
		q = q.Where("relation_type = ?", relType)
	}
	err := q.Order("relation_type ASC", "target_id ASC").Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list", "reputation_record", playerID, err)
	}
	return records, nil
}

// DecayHeat reduces the heat dimension of every record by step toward floor.
// One batch statement, independent of the other dimensions.
func (r *reputationRepository) DecayHeat(ctx context.Context, step, floor int) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.ReputationRecord)(nil)).
		Set("heat = GREATEST(?, heat - ?)", floor, step).
		Set("updated_at = ?", time.Now()).
		Where("heat > ?", floor).
		Exec(ctx)
	if err != nil {
		return 0, r.HandleError("decay", "reputation_record", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (r *reputationRepository) ListEventsBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*models.ReputationEvent, error) {
	var events []*models.ReputationEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("created_at < ? AND id > ?", before, afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_events", "reputation_event", err)
	}
	return events, nil
}

func (r *reputationRepository) ListEventsByRecord(ctx context.Context, recordID int64) ([]*models.ReputationEvent, error) {
	var events []*models.ReputationEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("record_id = ?", recordID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list_events", "reputation_event", recordID, err)
	}
	return events, nil
}
