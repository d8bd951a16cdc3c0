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

type DistrictRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, district *models.District) error
	GetByID(ctx context.Context, id int64) (*models.District, error)
	GetAll(ctx context.Context) ([]*models.District, error)
	InsertEvent(ctx context.Context, event *models.DistrictEvent) error
	DistrictIDsWithUnprocessed(ctx context.Context) ([]int64, error)
	AggregateUnprocessed(ctx context.Context, districtID int64, fold func(d *models.District, events []*models.DistrictEvent) error) (int, error)
	ListProcessedEventsBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*models.DistrictEvent, error)
}

type districtRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewDistrictRepository(db *bun.DB) DistrictRepository {
	return &districtRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *districtRepository) DB() *bun.DB {
	return r.db
}

func (r *districtRepository) Create(ctx context.Context, district *models.District) error {
	district.CreatedAt = time.Now()
	district.UpdatedAt = time.Now()
	if district.Status == "" {
		district.Status = models.DistrictStatusStable
	}

	_, err := r.db.NewInsert().Model(district).Exec(ctx)
	return r.HandleError("create", "district", err)
}

func (r *districtRepository) GetByID(ctx context.Context, id int64) (*models.District, error) {
	district := new(models.District)
	err := r.db.NewSelect().
		Model(district).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "district", id, err)
	}
	return district, nil
}

func (r *districtRepository) GetAll(ctx context.Context) ([]*models.District, error) {
	var districts []*models.District
	err := r.db.NewSelect().
		Model(&districts).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_all", "district", err)
	}
	return districts, nil
}

func (r *districtRepository) InsertEvent(ctx context.Context, event *models.DistrictEvent) error {
	event.Processed = false
	event.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(event).Exec(ctx)
	return r.HandleError("insert", "district_event", err)
}

func (r *districtRepository) DistrictIDsWithUnprocessed(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.DistrictEvent)(nil)).
		ColumnExpr("DISTINCT district_id").
		Where("processed = false").
		Scan(ctx, &ids)
	if err != nil {
		return nil, r.HandleError("list_unprocessed", "district_event", err)
	}
	return ids, nil
}

// AggregateUnprocessed folds all currently unprocessed events of one district
// into its state within a single transaction. The district row is locked for
// the duration and the events are selected with SKIP LOCKED, so a concurrent
// run sees only rows this run did not claim: no double counting, no lost
// events. Returns the number of events folded; zero means the run was a
// no-op.
func (r *districtRepository) AggregateUnprocessed(ctx context.Context, districtID int64, fold func(d *models.District, events []*models.DistrictEvent) error) (int, error) {
	var processed int

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		district := new(models.District)
		err := tx.NewSelect().
			Model(district).
			Where("id = ?", districtID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "district", ID: districtID}
		}
		if err != nil {
			return fmt.Errorf("failed to lock district: %w", err)
		}

		var events []*models.DistrictEvent
		err = tx.NewSelect().
			Model(&events).
			Where("district_id = ? AND processed = false", districtID).
			Order("id ASC").
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to select unprocessed events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		if err := fold(district, events); err != nil {
			return err
		}

		district.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(district).
			Column("crime_index", "police_presence", "property_values",
				"business_health", "street_activity", "heat_level", "crew_tension",
				"status", "last_calculated", "status_changed_at", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update district: %w", err)
		}

		ids := make([]int64, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		_, err = tx.NewUpdate().
			Model((*models.DistrictEvent)(nil)).
			Set("processed = true").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark events processed: %w", err)
		}

		processed = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

func (r *districtRepository) ListProcessedEventsBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*models.DistrictEvent, error) {
	var events []*models.DistrictEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("processed = true AND created_at < ? AND id > ?", before, afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_processed", "district_event", err)
	}
	return events, nil
}
