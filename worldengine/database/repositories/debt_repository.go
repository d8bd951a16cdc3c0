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

// DebtSummary aggregates a player's standing on both sides of the ledger.
type DebtSummary struct {
	PlayerID       string `json:"player_id"`
	OwedCount      int    `json:"owed_count"`
	OwedValue      int    `json:"owed_value"`
	OwingCount     int    `json:"owing_count"`
	OwingValue     int    `json:"owing_value"`
	DefaultedCount int    `json:"defaulted_count"`
	FulfilledCount int    `json:"fulfilled_count"`
}

type DebtRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, debt *models.Debt) error
	GetByID(ctx context.Context, id int64) (*models.Debt, error)
	Mutate(ctx context.Context, id int64, fn func(ctx context.Context, tx TxInserter, d *models.Debt) error) (*models.Debt, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*models.Debt, error)
	GetOverdue(ctx context.Context, asOf time.Time) ([]*models.Debt, error)
	GetPlayerSummary(ctx context.Context, playerID string) (*DebtSummary, error)
	ListTransfers(ctx context.Context, debtID int64) ([]*models.DebtTransfer, error)
}

type debtRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewDebtRepository(db *bun.DB) DebtRepository {
	return &debtRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *debtRepository) DB() *bun.DB {
	return r.db
}

func (r *debtRepository) Create(ctx context.Context, debt *models.Debt) error {
	debt.Status = models.DebtOutstanding
	debt.CreatedAt = time.Now()
	debt.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(debt).Exec(ctx)
	return r.HandleError("create", "debt", err)
}

func (r *debtRepository) GetByID(ctx context.Context, id int64) (*models.Debt, error) {
	debt := new(models.Debt)
	err := r.db.NewSelect().
		Model(debt).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "debt", id, err)
	}
	return debt, nil
}

// Mutate locks the debt row, applies fn and writes the result back. fn
// appends its history rows (transfers, defaults) through the TxInserter so
// the transition and its audit trail commit together. Guard failures inside
// fn roll the whole transaction back.
func (r *debtRepository) Mutate(ctx context.Context, id int64, fn func(ctx context.Context, tx TxInserter, d *models.Debt) error) (*models.Debt, error) {
	debt := new(models.Debt)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(debt).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "debt", ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to lock debt: %w", err)
		}

		if err := fn(ctx, bunTxInserter{tx: tx}, debt); err != nil {
			return err
		}

		debt.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(debt).
			Column("creditor_id", "debtor_id", "status", "prior_creditor_id",
				"resolved_at", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update debt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

func (r *debtRepository) ListByPlayer(ctx context.Context, playerID string) ([]*models.Debt, error) {
	var debts []*models.Debt
	err := r.db.NewSelect().
		Model(&debts).
		Where("creditor_id = ? OR debtor_id = ?", playerID, playerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list", "debt", playerID, err)
	}
	return debts, nil
}

// GetOverdue returns live debts whose due date has passed. Passing a due
// date never auto-defaults; defaulting stays a creditor-side action.
func (r *debtRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*models.Debt, error) {
	var debts []*models.Debt
	err := r.db.NewSelect().
		Model(&debts).
		Where("due_at IS NOT NULL AND due_at < ?", asOf).
		Where("status IN (?)", bun.In([]models.DebtStatus{models.DebtOutstanding, models.DebtCalledIn})).
		Order("due_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_overdue", "debt", err)
	}
	return debts, nil
}

func (r *debtRepository) GetPlayerSummary(ctx context.Context, playerID string) (*DebtSummary, error) {
	summary := &DebtSummary{PlayerID: playerID}

	debts, err := r.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for _, d := range debts {
		switch d.Status {
		case models.DebtOutstanding, models.DebtCalledIn:
			if d.CreditorID == playerID {
				summary.OwedCount++
				summary.OwedValue += d.Value
			} else {
				summary.OwingCount++
				summary.OwingValue += d.Value
			}
		case models.DebtDefaulted:
			if d.DebtorID == playerID {
				summary.DefaultedCount++
			}
		case models.DebtFulfilled:
			if d.DebtorID == playerID {
				summary.FulfilledCount++
			}
		}
	}
	return summary, nil
}

func (r *debtRepository) ListTransfers(ctx context.Context, debtID int64) ([]*models.DebtTransfer, error) {
	var transfers []*models.DebtTransfer
	err := r.db.NewSelect().
		Model(&transfers).
		Where("debt_id = ?", debtID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list_transfers", "debt_transfer", debtID, err)
	}
	return transfers, nil
}
