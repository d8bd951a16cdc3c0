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

type OfferRepository interface {
	DB() *bun.DB
	CreateOffer(ctx context.Context, offer *models.DebtOffer, guard func(d *models.Debt) error) error
	GetByCode(ctx context.Context, offerCode string) (*models.DebtOffer, error)
	GetOpen(ctx context.Context) ([]*models.DebtOffer, error)
	Accept(ctx context.Context, offerCode, acceptorID string, transfer func(ctx context.Context, tx TxInserter, d *models.Debt, o *models.DebtOffer) error) (*models.DebtOffer, error)
	ExpireOpenBefore(ctx context.Context, asOf time.Time) (int64, error)
}

type offerRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewOfferRepository(db *bun.DB) OfferRepository {
	return &offerRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *offerRepository) DB() *bun.DB {
	return r.db
}

// CreateOffer lists a debt on the marketplace. The debt row is locked while
// the guard runs and the one-open-offer-per-debt invariant is checked inside
// the same transaction, so two concurrent listings cannot both land.
func (r *offerRepository) CreateOffer(ctx context.Context, offer *models.DebtOffer, guard func(d *models.Debt) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		debt := new(models.Debt)
		err := tx.NewSelect().
			Model(debt).
			Where("id = ?", offer.DebtID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "debt", ID: offer.DebtID}
		}
		if err != nil {
			return fmt.Errorf("failed to lock debt: %w", err)
		}

		if err := guard(debt); err != nil {
			return err
		}

		exists, err := tx.NewSelect().
			Model((*models.DebtOffer)(nil)).
			Where("debt_id = ? AND status = ?", offer.DebtID, models.OfferOpen).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check open offers: %w", err)
		}
		if exists {
			return &ConflictError{Entity: "debt_offer", Detail: fmt.Sprintf("debt %d already has an open offer", offer.DebtID)}
		}

		offer.Status = models.OfferOpen
		offer.CreatedAt = time.Now()
		if _, err := tx.NewInsert().Model(offer).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create offer: %w", err)
		}
		return nil
	})
}

func (r *offerRepository) GetByCode(ctx context.Context, offerCode string) (*models.DebtOffer, error) {
	offer := new(models.DebtOffer)
	err := r.db.NewSelect().
		Model(offer).
		Where("offer_code = ?", offerCode).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "debt_offer", offerCode, err)
	}
	return offer, nil
}

func (r *offerRepository) GetOpen(ctx context.Context) ([]*models.DebtOffer, error) {
	var offers []*models.DebtOffer
	err := r.db.NewSelect().
		Model(&offers).
		Where("status = ? AND expires_at > ?", models.OfferOpen, time.Now()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_open", "debt_offer", err)
	}
	return offers, nil
}

// Accept performs the underlying debt transfer and marks the offer accepted
// in one transaction. The transfer closure carries the ledger's transition
// rules; any guard failure rolls back both rows.
func (r *offerRepository) Accept(ctx context.Context, offerCode, acceptorID string, transfer func(ctx context.Context, tx TxInserter, d *models.Debt, o *models.DebtOffer) error) (*models.DebtOffer, error) {
	offer := new(models.DebtOffer)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(offer).
			Where("offer_code = ?", offerCode).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "debt_offer", ID: offerCode}
		}
		if err != nil {
			return fmt.Errorf("failed to lock offer: %w", err)
		}

		if offer.Status != models.OfferOpen {
			return &InvalidTransitionError{Entity: "debt_offer", From: string(offer.Status), To: string(models.OfferAccepted)}
		}
		if time.Now().After(offer.ExpiresAt) {
			return &InvalidTransitionError{Entity: "debt_offer", From: "expired", To: string(models.OfferAccepted)}
		}

		debt := new(models.Debt)
		err = tx.NewSelect().
			Model(debt).
			Where("id = ?", offer.DebtID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "debt", ID: offer.DebtID}
		}
		if err != nil {
			return fmt.Errorf("failed to lock debt: %w", err)
		}

		if err := transfer(ctx, bunTxInserter{tx: tx}, debt, offer); err != nil {
			return err
		}

		debt.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().
			Model(debt).
			Column("creditor_id", "status", "prior_creditor_id", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update debt: %w", err)
		}

		now := time.Now()
		offer.Status = models.OfferAccepted
		offer.AcceptorID = acceptorID
		offer.ResolvedAt = &now
		if _, err := tx.NewUpdate().
			Model(offer).
			Column("status", "acceptor_id", "resolved_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// ExpireOpenBefore sweeps open offers past their deadline into the expired
// state. The underlying debts are untouched. Idempotent: already expired
// offers are skipped.
func (r *offerRepository) ExpireOpenBefore(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.DebtOffer)(nil)).
		Set("status = ?", models.OfferExpired).
		Set("resolved_at = ?", asOf).
		Where("status = ? AND expires_at < ?", models.OfferOpen, asOf).
		Exec(ctx)
	if err != nil {
		return 0, r.HandleError("expire", "debt_offer", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
