package debt

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

// CreateOffer lists a live debt on the peer marketplace. Only the current
// creditor can list, and a debt carries at most one open offer.
func (s *Service) CreateOffer(ctx context.Context, debtID int64, sellerID string, askingType models.DebtType, askingValue int, expiresIn time.Duration) (*models.DebtOffer, error) {
	if !validDebtType(askingType) {
		return nil, &repositories.ValidationError{
			Rule:   "asking_type",
			Detail: fmt.Sprintf("unknown debt type %q", askingType),
		}
	}
	if askingValue < config.DebtValueMin || askingValue > config.DebtValueMax {
		return nil, &repositories.ValidationError{
			Rule:   "asking_value",
			Detail: fmt.Sprintf("asking value %d outside [%d,%d]", askingValue, config.DebtValueMin, config.DebtValueMax),
		}
	}
	if expiresIn <= 0 {
		expiresIn = config.DefaultOfferDuration
	}

	offer := &models.DebtOffer{
		OfferCode:   uuid.NewString(),
		DebtID:      debtID,
		SellerID:    sellerID,
		AskingType:  askingType,
		AskingValue: askingValue,
		ExpiresAt:   time.Now().Add(expiresIn),
	}

	err := utils.WithConflictRetry(ctx, func(ctx context.Context) error {
		return s.offers.CreateOffer(ctx, offer, func(d *models.Debt) error {
			if sellerID != d.CreditorID {
				return &repositories.ValidationError{Rule: "wrong_party", Detail: "only the creditor can list a debt"}
			}
			if d.Status != models.DebtOutstanding && d.Status != models.DebtCalledIn {
				return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: "offered"}
			}
			return nil
		})
	})
	if err != nil {
		if utils.RetryableError(err) {
			return nil, &repositories.ConflictError{Entity: "debt_offer", Detail: err.Error()}
		}
		return nil, err
	}

	s.log.Info("Debt offer listed",
		slog.String("offer_code", offer.OfferCode),
		slog.Int64("debt_id", debtID),
		slog.String("seller", sellerID))
	return offer, nil
}

// AcceptOffer performs the underlying transfer to the acceptor and marks the
// offer accepted, atomically. The acceptor becomes the new creditor; what
// they pay the seller is settled by the gameplay layer (typically a new debt
// matching the asking terms).
func (s *Service) AcceptOffer(ctx context.Context, offerCode, acceptorID string) (*models.DebtOffer, error) {
	if acceptorID == "" {
		return nil, &repositories.ValidationError{Rule: "acceptor", Detail: "acceptor is required"}
	}

	var offer *models.DebtOffer
	err := utils.WithConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		offer, err = s.offers.Accept(ctx, offerCode, acceptorID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt, o *models.DebtOffer) error {
			if acceptorID == o.SellerID {
				return &repositories.ValidationError{Rule: "self_purchase", Detail: "cannot accept one's own offer"}
			}
			return applyTransfer(ctx, tx, d, o.SellerID, acceptorID, fmt.Sprintf("marketplace offer %s", o.OfferCode))
		})
		return err
	})
	if err != nil {
		if utils.RetryableError(err) {
			return nil, &repositories.ConflictError{Entity: "debt_offer", Detail: err.Error()}
		}
		return nil, err
	}

	s.log.Info("Debt offer accepted",
		slog.String("offer_code", offerCode),
		slog.String("acceptor", acceptorID))
	return offer, nil
}

// GetOpenOffers lists the marketplace.
func (s *Service) GetOpenOffers(ctx context.Context) ([]*models.DebtOffer, error) {
	return s.offers.GetOpen(ctx)
}

// ExpireOffers sweeps open offers past their deadline. The underlying debts
// keep their pre-offer state. Idempotent.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	expired, err := s.offers.ExpireOpenBefore(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("Debt offers expired", slog.Int64("count", expired))
	}
	return expired, nil
}
