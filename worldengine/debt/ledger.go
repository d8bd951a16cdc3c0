package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/utils"
)

// TrustBonus is what fulfilling a debt of the given value earns the debtor,
// for the gameplay layer to apply to their trust dimension.
func TrustBonus(value int) int {
	return 3 + value/2
}

// TrustPenalty is what defaulting on a debt of the given value costs.
func TrustPenalty(value int) int {
	return 20 + value*3
}

// TransitionResult reports a completed debt transition and any reputation
// consequence the caller should apply.
type TransitionResult struct {
	Debt         *models.Debt `json:"debt"`
	TrustBonus   int          `json:"trust_bonus,omitempty"`
	TrustPenalty int          `json:"trust_penalty,omitempty"`
}

type Service struct {
	debts  repositories.DebtRepository
	offers repositories.OfferRepository
	log    *slog.Logger
}

func NewService(debts repositories.DebtRepository, offers repositories.OfferRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{debts: debts, offers: offers, log: log}
}

func validDebtType(t models.DebtType) bool {
	switch t {
	case models.DebtFavor, models.DebtMoney, models.DebtProtection,
		models.DebtService, models.DebtInformation, models.DebtBlood:
		return true
	}
	return false
}

// Create records a new promise. The debt starts outstanding; value is a
// severity on [1,10], not currency.
func (s *Service) Create(ctx context.Context, creditorID, debtorID string, debtType models.DebtType, value int, reason string, dueAt *time.Time) (*models.Debt, error) {
	if creditorID == "" || debtorID == "" {
		return nil, &repositories.ValidationError{Rule: "debt_parties", Detail: "creditor and debtor are required"}
	}
	if creditorID == debtorID {
		return nil, &repositories.ValidationError{Rule: "self_debt", Detail: "a player cannot owe themselves"}
	}
	if !validDebtType(debtType) {
		return nil, &repositories.ValidationError{
			Rule:   "debt_type",
			Detail: fmt.Sprintf("unknown debt type %q", debtType),
		}
	}
	if value < config.DebtValueMin || value > config.DebtValueMax {
		return nil, &repositories.ValidationError{
			Rule:   "debt_value",
			Detail: fmt.Sprintf("value %d outside [%d,%d]", value, config.DebtValueMin, config.DebtValueMax),
		}
	}

	debt := &models.Debt{
		CreditorID: creditorID,
		DebtorID:   debtorID,
		Type:       debtType,
		Value:      value,
		Reason:     reason,
		DueAt:      dueAt,
	}
	if err := s.debts.Create(ctx, debt); err != nil {
		return nil, err
	}
	s.log.Info("Debt created",
		slog.Int64("debt_id", debt.ID),
		slog.String("creditor", creditorID),
		slog.String("debtor", debtorID),
		slog.Int("value", value))
	return debt, nil
}

// CallIn demands payment: outstanding -> called_in. Only the creditor may
// call a debt in.
func (s *Service) CallIn(ctx context.Context, debtID int64, callerID string) (*models.Debt, error) {
	return s.mutate(ctx, debtID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error {
		if callerID != d.CreditorID {
			return &repositories.ValidationError{Rule: "wrong_party", Detail: "only the creditor can call in a debt"}
		}
		if d.Status != models.DebtOutstanding {
			return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: string(models.DebtCalledIn)}
		}
		d.Status = models.DebtCalledIn
		return nil
	})
}

// Fulfill settles the debt: {outstanding|called_in} -> fulfilled. Only the
// debtor can fulfill; the returned trust bonus is for the caller to apply.
func (s *Service) Fulfill(ctx context.Context, debtID int64, callerID string) (*TransitionResult, error) {
	debt, err := s.mutate(ctx, debtID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error {
		if callerID != d.DebtorID {
			return &repositories.ValidationError{Rule: "wrong_party", Detail: "only the debtor can fulfill a debt"}
		}
		if d.Status != models.DebtOutstanding && d.Status != models.DebtCalledIn {
			return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: string(models.DebtFulfilled)}
		}
		now := time.Now()
		d.Status = models.DebtFulfilled
		d.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Debt: debt, TrustBonus: TrustBonus(debt.Value)}, nil
}

// Default marks the debt broken: {outstanding|called_in} -> defaulted. A
// DebtDefault row records the computed trust penalty alongside.
func (s *Service) Default(ctx context.Context, debtID int64, reason string) (*TransitionResult, error) {
	var penalty int
	debt, err := s.mutate(ctx, debtID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error {
		if d.Status != models.DebtOutstanding && d.Status != models.DebtCalledIn {
			return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: string(models.DebtDefaulted)}
		}
		now := time.Now()
		d.Status = models.DebtDefaulted
		d.ResolvedAt = &now
		penalty = TrustPenalty(d.Value)
		return tx.Insert(ctx, &models.DebtDefault{
			DebtID:       d.ID,
			DebtorID:     d.DebtorID,
			CreditorID:   d.CreditorID,
			TrustPenalty: penalty,
			Reason:       reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Debt: debt, TrustPenalty: penalty}, nil
}

// Forgive releases the debtor: {outstanding|called_in} -> forgiven. Only the
// creditor can forgive.
func (s *Service) Forgive(ctx context.Context, debtID int64, callerID, reason string) (*models.Debt, error) {
	return s.mutate(ctx, debtID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error {
		if callerID != d.CreditorID {
			return &repositories.ValidationError{Rule: "wrong_party", Detail: "only the creditor can forgive a debt"}
		}
		if d.Status != models.DebtOutstanding && d.Status != models.DebtCalledIn {
			return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: string(models.DebtForgiven)}
		}
		now := time.Now()
		d.Status = models.DebtForgiven
		d.ResolvedAt = &now
		return nil
	})
}

// Transfer reassigns the debt to a new creditor and logs the handover. A
// called-in debt reverts to outstanding: the new creditor must re-demand.
func (s *Service) Transfer(ctx context.Context, debtID int64, fromCreditorID, toCreditorID, reason string) (*models.Debt, error) {
	return s.mutate(ctx, debtID, func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error {
		return applyTransfer(ctx, tx, d, fromCreditorID, toCreditorID, reason)
	})
}

// applyTransfer is the shared transition body for direct transfers and
// marketplace acceptances; it runs inside the row-locking transaction.
func applyTransfer(ctx context.Context, tx repositories.TxInserter, d *models.Debt, fromCreditorID, toCreditorID, reason string) error {
	if fromCreditorID != d.CreditorID {
		return &repositories.ValidationError{Rule: "wrong_party", Detail: "only the current creditor can transfer a debt"}
	}
	if toCreditorID == d.DebtorID {
		return &repositories.ValidationError{Rule: "transfer_to_debtor", Detail: "cannot transfer a debt to its debtor"}
	}
	if toCreditorID == fromCreditorID {
		return &repositories.ValidationError{Rule: "transfer_to_self", Detail: "cannot transfer a debt to oneself"}
	}
	if d.Status != models.DebtOutstanding && d.Status != models.DebtCalledIn {
		return &repositories.InvalidTransitionError{Entity: "debt", From: string(d.Status), To: "transferred"}
	}

	d.PriorCreditorID = d.CreditorID
	d.CreditorID = toCreditorID
	// The demand does not survive the handover.
	d.Status = models.DebtOutstanding

	return tx.Insert(ctx, &models.DebtTransfer{
		DebtID:         d.ID,
		FromCreditorID: fromCreditorID,
		ToCreditorID:   toCreditorID,
		Reason:         reason,
	})
}

func (s *Service) mutate(ctx context.Context, debtID int64, fn func(ctx context.Context, tx repositories.TxInserter, d *models.Debt) error) (*models.Debt, error) {
	var debt *models.Debt
	err := utils.WithConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		debt, err = s.debts.Mutate(ctx, debtID, fn)
		return err
	})
	if err != nil {
		if utils.RetryableError(err) {
			return nil, &repositories.ConflictError{Entity: "debt", Detail: err.Error()}
		}
		return nil, err
	}
	return debt, nil
}

// GetDebt returns one debt by id.
func (s *Service) GetDebt(ctx context.Context, debtID int64) (*models.Debt, error) {
	return s.debts.GetByID(ctx, debtID)
}

// GetPlayerDebtSummary aggregates a player's position on both sides of the
// ledger.
func (s *Service) GetPlayerDebtSummary(ctx context.Context, playerID string) (*repositories.DebtSummary, error) {
	return s.debts.GetPlayerSummary(ctx, playerID)
}

// GetOverdueDebts lists live debts past their due date. Nothing
// auto-defaults: acting on an overdue debt stays a creditor decision.
func (s *Service) GetOverdueDebts(ctx context.Context) ([]*models.Debt, error) {
	return s.debts.GetOverdue(ctx, time.Now())
}
