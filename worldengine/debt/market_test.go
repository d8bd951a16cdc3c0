package debt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
)

type fakeOfferRepo struct {
	debts  *fakeDebtRepo
	offers map[string]*models.DebtOffer
	nextID int64
}

func newFakeOfferRepo(debts *fakeDebtRepo) *fakeOfferRepo {
	return &fakeOfferRepo{debts: debts, offers: make(map[string]*models.DebtOffer)}
}

func (f *fakeOfferRepo) DB() *bun.DB { return nil }

func (f *fakeOfferRepo) CreateOffer(_ context.Context, offer *models.DebtOffer, guard func(d *models.Debt) error) error {
	d, ok := f.debts.debts[offer.DebtID]
	if !ok {
		return &repositories.NotFoundError{Entity: "debt", ID: offer.DebtID}
	}
	if err := guard(d); err != nil {
		return err
	}
	for _, existing := range f.offers {
		if existing.DebtID == offer.DebtID && existing.Status == models.OfferOpen {
			return &repositories.ConflictError{Entity: "debt_offer", Detail: "debt already has an open offer"}
		}
	}

	f.nextID++
	offer.ID = f.nextID
	offer.Status = models.OfferOpen
	offer.CreatedAt = time.Now()
	f.offers[offer.OfferCode] = offer
	return nil
}

func (f *fakeOfferRepo) GetByCode(_ context.Context, offerCode string) (*models.DebtOffer, error) {
	o, ok := f.offers[offerCode]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "debt_offer", ID: offerCode}
	}
	return o, nil
}

func (f *fakeOfferRepo) GetOpen(_ context.Context) ([]*models.DebtOffer, error) {
	var out []*models.DebtOffer
	now := time.Now()
	for _, o := range f.offers {
		if o.Status == models.OfferOpen && o.ExpiresAt.After(now) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOfferRepo) Accept(ctx context.Context, offerCode, acceptorID string, transfer func(ctx context.Context, tx repositories.TxInserter, d *models.Debt, o *models.DebtOffer) error) (*models.DebtOffer, error) {
	offer, ok := f.offers[offerCode]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "debt_offer", ID: offerCode}
	}
	if offer.Status != models.OfferOpen {
		return nil, &repositories.InvalidTransitionError{Entity: "debt_offer", From: string(offer.Status), To: string(models.OfferAccepted)}
	}
	if time.Now().After(offer.ExpiresAt) {
		return nil, &repositories.InvalidTransitionError{Entity: "debt_offer", From: "expired", To: string(models.OfferAccepted)}
	}

	d, ok := f.debts.debts[offer.DebtID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "debt", ID: offer.DebtID}
	}

	transfersBefore := len(f.debts.transfers)
	work := *d
	if err := transfer(ctx, debtTxInserter{repo: f.debts}, &work, offer); err != nil {
		f.debts.transfers = f.debts.transfers[:transfersBefore]
		return nil, err
	}
	f.debts.debts[d.ID] = &work

	now := time.Now()
	offer.Status = models.OfferAccepted
	offer.AcceptorID = acceptorID
	offer.ResolvedAt = &now
	return offer, nil
}

func (f *fakeOfferRepo) ExpireOpenBefore(_ context.Context, asOf time.Time) (int64, error) {
	var affected int64
	for _, o := range f.offers {
		if o.Status == models.OfferOpen && o.ExpiresAt.Before(asOf) {
			resolved := asOf
			o.Status = models.OfferExpired
			o.ResolvedAt = &resolved
			affected++
		}
	}
	return affected, nil
}

func TestCreateOfferGuards(t *testing.T) {
	svc, _, _ := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	if _, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtType("souls"), 3, time.Hour); err == nil {
		t.Error("unknown asking type must be rejected")
	}
	if _, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 0, time.Hour); err == nil {
		t.Error("asking value below range must be rejected")
	}
	if _, err := svc.CreateOffer(context.Background(), d.ID, "impostor", models.DebtFavor, 3, time.Hour); err == nil {
		t.Error("only the creditor may list")
	}

	settled := mustCreateDebt(t, svc, "seller", "debtor2", 5)
	if _, err := svc.Fulfill(context.Background(), settled.ID, "debtor2"); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	_, err := svc.CreateOffer(context.Background(), settled.ID, "seller", models.DebtFavor, 3, time.Hour)
	var ite *repositories.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("listing a settled debt: expected InvalidTransitionError, got %v", err)
	}
}

func TestCreateOfferOneOpenPerDebt(t *testing.T) {
	svc, _, _ := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	if _, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 3, time.Hour); err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if _, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtMoney, 4, time.Hour); !repositories.IsConflict(err) {
		t.Fatalf("second open offer: expected ConflictError, got %v", err)
	}
}

func TestAcceptOfferTransfersDebt(t *testing.T) {
	svc, debts, _ := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	offer, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 3, time.Hour)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	accepted, err := svc.AcceptOffer(context.Background(), offer.OfferCode, "buyer")
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if accepted.Status != models.OfferAccepted || accepted.AcceptorID != "buyer" {
		t.Errorf("offer after accept = %+v", accepted)
	}

	stored := debts.debts[d.ID]
	if stored.CreditorID != "buyer" || stored.PriorCreditorID != "seller" {
		t.Errorf("debt ownership = %s (prior %s), want buyer/seller", stored.CreditorID, stored.PriorCreditorID)
	}
	if stored.Status != models.DebtOutstanding {
		t.Errorf("debt status after transfer = %s, want outstanding", stored.Status)
	}
	if len(debts.transfers) != 1 {
		t.Errorf("expected 1 transfer record, got %d", len(debts.transfers))
	}

	// A resolved offer cannot be accepted again.
	_, err = svc.AcceptOffer(context.Background(), offer.OfferCode, "other-buyer")
	var ite *repositories.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("double accept: expected InvalidTransitionError, got %v", err)
	}
}

func TestAcceptOfferGuards(t *testing.T) {
	svc, debts, _ := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	offer, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 3, time.Hour)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	tests := []struct {
		name     string
		acceptor string
	}{
		{"seller buying own offer", "seller"},
		{"debtor buying own debt", "debtor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AcceptOffer(context.Background(), offer.OfferCode, tt.acceptor)
			var ve *repositories.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	// Failed acceptances must leave both the offer and the debt untouched.
	if offer.Status != models.OfferOpen {
		t.Errorf("offer status = %s, want open", offer.Status)
	}
	if debts.debts[d.ID].CreditorID != "seller" {
		t.Error("debt must keep its creditor after rejected acceptances")
	}

	if _, err := svc.AcceptOffer(context.Background(), "no-such-offer", "buyer"); !repositories.IsNotFound(err) {
		t.Errorf("unknown offer: expected NotFoundError, got %v", err)
	}
}

func TestExpireOffersLeavesDebtUntouched(t *testing.T) {
	svc, debts, offers := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	offer, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 3, time.Hour)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	// Force the deadline into the past.
	offer.ExpiresAt = time.Now().Add(-time.Minute)

	expired, err := svc.ExpireOffers(context.Background())
	if err != nil {
		t.Fatalf("ExpireOffers: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	if offer.Status != models.OfferExpired {
		t.Errorf("offer status = %s, want expired", offer.Status)
	}

	stored := debts.debts[d.ID]
	if stored.Status != models.DebtOutstanding || stored.CreditorID != "seller" {
		t.Errorf("debt after offer expiry = %+v, must be unchanged", stored)
	}

	// Re-running the sweep finds nothing.
	expired, err = svc.ExpireOffers(context.Background())
	if err != nil {
		t.Fatalf("ExpireOffers rerun: %v", err)
	}
	if expired != 0 {
		t.Errorf("rerun expired = %d, want 0", expired)
	}

	open, _ := offers.GetOpen(context.Background())
	if len(open) != 0 {
		t.Errorf("open offers after expiry = %d, want 0", len(open))
	}
}

func TestDefaultOfferDuration(t *testing.T) {
	svc, _, _ := newTestLedger()
	d := mustCreateDebt(t, svc, "seller", "debtor", 5)

	offer, err := svc.CreateOffer(context.Background(), d.ID, "seller", models.DebtFavor, 3, 0)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	remaining := time.Until(offer.ExpiresAt)
	if remaining < 71*time.Hour || remaining > 73*time.Hour {
		t.Errorf("default expiry %v away, want about 72h", remaining)
	}
}
