package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DebtType string

const (
	DebtFavor       DebtType = "favor"
	DebtMoney       DebtType = "money"
	DebtProtection  DebtType = "protection"
	DebtService     DebtType = "service"
	DebtInformation DebtType = "information"
	DebtBlood       DebtType = "blood_debt"
)

type DebtStatus string

const (
	DebtOutstanding DebtStatus = "outstanding"
	DebtCalledIn    DebtStatus = "called_in"
	DebtFulfilled   DebtStatus = "fulfilled"
	DebtDefaulted   DebtStatus = "defaulted"
	DebtForgiven    DebtStatus = "forgiven"
)

// IsTerminal reports whether no further transition can leave the status.
func (s DebtStatus) IsTerminal() bool {
	switch s {
	case DebtFulfilled, DebtDefaulted, DebtForgiven:
		return true
	}
	return false
}

// Debt is a tracked social obligation between two players. Value is a
// severity on [1,10], not a currency amount.
type Debt struct {
	bun.BaseModel `bun:"table:debts,alias:db"`

	ID         int64      `bun:"id,pk,autoincrement" json:"id"`
	CreditorID string     `bun:"creditor_id,notnull" json:"creditor_id"`
	DebtorID   string     `bun:"debtor_id,notnull" json:"debtor_id"`
	Type       DebtType   `bun:"debt_type,notnull" json:"debt_type"`
	Value      int        `bun:"value,notnull" json:"value"`
	Status     DebtStatus `bun:"status,notnull,default:'outstanding'" json:"status"`
	Reason     string     `bun:"reason" json:"reason,omitempty"`

	DueAt *time.Time `bun:"due_at" json:"due_at,omitempty"`

	// Set when the debt changed hands at least once.
	PriorCreditorID string `bun:"prior_creditor_id" json:"prior_creditor_id,omitempty"`

	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	ResolvedAt *time.Time `bun:"resolved_at" json:"resolved_at,omitempty"`
}

// DebtTransfer is the append-only record of one ownership change.
type DebtTransfer struct {
	bun.BaseModel `bun:"table:debt_transfers,alias:dt"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	DebtID         int64     `bun:"debt_id,notnull" json:"debt_id"`
	FromCreditorID string    `bun:"from_creditor_id,notnull" json:"from_creditor_id"`
	ToCreditorID   string    `bun:"to_creditor_id,notnull" json:"to_creditor_id"`
	Reason         string    `bun:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// DebtDefault is the append-only record of one default, including the trust
// penalty the ledger computed for the gameplay layer to apply.
type DebtDefault struct {
	bun.BaseModel `bun:"table:debt_defaults,alias:dd"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	DebtID       int64     `bun:"debt_id,notnull" json:"debt_id"`
	DebtorID     string    `bun:"debtor_id,notnull" json:"debtor_id"`
	CreditorID   string    `bun:"creditor_id,notnull" json:"creditor_id"`
	TrustPenalty int       `bun:"trust_penalty,notnull" json:"trust_penalty"`
	Reason       string    `bun:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferAccepted  OfferStatus = "accepted"
	OfferExpired   OfferStatus = "expired"
	OfferWithdrawn OfferStatus = "withdrawn"
)

// DebtOffer is a marketplace listing for one debt. A debt has at most one
// open offer at a time.
type DebtOffer struct {
	bun.BaseModel `bun:"table:debt_offers,alias:do"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	OfferCode string `bun:"offer_code,notnull,unique" json:"offer_code"`
	DebtID    int64  `bun:"debt_id,notnull" json:"debt_id"`
	SellerID  string `bun:"seller_id,notnull" json:"seller_id"`

	// What the seller wants in exchange, in the same severity terms as debts.
	AskingType  DebtType `bun:"asking_type,notnull" json:"asking_type"`
	AskingValue int      `bun:"asking_value,notnull" json:"asking_value"`

	Status     OfferStatus `bun:"status,notnull,default:'open'" json:"status"`
	AcceptorID string      `bun:"acceptor_id" json:"acceptor_id,omitempty"`

	ExpiresAt  time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ResolvedAt *time.Time `bun:"resolved_at" json:"resolved_at,omitempty"`
}
