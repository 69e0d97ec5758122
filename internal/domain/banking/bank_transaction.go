package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// ReconcileState represents the reconciliation state of a banking record
type ReconcileState string

const (
	ReconcileStatePending ReconcileState = "PENDING_REVIEW" // Awaiting a match
	ReconcileStateMatched ReconcileState = "MATCHED"        // Matched to a counterpart (terminal)
	ReconcileStateIgnored ReconcileState = "IGNORED"        // Manually excluded (terminal)
)

// IsValid checks if the state is a valid ReconcileState
func (s ReconcileState) IsValid() bool {
	switch s {
	case ReconcileStatePending, ReconcileStateMatched, ReconcileStateIgnored:
		return true
	}
	return false
}

// String returns the string representation of ReconcileState
func (s ReconcileState) String() string {
	return string(s)
}

// IsTerminal returns true once the record can no longer be claimed by a matcher pass
func (s ReconcileState) IsTerminal() bool {
	return s == ReconcileStateMatched || s == ReconcileStateIgnored
}

// CounterpartType identifies what kind of record a match points at
type CounterpartType string

const (
	CounterpartPayment         CounterpartType = "PAYMENT"
	CounterpartPayout          CounterpartType = "PAYOUT"
	CounterpartCollection      CounterpartType = "COLLECTION"
	CounterpartBankTransaction CounterpartType = "BANK_TRANSACTION"
)

// IsValid checks if the counterpart type is valid
func (t CounterpartType) IsValid() bool {
	switch t {
	case CounterpartPayment, CounterpartPayout, CounterpartCollection, CounterpartBankTransaction:
		return true
	}
	return false
}

// BankTransaction is a company-scoped movement on a connected bank account.
// It is created by sync or webhook ingest and only ever state-transitioned,
// never deleted. Once matched it carries a back-reference to exactly one
// counterpart; funds are never double counted.
type BankTransaction struct {
	shared.CompanyEntity
	ConnectionID    uuid.UUID
	ExternalID      string // provider-assigned id, upsert key
	AmountCents     int64  // signed minor units, negative = outflow
	Currency        valueobject.Currency
	BookedAt        time.Time
	Description     string
	CounterpartyRef string
	State           ReconcileState
	CounterpartType *CounterpartType
	CounterpartID   *uuid.UUID
	MatchedAt       *time.Time
}

// NewBankTransaction creates a pending-review bank transaction from a canonical record
func NewBankTransaction(companyID, connectionID uuid.UUID, canonical CanonicalTransaction) *BankTransaction {
	return &BankTransaction{
		CompanyEntity:   shared.NewCompanyEntity(companyID),
		ConnectionID:    connectionID,
		ExternalID:      canonical.ExternalID,
		AmountCents:     canonical.AmountCents,
		Currency:        canonical.Currency,
		BookedAt:        canonical.Date,
		Description:     canonical.Description,
		CounterpartyRef: canonical.CounterpartyRef,
		State:           ReconcileStatePending,
	}
}

// Money returns the transaction amount as a Money value object
func (t *BankTransaction) Money() valueobject.Money {
	return valueobject.NewMoneyFromMinorUnits(t.AmountCents, t.Currency)
}

// IsIncoming returns true for inflows (credits on the account)
func (t *BankTransaction) IsIncoming() bool {
	return t.AmountCents > 0
}

// MatchTo records the single counterpart for this transaction.
// Only pending-review transactions may be matched; matched is terminal.
func (t *BankTransaction) MatchTo(counterpartType CounterpartType, counterpartID uuid.UUID) error {
	if t.State != ReconcileStatePending {
		return shared.NewDomainError("INVALID_STATE",
			"Bank transaction is not pending review and cannot be matched")
	}
	if !counterpartType.IsValid() {
		return shared.ErrInvalidInput
	}
	now := time.Now()
	t.State = ReconcileStateMatched
	t.CounterpartType = &counterpartType
	t.CounterpartID = &counterpartID
	t.MatchedAt = &now
	t.UpdatedAt = now
	return nil
}

// Ignore manually excludes the transaction from reconciliation.
// Terminal; there is no transition back to pending review.
func (t *BankTransaction) Ignore() error {
	if t.State != ReconcileStatePending {
		return shared.NewDomainError("INVALID_STATE",
			"Only pending-review transactions can be ignored")
	}
	t.State = ReconcileStateIgnored
	t.UpdatedAt = time.Now()
	return nil
}
