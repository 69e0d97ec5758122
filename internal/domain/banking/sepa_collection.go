package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// CollectionStatus mirrors the provider-side lifecycle of a SEPA direct-debit
// collection. Only submitted and confirmed collections enter the matcher's
// candidate pool.
type CollectionStatus string

const (
	CollectionStatusCreated   CollectionStatus = "CREATED"
	CollectionStatusSubmitted CollectionStatus = "SUBMITTED"
	CollectionStatusConfirmed CollectionStatus = "CONFIRMED"
	CollectionStatusFailed    CollectionStatus = "FAILED"
	CollectionStatusRefunded  CollectionStatus = "REFUNDED"
)

// IsValid checks if the status is a valid CollectionStatus
func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionStatusCreated, CollectionStatusSubmitted, CollectionStatusConfirmed,
		CollectionStatusFailed, CollectionStatusRefunded:
		return true
	}
	return false
}

// CanReconcile returns true if a collection in this status may be matched
func (s CollectionStatus) CanReconcile() bool {
	return s == CollectionStatusSubmitted || s == CollectionStatusConfirmed
}

// SepaCollection is a SEPA direct-debit charge reported by the payment
// provider, upserted from webhook events and full syncs. The first matcher
// pass pairs it with the internal Payment it was raised for.
type SepaCollection struct {
	shared.CompanyEntity
	ExternalID       string // provider-assigned id, upsert key
	MandateID        string
	AmountCents      int64
	Currency         valueobject.Currency
	ChargeDate       time.Time
	Reference        string // tenant reference carried in provider metadata
	Description      string
	Status           CollectionStatus
	State            ReconcileState
	MatchedPaymentID *uuid.UUID
	MatchedAt        *time.Time
}

// NewSepaCollection creates a pending collection record
func NewSepaCollection(companyID uuid.UUID, canonical CanonicalTransaction, mandateID string, status CollectionStatus) *SepaCollection {
	return &SepaCollection{
		CompanyEntity: shared.NewCompanyEntity(companyID),
		ExternalID:    canonical.ExternalID,
		MandateID:     mandateID,
		AmountCents:   canonical.AmountCents,
		Currency:      canonical.Currency,
		ChargeDate:    canonical.Date,
		Reference:     canonical.CounterpartyRef,
		Description:   canonical.Description,
		Status:        status,
		State:         ReconcileStatePending,
	}
}

// Money returns the collection amount as a Money value object
func (c *SepaCollection) Money() valueobject.Money {
	return valueobject.NewMoneyFromMinorUnits(c.AmountCents, c.Currency)
}

// MatchToPayment records the internal payment this collection charges
func (c *SepaCollection) MatchToPayment(paymentID uuid.UUID) error {
	if c.State != ReconcileStatePending {
		return shared.NewDomainError("INVALID_STATE",
			"Collection is not pending review and cannot be matched")
	}
	now := time.Now()
	c.State = ReconcileStateMatched
	c.MatchedPaymentID = &paymentID
	c.MatchedAt = &now
	c.UpdatedAt = now
	return nil
}

// UpdateStatus applies a provider status transition, e.g. from a later
// webhook event for the same collection.
func (c *SepaCollection) UpdateStatus(status CollectionStatus) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}
