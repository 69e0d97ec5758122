package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// PaymentStatus represents the business status of an internal payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // Expected, not yet received
	PaymentStatusPaid    PaymentStatus = "PAID"    // Funds received
	PaymentStatusFailed  PaymentStatus = "FAILED"  // Collection failed (e.g. chargeback)
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment is an internal expected or received payment tied to a contract and
// tenant, e.g. a monthly rent collection. It is created by the leasing side of
// the platform; reconciliation only ever reads it and writes its reconcile
// state plus counterpart reference.
type Payment struct {
	shared.CompanyEntity
	ContractID      uuid.UUID
	TenantName      string
	Reference       string // collection reference embedded in provider descriptions, e.g. "tenant-123"
	AmountCents     int64
	Currency        valueobject.Currency
	DueDate         time.Time
	PaidAt          *time.Time
	Status          PaymentStatus
	ReconcileState  ReconcileState
	CounterpartType *CounterpartType
	CounterpartID   *uuid.UUID
}

// NewPayment creates a pending payment
func NewPayment(companyID, contractID uuid.UUID, tenantName, reference string, amountCents int64, currency valueobject.Currency, dueDate time.Time) *Payment {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &Payment{
		CompanyEntity:  shared.NewCompanyEntity(companyID),
		ContractID:     contractID,
		TenantName:     tenantName,
		Reference:      reference,
		AmountCents:    amountCents,
		Currency:       currency,
		DueDate:        dueDate,
		Status:         PaymentStatusPending,
		ReconcileState: ReconcileStatePending,
	}
}

// Money returns the payment amount as a Money value object
func (p *Payment) Money() valueobject.Money {
	return valueobject.NewMoneyFromMinorUnits(p.AmountCents, p.Currency)
}

// CanReconcile returns true if the payment can still be claimed by a matcher pass
func (p *Payment) CanReconcile() bool {
	return p.ReconcileState == ReconcileStatePending && p.Status != PaymentStatusFailed
}

// MarkReconciled records the counterpart for this payment exactly once
func (p *Payment) MarkReconciled(counterpartType CounterpartType, counterpartID uuid.UUID) error {
	if p.ReconcileState != ReconcileStatePending {
		return shared.NewDomainError("INVALID_STATE",
			"Payment is already reconciled")
	}
	p.ReconcileState = ReconcileStateMatched
	p.CounterpartType = &counterpartType
	p.CounterpartID = &counterpartID
	p.UpdatedAt = time.Now()
	return nil
}

// MarkPaid records that the funds were received
func (p *Payment) MarkPaid(at time.Time) {
	p.Status = PaymentStatusPaid
	p.PaidAt = &at
	p.UpdatedAt = time.Now()
}

// MarkFailed records a failed collection. A failed payment stays out of the
// matcher's candidate pool.
func (p *Payment) MarkFailed() {
	p.Status = PaymentStatusFailed
	p.UpdatedAt = time.Now()
}
