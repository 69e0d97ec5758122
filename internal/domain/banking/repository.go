package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StateCounts aggregates reconciliation states for a company's transactions
type StateCounts struct {
	Pending int64
	Matched int64
	Ignored int64
}

// BankTransactionRepository persists bank transactions
type BankTransactionRepository interface {
	Save(ctx context.Context, tx *BankTransaction) error
	// Upsert inserts or updates by (company, external id); a duplicate sync
	// must never produce a second row.
	Upsert(ctx context.Context, tx *BankTransaction) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error)
	FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]BankTransaction, error)
	// MarkMatched transitions pending_review → matched with the counterpart
	// reference. The update is conditional on the row still being pending so
	// overlapping runs cannot overwrite each other's claims; returns false
	// when another run got there first.
	MarkMatched(ctx context.Context, companyID, id uuid.UUID, counterpartType CounterpartType, counterpartID uuid.UUID) (bool, error)
	// MarkIgnored transitions pending_review → ignored (manual override)
	MarkIgnored(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	CountByState(ctx context.Context, companyID uuid.UUID) (StateCounts, error)
}

// PaymentRepository persists internal payments. Reconciliation reads them and
// writes only the reconcile-state columns.
type PaymentRepository interface {
	Save(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	FindReconcilableByCompany(ctx context.Context, companyID uuid.UUID) ([]Payment, error)
	// MarkReconciled is conditional on the payment still being pending review
	MarkReconciled(ctx context.Context, companyID, id uuid.UUID, counterpartType CounterpartType, counterpartID uuid.UUID) (bool, error)
	MarkStatus(ctx context.Context, companyID, id uuid.UUID, status PaymentStatus, paidAt *time.Time) error
}

// PayoutRepository persists payout batches
type PayoutRepository interface {
	Upsert(ctx context.Context, p *Payout) error
	FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (*Payout, error)
	FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]Payout, error)
	MarkMatched(ctx context.Context, companyID, id, transactionID uuid.UUID) (bool, error)
}

// SepaCollectionRepository persists SEPA direct-debit collections
type SepaCollectionRepository interface {
	Upsert(ctx context.Context, c *SepaCollection) error
	FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (*SepaCollection, error)
	FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]SepaCollection, error)
	MarkMatched(ctx context.Context, companyID, id, paymentID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, companyID uuid.UUID, externalID string, status CollectionStatus) error
}

// BankConnectionRepository persists per-company provider links
type BankConnectionRepository interface {
	Save(ctx context.Context, c *BankConnection) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*BankConnection, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]BankConnection, error)
	TouchSync(ctx context.Context, companyID, id uuid.UUID, at time.Time) error
	TouchReconciled(ctx context.Context, companyID uuid.UUID, at time.Time) error
	MarkStatus(ctx context.Context, companyID, id uuid.UUID, status ConnectionStatus) error
}

// WebhookEventRepository persists raw provider webhook events
type WebhookEventRepository interface {
	Save(ctx context.Context, e *WebhookEvent) error
	FindByEventID(ctx context.Context, provider, eventID string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, handlerErr error) error
	FindFailed(ctx context.Context, provider string, limit int) ([]WebhookEvent, error)
}
