package banking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// UUIDList is a slice of UUIDs stored as a JSON column
type UUIDList []uuid.UUID

// Value implements driver.Valuer for JSON storage
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSON storage
func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = UUIDList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan UUIDList: unsupported type")
	}
	if len(bytes) == 0 {
		*l = UUIDList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Payout is a batch settlement from the payment processor to the company's
// bank account. Its total should land as a single incoming bank transaction
// one to a few business days after the batch is created.
type Payout struct {
	shared.CompanyEntity
	ExternalID           string // provider-assigned id, upsert key
	AmountCents          int64
	Currency             valueobject.Currency
	ArrivalDate          time.Time // expected settlement date reported by the provider
	PaymentIDs           UUIDList  // constituent internal payment ids, when known
	State                ReconcileState
	MatchedTransactionID *uuid.UUID
	MatchedAt            *time.Time
}

// NewPayout creates a pending payout batch
func NewPayout(companyID uuid.UUID, externalID string, amountCents int64, currency valueobject.Currency, arrivalDate time.Time) *Payout {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &Payout{
		CompanyEntity: shared.NewCompanyEntity(companyID),
		ExternalID:    externalID,
		AmountCents:   amountCents,
		Currency:      currency,
		ArrivalDate:   arrivalDate,
		PaymentIDs:    UUIDList{},
		State:         ReconcileStatePending,
	}
}

// Money returns the payout total as a Money value object
func (p *Payout) Money() valueobject.Money {
	return valueobject.NewMoneyFromMinorUnits(p.AmountCents, p.Currency)
}

// MatchToTransaction records the bank transaction this payout settled into
func (p *Payout) MatchToTransaction(transactionID uuid.UUID) error {
	if p.State != ReconcileStatePending {
		return shared.NewDomainError("INVALID_STATE",
			"Payout is not pending review and cannot be matched")
	}
	now := time.Now()
	p.State = ReconcileStateMatched
	p.MatchedTransactionID = &transactionID
	p.MatchedAt = &now
	p.UpdatedAt = now
	return nil
}
