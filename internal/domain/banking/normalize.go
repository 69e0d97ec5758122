package banking

import (
	"time"

	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// DefaultDescription is applied when a provider payload carries no free text
const DefaultDescription = "Sin descripción"

// SourceRecord is the provider-shape input to normalization. Provider APIs
// mix integer minor units and decimal-euro strings for amounts; exactly one
// of AmountCents or AmountDecimal must be set.
type SourceRecord struct {
	ExternalID    string
	AmountCents   *int64 // integer minor units, signed
	AmountDecimal string // decimal string such as "12.30", signed
	Currency      string
	Date          time.Time
	Description   string
	Reference     string
}

// CanonicalTransaction is the single canonical shape every provider payload
// normalizes into. Amounts are integer minor units; negative means outflow.
type CanonicalTransaction struct {
	ExternalID      string
	AmountCents     int64
	Currency        valueobject.Currency
	Date            time.Time
	Description     string
	CounterpartyRef string
}

// Money returns the canonical amount as a Money value object
func (c CanonicalTransaction) Money() valueobject.Money {
	return valueobject.NewMoneyFromMinorUnits(c.AmountCents, c.Currency)
}

// Normalize converts a provider record into the canonical transaction shape.
// Missing optional fields get defaults; a missing id, date or amount is a
// validation error rather than a silently defaulted record.
func Normalize(rec SourceRecord) (CanonicalTransaction, error) {
	if rec.ExternalID == "" {
		return CanonicalTransaction{}, shared.NewValidationError("id", "external id is required")
	}
	if rec.Date.IsZero() {
		return CanonicalTransaction{}, shared.NewValidationError("date", "transaction date is required")
	}

	cents, err := normalizeAmount(rec)
	if err != nil {
		return CanonicalTransaction{}, err
	}

	currency := valueobject.Currency(rec.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	description := rec.Description
	if description == "" {
		description = DefaultDescription
	}

	return CanonicalTransaction{
		ExternalID:      rec.ExternalID,
		AmountCents:     cents,
		Currency:        currency,
		Date:            rec.Date,
		Description:     description,
		CounterpartyRef: rec.Reference,
	}, nil
}

// normalizeAmount reduces the two provider amount encodings to minor units.
// Decimal strings are parsed exactly; sub-cent precision is rejected.
func normalizeAmount(rec SourceRecord) (int64, error) {
	switch {
	case rec.AmountCents != nil && rec.AmountDecimal != "":
		return 0, shared.NewValidationError("amount", "both cents and decimal amount set")
	case rec.AmountCents != nil:
		return *rec.AmountCents, nil
	case rec.AmountDecimal != "":
		cents, err := valueobject.MinorUnitsFromString(rec.AmountDecimal)
		if err != nil {
			return 0, shared.NewValidationError("amount", err.Error())
		}
		return cents, nil
	default:
		return 0, shared.NewValidationError("amount", "amount is required")
	}
}
