package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR" // Euro (default)
	GBP Currency = "GBP" // British Pound
	USD Currency = "USD" // US Dollar
	CHF Currency = "CHF" // Swiss Franc
)

// DefaultCurrency is the default currency for the platform.
// Upstream provider payloads that omit the currency are treated as EUR.
const DefaultCurrency = EUR

// minorUnitFactor converts between major and minor units. All supported
// currencies use two decimal places.
var minorUnitFactor = decimal.NewFromInt(100)

// Money is an immutable value object representing monetary amounts.
// The canonical internal representation is integer minor units (cents);
// the decimal amount is kept exact, never a float.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money from an exact decimal amount in major units
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromMinorUnits creates Money from integer minor units (cents).
// Negative values represent outflows.
func NewMoneyFromMinorUnits(cents int64, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{
		amount:   decimal.NewFromInt(cents).Div(minorUnitFactor),
		currency: currency,
	}
}

// NewMoneyFromString creates Money from a decimal string such as "12.30".
// Parsing is exact; no float conversion is involved.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyEUR creates Money in EUR
func NewMoneyEUR(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: EUR}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the exact decimal amount in major units
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// MinorUnits returns the amount as integer minor units (cents).
// Returns an error if the amount carries sub-cent precision, which would
// indicate a corrupted or unsupported provider payload.
func (m Money) MinorUnits() (int64, error) {
	scaled := m.amount.Mul(minorUnitFactor)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-cent precision", m.amount.String())
	}
	return scaled.IntPart(), nil
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative (outflow)
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns a new Money with the difference.
// Returns error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String returns the string representation, e.g. "850.00 EUR"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// moneyJSON is the serialized form of Money
type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("invalid money amount: %w", err)
	}
	m.amount = amount
	m.currency = raw.Currency
	return nil
}

// Value implements driver.Valuer, storing the decimal amount
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// MinorUnitsFromString parses a decimal amount string ("12.30") into integer
// minor units. Provider APIs mix decimal-euro strings and integer cents; this
// is the decimal-string half of that normalization.
func MinorUnitsFromString(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount string %q: %w", amount, err)
	}
	m := Money{amount: d, currency: DefaultCurrency}
	return m.MinorUnits()
}
