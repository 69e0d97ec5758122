package banking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

func TestNormalize(t *testing.T) {
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	t.Run("cents and decimal string yield the same canonical amount", func(t *testing.T) {
		cents := int64(1230)
		fromCents, err := Normalize(SourceRecord{
			ExternalID:  "ext-1",
			AmountCents: &cents,
			Date:        date,
		})
		require.NoError(t, err)

		fromDecimal, err := Normalize(SourceRecord{
			ExternalID:    "ext-2",
			AmountDecimal: "12.30",
			Date:          date,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1230), fromCents.AmountCents)
		assert.Equal(t, fromCents.AmountCents, fromDecimal.AmountCents)
	})

	t.Run("optional fields get defaults", func(t *testing.T) {
		cents := int64(-4500)
		canonical, err := Normalize(SourceRecord{
			ExternalID:  "ext-3",
			AmountCents: &cents,
			Date:        date,
		})
		require.NoError(t, err)
		assert.Equal(t, valueobject.EUR, canonical.Currency)
		assert.Equal(t, DefaultDescription, canonical.Description)
	})

	t.Run("explicit fields are preserved", func(t *testing.T) {
		canonical, err := Normalize(SourceRecord{
			ExternalID:    "ext-4",
			AmountDecimal: "-850.00",
			Currency:      "GBP",
			Date:          date,
			Description:   "RECIBO ALQUILER MARZO",
			Reference:     "tenant-123",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-85000), canonical.AmountCents)
		assert.Equal(t, valueobject.GBP, canonical.Currency)
		assert.Equal(t, "RECIBO ALQUILER MARZO", canonical.Description)
		assert.Equal(t, "tenant-123", canonical.CounterpartyRef)
	})

	t.Run("missing required fields fail loudly naming the field", func(t *testing.T) {
		cents := int64(100)
		cases := []struct {
			name  string
			rec   SourceRecord
			field string
		}{
			{"missing id", SourceRecord{AmountCents: &cents, Date: date}, "id"},
			{"missing date", SourceRecord{ExternalID: "x", AmountCents: &cents}, "date"},
			{"missing amount", SourceRecord{ExternalID: "x", Date: date}, "amount"},
			{"conflicting amounts", SourceRecord{ExternalID: "x", Date: date, AmountCents: &cents, AmountDecimal: "1.00"}, "amount"},
			{"garbage amount", SourceRecord{ExternalID: "x", Date: date, AmountDecimal: "12,30 EUR"}, "amount"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Normalize(tc.rec)
				require.Error(t, err)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, "VALIDATION", domainErr.Code)
				assert.Contains(t, domainErr.Message, tc.field)
			})
		}
	})

	t.Run("sub-cent precision is rejected not rounded", func(t *testing.T) {
		_, err := Normalize(SourceRecord{
			ExternalID:    "ext-5",
			AmountDecimal: "12.305",
			Date:          date,
		})
		assert.Error(t, err)
	})
}
