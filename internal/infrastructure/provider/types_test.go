package provider

import (
	"errors"
	"testing"

	"github.com/inmova/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("decodes a valid envelope", func(t *testing.T) {
		body := []byte(`{
			"events": [
				{
					"id": "EV-001",
					"resource_type": "payments",
					"action": "confirmed",
					"links": {"payment": "PM-001"},
					"metadata": {"company_id": "c-1"}
				}
			]
		}`)

		envelope, err := DecodeEnvelope(body)
		require.NoError(t, err)
		require.Len(t, envelope.Events, 1)

		event := envelope.Events[0]
		assert.Equal(t, "EV-001", event.ID)
		assert.Equal(t, ResourcePayments, event.ResourceType)
		assert.Equal(t, "confirmed", event.Action)
		assert.Equal(t, "PM-001", event.Links.Payment)
		assert.Equal(t, "c-1", event.Metadata.CompanyID())
	})

	t.Run("empty events array is valid", func(t *testing.T) {
		envelope, err := DecodeEnvelope([]byte(`{"events": []}`))
		require.NoError(t, err)
		assert.Empty(t, envelope.Events)
	})

	t.Run("rejects non-JSON bodies", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`not json`))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "VALIDATION", domainErr.Code)
	})

	t.Run("rejects bodies without an events array", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"other": true}`))
		assert.Error(t, err)
	})

	t.Run("rejects events without ids or resource types", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"events": [{"resource_type": "payments"}]}`))
		assert.Error(t, err)

		_, err = DecodeEnvelope([]byte(`{"events": [{"id": "EV-002"}]}`))
		assert.Error(t, err)
	})
}
