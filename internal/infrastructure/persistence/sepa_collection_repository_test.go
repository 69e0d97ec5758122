package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
	"github.com/inmova/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(companyID uuid.UUID, externalID string, status banking.CollectionStatus) *banking.SepaCollection {
	return banking.NewSepaCollection(companyID, banking.CanonicalTransaction{
		ExternalID:      externalID,
		AmountCents:     85000,
		Currency:        valueobject.EUR,
		Date:            time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		Description:     "Recibo marzo",
		CounterpartyRef: "tenant-001",
	}, "MD0001", status)
}

func TestGormSepaCollectionRepository_Upsert(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormSepaCollectionRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("replayed event updates in place", func(t *testing.T) {
		first := newTestCollection(companyID, "PM-001", banking.CollectionStatusSubmitted)
		require.NoError(t, repo.Upsert(ctx, first))

		replay := newTestCollection(companyID, "PM-001", banking.CollectionStatusConfirmed)
		require.NoError(t, repo.Upsert(ctx, replay))

		var count int64
		require.NoError(t, db.Model(&models.SepaCollectionModel{}).
			Where("company_id = ? AND external_id = ?", companyID, "PM-001").
			Count(&count).Error)
		assert.Equal(t, int64(1), count)

		found, err := repo.FindByExternalID(ctx, companyID, "PM-001")
		require.NoError(t, err)
		assert.Equal(t, banking.CollectionStatusConfirmed, found.Status)
	})
}

func TestGormSepaCollectionRepository_FindPendingByCompany(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormSepaCollectionRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, newTestCollection(companyID, "PM-sub", banking.CollectionStatusSubmitted)))
	require.NoError(t, repo.Upsert(ctx, newTestCollection(companyID, "PM-conf", banking.CollectionStatusConfirmed)))
	require.NoError(t, repo.Upsert(ctx, newTestCollection(companyID, "PM-fail", banking.CollectionStatusFailed)))
	require.NoError(t, repo.Upsert(ctx, newTestCollection(companyID, "PM-created", banking.CollectionStatusCreated)))

	found, err := repo.FindPendingByCompany(ctx, companyID)
	require.NoError(t, err)
	externalIDs := make([]string, len(found))
	for i, c := range found {
		externalIDs[i] = c.ExternalID
	}
	assert.ElementsMatch(t, []string{"PM-sub", "PM-conf"}, externalIDs)
}

func TestGormSepaCollectionRepository_MarkMatched(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormSepaCollectionRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	collection := newTestCollection(companyID, "PM-match", banking.CollectionStatusConfirmed)
	require.NoError(t, repo.Upsert(ctx, collection))

	paymentID := uuid.New()
	claimed, err := repo.MarkMatched(ctx, companyID, collection.ID, paymentID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkMatched(ctx, companyID, collection.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, claimed)

	found, err := repo.FindByExternalID(ctx, companyID, "PM-match")
	require.NoError(t, err)
	assert.Equal(t, banking.ReconcileStateMatched, found.State)
	require.NotNil(t, found.MatchedPaymentID)
	assert.Equal(t, paymentID, *found.MatchedPaymentID)
}

func TestGormSepaCollectionRepository_UpdateStatus(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormSepaCollectionRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	collection := newTestCollection(companyID, "PM-status", banking.CollectionStatusSubmitted)
	require.NoError(t, repo.Upsert(ctx, collection))

	require.NoError(t, repo.UpdateStatus(ctx, companyID, "PM-status", banking.CollectionStatusFailed))

	found, err := repo.FindByExternalID(ctx, companyID, "PM-status")
	require.NoError(t, err)
	assert.Equal(t, banking.CollectionStatusFailed, found.Status)

	err = repo.UpdateStatus(ctx, companyID, "PM-missing", banking.CollectionStatusFailed)
	assert.Error(t, err)
}
