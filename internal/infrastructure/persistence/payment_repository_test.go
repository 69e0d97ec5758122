package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(companyID uuid.UUID, reference string, amountCents int64) *banking.Payment {
	return banking.NewPayment(companyID, uuid.New(), "María García", reference,
		amountCents, valueobject.EUR, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
}

func TestGormPaymentRepository_FindReconcilableByCompany(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	eligible := newTestPayment(companyID, "tenant-001", 85000)
	require.NoError(t, repo.Save(ctx, eligible))

	failed := newTestPayment(companyID, "tenant-002", 60000)
	failed.MarkFailed()
	require.NoError(t, repo.Save(ctx, failed))

	reconciled := newTestPayment(companyID, "tenant-003", 40000)
	require.NoError(t, repo.Save(ctx, reconciled))
	claimed, err := repo.MarkReconciled(ctx, companyID, reconciled.ID, banking.CounterpartCollection, uuid.New())
	require.NoError(t, err)
	require.True(t, claimed)

	found, err := repo.FindReconcilableByCompany(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "tenant-001", found[0].Reference)
}

func TestGormPaymentRepository_MarkReconciled(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	payment := newTestPayment(companyID, "tenant-010", 50000)
	require.NoError(t, repo.Save(ctx, payment))

	counterpartID := uuid.New()
	claimed, err := repo.MarkReconciled(ctx, companyID, payment.ID, banking.CounterpartBankTransaction, counterpartID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkReconciled(ctx, companyID, payment.ID, banking.CounterpartCollection, uuid.New())
	require.NoError(t, err)
	assert.False(t, claimed)

	found, err := repo.FindByID(ctx, companyID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, banking.ReconcileStateMatched, found.ReconcileState)
	require.NotNil(t, found.CounterpartType)
	assert.Equal(t, banking.CounterpartBankTransaction, *found.CounterpartType)
	require.NotNil(t, found.CounterpartID)
	assert.Equal(t, counterpartID, *found.CounterpartID)
}

func TestGormPaymentRepository_MarkStatus(t *testing.T) {
	db := setupBankingTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	companyID := uuid.New()

	payment := newTestPayment(companyID, "tenant-020", 30000)
	require.NoError(t, repo.Save(ctx, payment))

	paidAt := time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.MarkStatus(ctx, companyID, payment.ID, banking.PaymentStatusPaid, &paidAt))

	found, err := repo.FindByID(ctx, companyID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, banking.PaymentStatusPaid, found.Status)
	require.NotNil(t, found.PaidAt)
	assert.Equal(t, paidAt.Unix(), found.PaidAt.Unix())
}
