package banking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
	"github.com/inmova/backend/internal/infrastructure/persistence"
	"github.com/inmova/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testRepos bundles sqlite-backed repositories for service tests
type testRepos struct {
	db           *gorm.DB
	transactions *persistence.GormBankTransactionRepository
	payments     *persistence.GormPaymentRepository
	payouts      *persistence.GormPayoutRepository
	collections  *persistence.GormSepaCollectionRepository
	connections  *persistence.GormBankConnectionRepository
	events       *persistence.GormWebhookEventRepository
}

func setupTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.BankTransactionModel{},
		&models.PaymentModel{},
		&models.PayoutModel{},
		&models.SepaCollectionModel{},
		&models.BankConnectionModel{},
		&models.WebhookEventModel{},
	)
	require.NoError(t, err)

	return &testRepos{
		db:           db,
		transactions: persistence.NewGormBankTransactionRepository(db),
		payments:     persistence.NewGormPaymentRepository(db),
		payouts:      persistence.NewGormPayoutRepository(db),
		collections:  persistence.NewGormSepaCollectionRepository(db),
		connections:  persistence.NewGormBankConnectionRepository(db),
		events:       persistence.NewGormWebhookEventRepository(db),
	}
}

func newReconciliationService(repos *testRepos) *ReconciliationService {
	return NewReconciliationService(ReconciliationServiceConfig{
		Transactions: repos.transactions,
		Payments:     repos.payments,
		Payouts:      repos.payouts,
		Collections:  repos.collections,
		Connections:  repos.connections,
		MatchConfig:  banking.DefaultMatchConfig(),
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedPayment(t *testing.T, repos *testRepos, companyID uuid.UUID, reference string, amountCents int64, due time.Time) *banking.Payment {
	t.Helper()
	p := banking.NewPayment(companyID, uuid.New(), "María García", reference, amountCents, valueobject.EUR, due)
	require.NoError(t, repos.payments.Save(context.Background(), p))
	return p
}

func seedCollection(t *testing.T, repos *testRepos, companyID uuid.UUID, externalID, reference string, amountCents int64, chargeDate time.Time) *banking.SepaCollection {
	t.Helper()
	c := banking.NewSepaCollection(companyID, banking.CanonicalTransaction{
		ExternalID:      externalID,
		AmountCents:     amountCents,
		Currency:        valueobject.EUR,
		Date:            chargeDate,
		Description:     "Recibo",
		CounterpartyRef: reference,
	}, "MD-1", banking.CollectionStatusConfirmed)
	require.NoError(t, repos.collections.Upsert(context.Background(), c))
	return c
}

func seedTransaction(t *testing.T, repos *testRepos, companyID uuid.UUID, externalID, description string, amountCents int64, bookedAt time.Time) *banking.BankTransaction {
	t.Helper()
	tx := banking.NewBankTransaction(companyID, uuid.New(), banking.CanonicalTransaction{
		ExternalID:  externalID,
		AmountCents: amountCents,
		Currency:    valueobject.EUR,
		Date:        bookedAt,
		Description: description,
	})
	require.NoError(t, repos.transactions.Save(context.Background(), tx))
	return tx
}

func seedPayout(t *testing.T, repos *testRepos, companyID uuid.UUID, externalID string, amountCents int64, arrival time.Time) *banking.Payout {
	t.Helper()
	p := banking.NewPayout(companyID, externalID, amountCents, valueobject.EUR, arrival)
	require.NoError(t, repos.payouts.Upsert(context.Background(), p))
	return p
}

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("applies all three passes", func(t *testing.T) {
		repos := setupTestRepos(t)
		service := newReconciliationService(repos)
		companyID := uuid.New()

		// Pass 1: collection charges a payment
		payment := seedPayment(t, repos, companyID, "tenant-001", 85000, day(2026, 3, 5))
		collection := seedCollection(t, repos, companyID, "PM-1", "tenant-001", 85000, day(2026, 3, 6))

		// Pass 2: payout settles into a bank transaction
		payout := seedPayout(t, repos, companyID, "PO-1", 230000, day(2026, 3, 9))
		settlement := seedTransaction(t, repos, companyID, "bt-settle", "GOCARDLESS PAYOUT", 230000, day(2026, 3, 10))

		// Pass 3: a transfer names the tenant directly
		transfer := seedPayment(t, repos, companyID, "tenant-002", 60000, day(2026, 3, 5))
		incoming := seedTransaction(t, repos, companyID, "bt-transfer", "TRANSFERENCIA Luis Pérez tenant-002", 60000, day(2026, 3, 7))

		result, err := service.Reconcile(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.SEPAToPayment.Matched)
		assert.Equal(t, 1, result.PayoutToBankTx.Matched)
		assert.Equal(t, 1, result.BankTxToPayment.Matched)

		storedPayment, err := repos.payments.FindByID(ctx, companyID, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, banking.ReconcileStateMatched, storedPayment.ReconcileState)
		require.NotNil(t, storedPayment.CounterpartID)
		assert.Equal(t, collection.ID, *storedPayment.CounterpartID)

		storedSettlement, err := repos.transactions.FindByID(ctx, companyID, settlement.ID)
		require.NoError(t, err)
		assert.Equal(t, banking.ReconcileStateMatched, storedSettlement.State)
		require.NotNil(t, storedSettlement.CounterpartID)
		assert.Equal(t, payout.ID, *storedSettlement.CounterpartID)

		storedIncoming, err := repos.transactions.FindByID(ctx, companyID, incoming.ID)
		require.NoError(t, err)
		assert.Equal(t, banking.ReconcileStateMatched, storedIncoming.State)
		require.NotNil(t, storedIncoming.CounterpartID)
		assert.Equal(t, transfer.ID, *storedIncoming.CounterpartID)
	})

	t.Run("second run over unchanged data matches nothing new", func(t *testing.T) {
		repos := setupTestRepos(t)
		service := newReconciliationService(repos)
		companyID := uuid.New()

		seedPayment(t, repos, companyID, "tenant-001", 85000, day(2026, 3, 5))
		seedCollection(t, repos, companyID, "PM-1", "tenant-001", 85000, day(2026, 3, 6))

		first, err := service.Reconcile(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 1, first.TotalMatched())

		second, err := service.Reconcile(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 0, second.TotalMatched())
	})

	t.Run("ambiguous candidates stay pending", func(t *testing.T) {
		repos := setupTestRepos(t)
		service := newReconciliationService(repos)
		companyID := uuid.New()

		// Two equally distant payments, no reference discriminator
		seedPayment(t, repos, companyID, "", 50000, day(2026, 3, 4))
		seedPayment(t, repos, companyID, "", 50000, day(2026, 3, 8))
		seedCollection(t, repos, companyID, "PM-amb", "", 50000, day(2026, 3, 6))

		result, err := service.Reconcile(ctx, companyID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.SEPAToPayment.Matched)
		assert.Equal(t, 1, result.SEPAToPayment.Ambiguous)

		payments, err := repos.payments.FindReconcilableByCompany(ctx, companyID)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})

	t.Run("failing write surfaces the error and corrects the count", func(t *testing.T) {
		repos := setupTestRepos(t)
		companyID := uuid.New()

		seedPayment(t, repos, companyID, "tenant-001", 85000, day(2026, 3, 5))
		seedCollection(t, repos, companyID, "PM-1", "tenant-001", 85000, day(2026, 3, 6))
		seedPayment(t, repos, companyID, "tenant-002", 60000, day(2026, 3, 5))
		seedCollection(t, repos, companyID, "PM-2", "tenant-002", 60000, day(2026, 3, 6))

		service := NewReconciliationService(ReconciliationServiceConfig{
			Transactions: repos.transactions,
			Payments:     &flakyPaymentRepository{PaymentRepository: repos.payments, failAfter: 1},
			Payouts:      repos.payouts,
			Collections:  repos.collections,
			Connections:  repos.connections,
			MatchConfig:  banking.DefaultMatchConfig(),
		})

		result, err := service.Reconcile(ctx, companyID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sepa pass")
		require.NotNil(t, result)

		// Only the pair whose writes completed is counted
		assert.Equal(t, 1, result.SEPAToPayment.Matched)

		payments, err := repos.payments.FindReconcilableByCompany(ctx, companyID)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
		collections, err := repos.collections.FindPendingByCompany(ctx, companyID)
		require.NoError(t, err)
		assert.Len(t, collections, 1)
	})
}

// flakyPaymentRepository passes calls through until failAfter MarkReconciled
// calls have completed, then errors
type flakyPaymentRepository struct {
	banking.PaymentRepository
	failAfter int
	calls     int
}

func (r *flakyPaymentRepository) MarkReconciled(ctx context.Context, companyID, id uuid.UUID, counterpartType banking.CounterpartType, counterpartID uuid.UUID) (bool, error) {
	r.calls++
	if r.calls > r.failAfter {
		return false, assert.AnError
	}
	return r.PaymentRepository.MarkReconciled(ctx, companyID, id, counterpartType, counterpartID)
}

func TestReconciliationService_Status(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	service := newReconciliationService(repos)
	companyID := uuid.New()

	t.Run("no connections means disconnected", func(t *testing.T) {
		status, err := service.Status(ctx, companyID)
		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.Nil(t, status.LastSync)
	})

	t.Run("reports connection and counts", func(t *testing.T) {
		conn := banking.NewBankConnection(companyID, "gocardless", "BBVA")
		syncedAt := day(2026, 3, 10)
		conn.TouchSync(syncedAt)
		require.NoError(t, repos.connections.Save(ctx, conn))

		tx := seedTransaction(t, repos, companyID, "bt-1", "TRANSFERENCIA", 1000, day(2026, 3, 1))
		_, err := repos.transactions.MarkIgnored(ctx, companyID, tx.ID)
		require.NoError(t, err)
		seedTransaction(t, repos, companyID, "bt-2", "TRANSFERENCIA", 2000, day(2026, 3, 2))

		status, err := service.Status(ctx, companyID)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		require.NotNil(t, status.LastSync)
		assert.Equal(t, syncedAt.Unix(), status.LastSync.Unix())
		assert.Equal(t, int64(1), status.PendingCount)
		assert.Equal(t, int64(1), status.IgnoredCount)
	})
}

func TestReconciliationService_IgnoreTransaction(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	service := newReconciliationService(repos)
	companyID := uuid.New()

	tx := seedTransaction(t, repos, companyID, "bt-ignore", "COMISION", -500, day(2026, 3, 1))
	userID := uuid.New()

	require.NoError(t, service.IgnoreTransaction(ctx, companyID, tx.ID, userID))

	// Second ignore is an invalid transition
	err := service.IgnoreTransaction(ctx, companyID, tx.ID, userID)
	assert.Error(t, err)

	// Unknown id is not found
	err = service.IgnoreTransaction(ctx, companyID, uuid.New(), userID)
	assert.Error(t, err)
}
