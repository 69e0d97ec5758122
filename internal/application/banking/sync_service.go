package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SyncResult summarizes one full provider sync
type SyncResult struct {
	CollectionsSynced int                  `json:"collectionsSynced"`
	PayoutsSynced     int                  `json:"payoutsSynced"`
	Skipped           int                  `json:"skipped"`
	Errors            int                  `json:"errors"`
	Reconciliation    *banking.MatchResult `json:"reconciliation,omitempty"`
}

// SyncService pulls the company's payments and payouts from the provider API,
// normalizes and upserts them, then runs a reconciliation pass. Webhooks keep
// the data fresh between syncs; the full sync is the recovery path after
// missed deliveries.
type SyncService struct {
	api            ProviderAPI
	collections    banking.SepaCollectionRepository
	payouts        banking.PayoutRepository
	connections    banking.BankConnectionRepository
	reconciliation *ReconciliationService
	logger         *zap.Logger
}

// SyncServiceConfig holds the dependencies for a SyncService
type SyncServiceConfig struct {
	API            ProviderAPI
	Collections    banking.SepaCollectionRepository
	Payouts        banking.PayoutRepository
	Connections    banking.BankConnectionRepository
	Reconciliation *ReconciliationService
	Logger         *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		api:            cfg.API,
		collections:    cfg.Collections,
		payouts:        cfg.Payouts,
		connections:    cfg.Connections,
		reconciliation: cfg.Reconciliation,
		logger:         logger,
	}
}

// FullSync pulls everything created since the connection's last sync. A
// provider failure before anything is written surfaces as an error; a record
// that fails normalization is counted and skipped so one bad payload cannot
// block the rest of the sync.
func (s *SyncService) FullSync(ctx context.Context, companyID uuid.UUID) (*SyncResult, error) {
	conns, err := s.connections.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var active []*banking.BankConnection
	var since time.Time
	for i := range conns {
		conn := &conns[i]
		if !conn.IsConnected() {
			continue
		}
		active = append(active, conn)
		if conn.LastSyncAt != nil && (since.IsZero() || conn.LastSyncAt.Before(since)) {
			since = *conn.LastSyncAt
		}
	}
	if len(active) == 0 {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Company has no active bank connection to sync")
	}

	result := &SyncResult{}

	paymentRecords, err := s.api.ListPayments(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, record := range paymentRecords {
		if !recordBelongsTo(companyID, record.CompanyID) {
			result.Skipped++
			continue
		}
		canonical, err := banking.Normalize(record.SourceRecord)
		if err != nil {
			result.Errors++
			s.logger.Warn("Skipping payment record that failed normalization",
				zap.String("external_id", record.ExternalID), zap.Error(err))
			continue
		}
		collection := banking.NewSepaCollection(companyID, canonical, record.MandateID, record.Status)
		if err := s.collections.Upsert(ctx, collection); err != nil {
			return nil, err
		}
		result.CollectionsSynced++
	}

	payoutRecords, err := s.api.ListPayouts(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, record := range payoutRecords {
		if !recordBelongsTo(companyID, record.CompanyID) {
			result.Skipped++
			continue
		}
		canonical, err := banking.Normalize(record.SourceRecord)
		if err != nil {
			result.Errors++
			s.logger.Warn("Skipping payout record that failed normalization",
				zap.String("external_id", record.ExternalID), zap.Error(err))
			continue
		}
		payout := banking.NewPayout(companyID, canonical.ExternalID, canonical.AmountCents, canonical.Currency, canonical.Date)
		if err := s.payouts.Upsert(ctx, payout); err != nil {
			return nil, err
		}
		result.PayoutsSynced++
	}

	now := time.Now()
	for _, conn := range active {
		if err := s.connections.TouchSync(ctx, companyID, conn.ID, now); err != nil {
			s.logger.Warn("Failed to record sync time",
				zap.String("connection_id", conn.ID.String()), zap.Error(err))
		}
	}

	matchResult, err := s.reconciliation.Reconcile(ctx, companyID)
	if err != nil {
		if matchResult == nil {
			return nil, err
		}
		// Synced rows are in place; the partial match result and the
		// error both go back to the caller.
		result.Reconciliation = matchResult
		return result, fmt.Errorf("reconcile: %w", err)
	}
	result.Reconciliation = matchResult

	s.logger.Info("Full sync finished",
		zap.String("company_id", companyID.String()),
		zap.Int("collections", result.CollectionsSynced),
		zap.Int("payouts", result.PayoutsSynced),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// recordBelongsTo checks the company metadata stamped on a provider record.
// Records without company metadata are skipped rather than guessed at.
func recordBelongsTo(companyID uuid.UUID, recordCompanyID string) bool {
	return recordCompanyID == companyID.String()
}
