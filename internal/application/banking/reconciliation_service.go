package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BankingStatus is the per-company reconciliation summary
type BankingStatus struct {
	Connected    bool       `json:"connected"`
	LastSync     *time.Time `json:"lastSync"`
	PendingCount int64      `json:"pendingCount"`
	MatchedCount int64      `json:"matchedCount"`
	IgnoredCount int64      `json:"ignoredCount"`
}

// ReconciliationService loads a company's candidate sets, runs the matcher
// and applies its pairs through conditional state transitions, so overlapping
// runs never double-claim a record.
type ReconciliationService struct {
	transactions banking.BankTransactionRepository
	payments     banking.PaymentRepository
	payouts      banking.PayoutRepository
	collections  banking.SepaCollectionRepository
	connections  banking.BankConnectionRepository
	matcher      *banking.Matcher
	logger       *zap.Logger
}

// ReconciliationServiceConfig holds the dependencies for a ReconciliationService
type ReconciliationServiceConfig struct {
	Transactions banking.BankTransactionRepository
	Payments     banking.PaymentRepository
	Payouts      banking.PayoutRepository
	Collections  banking.SepaCollectionRepository
	Connections  banking.BankConnectionRepository
	MatchConfig  banking.MatchConfig
	Logger       *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(cfg ReconciliationServiceConfig) *ReconciliationService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		transactions: cfg.Transactions,
		payments:     cfg.Payments,
		payouts:      cfg.Payouts,
		collections:  cfg.Collections,
		connections:  cfg.Connections,
		matcher:      banking.NewMatcher(cfg.MatchConfig),
		logger:       logger,
	}
}

// Reconcile runs the three matching passes for one company and applies the
// outcome. A failure while applying one pass abandons that pass only; the
// writes of earlier passes stay.
func (s *ReconciliationService) Reconcile(ctx context.Context, companyID uuid.UUID) (*banking.MatchResult, error) {
	input, err := s.loadInput(ctx, companyID)
	if err != nil {
		return nil, err
	}

	result := s.matcher.Run(*input)

	var passErrs []error
	if err := s.applySEPAPass(ctx, companyID, &result); err != nil {
		passErrs = append(passErrs, fmt.Errorf("sepa pass: %w", err))
	}
	if err := s.applyPayoutPass(ctx, companyID, &result); err != nil {
		passErrs = append(passErrs, fmt.Errorf("payout pass: %w", err))
	}
	if err := s.applyFallbackPass(ctx, companyID, &result); err != nil {
		passErrs = append(passErrs, fmt.Errorf("fallback pass: %w", err))
	}
	for _, passErr := range passErrs {
		s.logger.Error("Reconciliation pass failed",
			zap.String("company_id", companyID.String()), zap.Error(passErr))
	}

	if err := s.connections.TouchReconciled(ctx, companyID, time.Now()); err != nil {
		s.logger.Warn("Failed to record reconciliation time",
			zap.String("company_id", companyID.String()), zap.Error(err))
	}

	s.logger.Info("Reconciliation run finished",
		zap.String("company_id", companyID.String()),
		zap.Int("matched", result.TotalMatched()),
		zap.Int("sepa_matched", result.SEPAToPayment.Matched),
		zap.Int("payout_matched", result.PayoutToBankTx.Matched),
		zap.Int("fallback_matched", result.BankTxToPayment.Matched),
	)
	return &result, errors.Join(passErrs...)
}

func (s *ReconciliationService) loadInput(ctx context.Context, companyID uuid.UUID) (*banking.MatchInput, error) {
	collections, err := s.collections.FindPendingByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	payments, err := s.payments.FindReconcilableByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	payouts, err := s.payouts.FindPendingByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load payouts: %w", err)
	}
	transactions, err := s.transactions.FindPendingByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return &banking.MatchInput{
		Collections:  collections,
		Payments:     payments,
		Payouts:      payouts,
		Transactions: transactions,
	}, nil
}

// applySEPAPass writes collection↔payment pairs. The payment is claimed
// first; when a concurrent run got there already the pair is dropped. The
// reported count covers only pairs whose writes completed, so a mid-pass
// failure never inflates it.
func (s *ReconciliationService) applySEPAPass(ctx context.Context, companyID uuid.UUID, result *banking.MatchResult) error {
	applied := 0
	defer func() { result.SEPAToPayment.Matched = applied }()

	for _, pair := range result.CollectionMatches {
		claimed, err := s.payments.MarkReconciled(ctx, companyID, pair.PaymentID, banking.CounterpartCollection, pair.CollectionID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		if _, err := s.collections.MarkMatched(ctx, companyID, pair.CollectionID, pair.PaymentID); err != nil {
			return err
		}
		applied++
	}
	return nil
}

func (s *ReconciliationService) applyPayoutPass(ctx context.Context, companyID uuid.UUID, result *banking.MatchResult) error {
	applied := 0
	defer func() { result.PayoutToBankTx.Matched = applied }()

	for _, pair := range result.PayoutMatches {
		claimed, err := s.transactions.MarkMatched(ctx, companyID, pair.TransactionID, banking.CounterpartPayout, pair.PayoutID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		if _, err := s.payouts.MarkMatched(ctx, companyID, pair.PayoutID, pair.TransactionID); err != nil {
			return err
		}
		applied++
	}
	return nil
}

func (s *ReconciliationService) applyFallbackPass(ctx context.Context, companyID uuid.UUID, result *banking.MatchResult) error {
	applied := 0
	defer func() { result.BankTxToPayment.Matched = applied }()

	for _, pair := range result.TransactionMatches {
		claimed, err := s.payments.MarkReconciled(ctx, companyID, pair.PaymentID, banking.CounterpartBankTransaction, pair.TransactionID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		if _, err := s.transactions.MarkMatched(ctx, companyID, pair.TransactionID, banking.CounterpartPayment, pair.PaymentID); err != nil {
			return err
		}
		applied++
	}
	return nil
}

// Status builds the per-company banking summary
func (s *ReconciliationService) Status(ctx context.Context, companyID uuid.UUID) (*BankingStatus, error) {
	conns, err := s.connections.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	status := &BankingStatus{}
	for i := range conns {
		conn := &conns[i]
		if conn.IsConnected() {
			status.Connected = true
		}
		if conn.LastSyncAt != nil && (status.LastSync == nil || conn.LastSyncAt.After(*status.LastSync)) {
			status.LastSync = conn.LastSyncAt
		}
	}

	counts, err := s.transactions.CountByState(ctx, companyID)
	if err != nil {
		return nil, err
	}
	status.PendingCount = counts.Pending
	status.MatchedCount = counts.Matched
	status.IgnoredCount = counts.Ignored
	return status, nil
}

// IgnoreTransaction manually excludes a pending bank transaction from
// reconciliation, recording who asked for it. Ignoring an already matched or
// ignored transaction is an invalid state transition, not a silent no-op.
func (s *ReconciliationService) IgnoreTransaction(ctx context.Context, companyID, transactionID, userID uuid.UUID) error {
	ignored, err := s.transactions.MarkIgnored(ctx, companyID, transactionID)
	if err != nil {
		return err
	}
	if ignored {
		s.logger.Info("Bank transaction manually ignored",
			zap.String("company_id", companyID.String()),
			zap.String("transaction_id", transactionID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil
	}

	if _, err := s.transactions.FindByID(ctx, companyID, transactionID); err != nil {
		return err
	}
	return shared.NewDomainError("INVALID_STATE",
		"Bank transaction is not pending review and cannot be ignored")
}
