package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBankTransactionRepository implements BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// Save persists a bank transaction
func (r *GormBankTransactionRepository) Save(ctx context.Context, tx *banking.BankTransaction) error {
	model := models.BankTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// Upsert inserts the transaction or refreshes its provider-sourced columns
// when a row with the same (company, external id) already exists. The
// reconcile state of an existing row is never touched, so re-syncing a
// matched transaction cannot move it back to pending review.
func (r *GormBankTransactionRepository) Upsert(ctx context.Context, tx *banking.BankTransaction) error {
	model := models.BankTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_cents", "currency", "booked_at", "description",
			"counterparty_ref", "updated_at",
		}),
	}).Create(model).Error
}

// FindByID finds a bank transaction by ID within a company
func (r *GormBankTransactionRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*banking.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByCompany returns all pending-review transactions for a company
func (r *GormBankTransactionRepository) FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]banking.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND state = ?", companyID, banking.ReconcileStatePending).
		Order("booked_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}

	txs := make([]banking.BankTransaction, len(txModels))
	for i, model := range txModels {
		txs[i] = *model.ToDomain()
	}
	return txs, nil
}

// MarkMatched transitions a pending transaction to matched. The WHERE clause
// re-checks the state so two overlapping runs cannot both claim the row;
// returns false when the row was no longer pending.
func (r *GormBankTransactionRepository) MarkMatched(ctx context.Context, companyID, id uuid.UUID, counterpartType banking.CounterpartType, counterpartID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Where("company_id = ? AND id = ? AND state = ?", companyID, id, banking.ReconcileStatePending).
		Updates(map[string]any{
			"state":            banking.ReconcileStateMatched,
			"counterpart_type": counterpartType,
			"counterpart_id":   counterpartID,
			"matched_at":       now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkIgnored transitions a pending transaction to ignored
func (r *GormBankTransactionRepository) MarkIgnored(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Where("company_id = ? AND id = ? AND state = ?", companyID, id, banking.ReconcileStatePending).
		Updates(map[string]any{
			"state":      banking.ReconcileStateIgnored,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByState aggregates transaction counts per reconcile state for a company
func (r *GormBankTransactionRepository) CountByState(ctx context.Context, companyID uuid.UUID) (banking.StateCounts, error) {
	type row struct {
		State banking.ReconcileState
		Count int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).
		Select("state, COUNT(*) as count").
		Where("company_id = ?", companyID).
		Group("state").
		Scan(&rows).Error; err != nil {
		return banking.StateCounts{}, err
	}

	var counts banking.StateCounts
	for _, r := range rows {
		switch r.State {
		case banking.ReconcileStatePending:
			counts.Pending = r.Count
		case banking.ReconcileStateMatched:
			counts.Matched = r.Count
		case banking.ReconcileStateIgnored:
			counts.Ignored = r.Count
		}
	}
	return counts, nil
}
