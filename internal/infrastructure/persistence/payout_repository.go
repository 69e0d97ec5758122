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

// GormPayoutRepository implements PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// Upsert inserts the payout or refreshes its provider-sourced columns by
// (company, external id). Match bookkeeping on an existing row is preserved.
func (r *GormPayoutRepository) Upsert(ctx context.Context, p *banking.Payout) error {
	model := models.PayoutModelFromDomain(p)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_cents", "currency", "arrival_date", "payment_ids", "updated_at",
		}),
	}).Create(model).Error
}

// FindByExternalID finds a payout by its provider-assigned id within a company
func (r *GormPayoutRepository) FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (*banking.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND external_id = ?", companyID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByCompany returns all pending-review payouts for a company
func (r *GormPayoutRepository) FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]banking.Payout, error) {
	var payoutModels []models.PayoutModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND state = ?", companyID, banking.ReconcileStatePending).
		Order("arrival_date ASC").
		Find(&payoutModels).Error; err != nil {
		return nil, err
	}

	payouts := make([]banking.Payout, len(payoutModels))
	for i, model := range payoutModels {
		payouts[i] = *model.ToDomain()
	}
	return payouts, nil
}

// MarkMatched records the settling bank transaction on a still-pending payout
func (r *GormPayoutRepository) MarkMatched(ctx context.Context, companyID, id, transactionID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.PayoutModel{}).
		Where("company_id = ? AND id = ? AND state = ?", companyID, id, banking.ReconcileStatePending).
		Updates(map[string]any{
			"state":                  banking.ReconcileStateMatched,
			"matched_transaction_id": transactionID,
			"matched_at":             now,
			"updated_at":             now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
