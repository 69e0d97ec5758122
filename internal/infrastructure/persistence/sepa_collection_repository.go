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

// GormSepaCollectionRepository implements SepaCollectionRepository using GORM
type GormSepaCollectionRepository struct {
	db *gorm.DB
}

// NewGormSepaCollectionRepository creates a new GormSepaCollectionRepository
func NewGormSepaCollectionRepository(db *gorm.DB) *GormSepaCollectionRepository {
	return &GormSepaCollectionRepository{db: db}
}

// Upsert inserts the collection or refreshes its provider-sourced columns by
// (company, external id). A replayed webhook therefore cannot duplicate rows.
func (r *GormSepaCollectionRepository) Upsert(ctx context.Context, c *banking.SepaCollection) error {
	model := models.SepaCollectionModelFromDomain(c)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mandate_id", "amount_cents", "currency", "charge_date",
			"reference", "description", "status", "updated_at",
		}),
	}).Create(model).Error
}

// FindByExternalID finds a collection by its provider-assigned id within a company
func (r *GormSepaCollectionRepository) FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (*banking.SepaCollection, error) {
	var model models.SepaCollectionModel
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

// FindPendingByCompany returns pending collections whose provider status
// still allows matching.
func (r *GormSepaCollectionRepository) FindPendingByCompany(ctx context.Context, companyID uuid.UUID) ([]banking.SepaCollection, error) {
	var collectionModels []models.SepaCollectionModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND state = ? AND status IN ?",
			companyID, banking.ReconcileStatePending,
			[]banking.CollectionStatus{banking.CollectionStatusSubmitted, banking.CollectionStatusConfirmed}).
		Order("charge_date ASC").
		Find(&collectionModels).Error; err != nil {
		return nil, err
	}

	collections := make([]banking.SepaCollection, len(collectionModels))
	for i, model := range collectionModels {
		collections[i] = *model.ToDomain()
	}
	return collections, nil
}

// MarkMatched records the internal payment on a still-pending collection
func (r *GormSepaCollectionRepository) MarkMatched(ctx context.Context, companyID, id, paymentID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SepaCollectionModel{}).
		Where("company_id = ? AND id = ? AND state = ?", companyID, id, banking.ReconcileStatePending).
		Updates(map[string]any{
			"state":              banking.ReconcileStateMatched,
			"matched_payment_id": paymentID,
			"matched_at":         now,
			"updated_at":         now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus applies a provider status transition, addressed by external id
// since later webhook events only carry the provider's identifier.
func (r *GormSepaCollectionRepository) UpdateStatus(ctx context.Context, companyID uuid.UUID, externalID string, status banking.CollectionStatus) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Model(&models.SepaCollectionModel{}).
		Where("company_id = ? AND external_id = ?", companyID, externalID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
