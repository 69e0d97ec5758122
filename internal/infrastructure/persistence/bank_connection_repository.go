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
)

// GormBankConnectionRepository implements BankConnectionRepository using GORM
type GormBankConnectionRepository struct {
	db *gorm.DB
}

// NewGormBankConnectionRepository creates a new GormBankConnectionRepository
func NewGormBankConnectionRepository(db *gorm.DB) *GormBankConnectionRepository {
	return &GormBankConnectionRepository{db: db}
}

// Save persists a bank connection
func (r *GormBankConnectionRepository) Save(ctx context.Context, c *banking.BankConnection) error {
	model := models.BankConnectionModelFromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a connection by ID within a company
func (r *GormBankConnectionRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*banking.BankConnection, error) {
	var model models.BankConnectionModel
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

// FindByCompany returns all connections for a company
func (r *GormBankConnectionRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]banking.BankConnection, error) {
	var connectionModels []models.BankConnectionModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&connectionModels).Error; err != nil {
		return nil, err
	}

	connections := make([]banking.BankConnection, len(connectionModels))
	for i, model := range connectionModels {
		connections[i] = *model.ToDomain()
	}
	return connections, nil
}

// TouchSync records a completed provider sync on a connection
func (r *GormBankConnectionRepository) TouchSync(ctx context.Context, companyID, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.BankConnectionModel{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Updates(map[string]any{
			"last_sync_at": at,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchReconciled records a completed reconciliation run on all of the
// company's connections.
func (r *GormBankConnectionRepository) TouchReconciled(ctx context.Context, companyID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.BankConnectionModel{}).
		Where("company_id = ?", companyID).
		Updates(map[string]any{
			"last_reconciled_at": at,
			"updated_at":         time.Now(),
		}).Error
}

// MarkStatus applies a connection status transition
func (r *GormBankConnectionRepository) MarkStatus(ctx context.Context, companyID, id uuid.UUID, status banking.ConnectionStatus) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Model(&models.BankConnectionModel{}).
		Where("company_id = ? AND id = ?", companyID, id).
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
