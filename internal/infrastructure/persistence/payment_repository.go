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

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save persists a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *banking.Payment) error {
	model := models.PaymentModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a payment by ID within a company
func (r *GormPaymentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*banking.Payment, error) {
	var model models.PaymentModel
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

// FindReconcilableByCompany returns payments still eligible for matching.
// Failed payments never enter the candidate pool.
func (r *GormPaymentRepository) FindReconcilableByCompany(ctx context.Context, companyID uuid.UUID) ([]banking.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND reconcile_state = ? AND status <> ?",
			companyID, banking.ReconcileStatePending, banking.PaymentStatusFailed).
		Order("due_date ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]banking.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// MarkReconciled sets the counterpart on a still-pending payment; returns
// false when another run already claimed it.
func (r *GormPaymentRepository) MarkReconciled(ctx context.Context, companyID, id uuid.UUID, counterpartType banking.CounterpartType, counterpartID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("company_id = ? AND id = ? AND reconcile_state = ?", companyID, id, banking.ReconcileStatePending).
		Updates(map[string]any{
			"reconcile_state":  banking.ReconcileStateMatched,
			"counterpart_type": counterpartType,
			"counterpart_id":   counterpartID,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkStatus applies a business status transition, e.g. paid or failed
func (r *GormPaymentRepository) MarkStatus(ctx context.Context, companyID, id uuid.UUID, status banking.PaymentStatus, paidAt *time.Time) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
