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

// GormWebhookEventRepository implements WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Save persists a webhook event. The (provider, event id) unique index makes
// a concurrent duplicate insert fail instead of creating a second row.
func (r *GormWebhookEventRepository) Save(ctx context.Context, e *banking.WebhookEvent) error {
	model := models.WebhookEventModelFromDomain(e)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByEventID finds an event by its provider-assigned id
func (r *GormWebhookEventRepository) FindByEventID(ctx context.Context, provider, eventID string) (*banking.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// MarkProcessed records successful handling of an event
func (r *GormWebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.WebhookEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       banking.WebhookEventStatusProcessed,
			"last_error":   "",
			"processed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkFailed records a handler failure so the event stays eligible for retry
func (r *GormWebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, handlerErr error) error {
	lastError := ""
	if handlerErr != nil {
		lastError = handlerErr.Error()
	}
	result := r.db.WithContext(ctx).Model(&models.WebhookEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     banking.WebhookEventStatusFailed,
			"last_error": lastError,
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

// FindFailed returns the oldest failed events for a provider, up to limit
func (r *GormWebhookEventRepository) FindFailed(ctx context.Context, provider string, limit int) ([]banking.WebhookEvent, error) {
	var eventModels []models.WebhookEventModel
	query := r.db.WithContext(ctx).
		Where("provider = ? AND status = ?", provider, banking.WebhookEventStatusFailed).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]banking.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}
