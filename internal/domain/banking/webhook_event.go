package banking

import (
	"encoding/json"
	"time"

	"github.com/inmova/backend/internal/domain/shared"
)

// WebhookEventStatus represents the processing state of a persisted webhook event
type WebhookEventStatus string

const (
	WebhookEventStatusReceived  WebhookEventStatus = "RECEIVED"  // Persisted, handler not yet run
	WebhookEventStatusProcessed WebhookEventStatus = "PROCESSED" // Handler completed
	WebhookEventStatusFailed    WebhookEventStatus = "FAILED"    // Handler errored, eligible for retry
)

// WebhookEvent is the durable record of a provider webhook event. The raw
// payload is persisted before the type-specific handler runs so a handler
// failure never loses the event.
type WebhookEvent struct {
	shared.BaseEntity
	Provider     string
	EventID      string // provider-assigned id, unique per provider
	ResourceType string
	Action       string
	Payload      json.RawMessage
	Status       WebhookEventStatus
	LastError    string
	ProcessedAt  *time.Time
}

// NewWebhookEvent records a received event prior to processing
func NewWebhookEvent(provider, eventID, resourceType, action string, payload json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		BaseEntity:   shared.NewBaseEntity(),
		Provider:     provider,
		EventID:      eventID,
		ResourceType: resourceType,
		Action:       action,
		Payload:      payload,
		Status:       WebhookEventStatusReceived,
	}
}

// IsProcessed returns true if the handler already completed for this event
func (e *WebhookEvent) IsProcessed() bool {
	return e.Status == WebhookEventStatusProcessed
}

// MarkProcessed records successful handling
func (e *WebhookEvent) MarkProcessed() {
	now := time.Now()
	e.Status = WebhookEventStatusProcessed
	e.LastError = ""
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records the handler error without losing the event
func (e *WebhookEvent) MarkFailed(err error) {
	e.Status = WebhookEventStatusFailed
	if err != nil {
		e.LastError = err.Error()
	}
	e.UpdatedAt = time.Now()
}
