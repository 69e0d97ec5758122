package banking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/infrastructure/provider"
	"go.uber.org/zap"
)

// ProviderAPI is the slice of the payment provider's REST API the banking
// services consume.
type ProviderAPI interface {
	ListPayments(ctx context.Context, since time.Time) ([]provider.PaymentRecord, error)
	ListPayouts(ctx context.Context, since time.Time) ([]provider.PayoutRecord, error)
	GetPayment(ctx context.Context, id string) (provider.PaymentRecord, error)
	GetPayout(ctx context.Context, id string) (provider.PayoutRecord, error)
}

// WebhookResult summarizes one webhook delivery. The endpoint answers 200
// even on partial failure; failed events stay persisted for retry.
type WebhookResult struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Errors    int  `json:"errors"`
	Total     int  `json:"total"`
}

// WebhookService ingests signed provider webhook deliveries: it verifies the
// body signature, de-duplicates events, persists each raw event before any
// handler runs, and dispatches to a handler per resource type.
type WebhookService struct {
	verifier    *provider.SignatureVerifier
	api         ProviderAPI
	events      banking.WebhookEventRepository
	collections banking.SepaCollectionRepository
	payouts     banking.PayoutRepository
	connections banking.BankConnectionRepository
	idempotency shared.IdempotencyStore
	eventTTL    time.Duration
	logger      *zap.Logger
}

// WebhookServiceConfig holds the dependencies for a WebhookService
type WebhookServiceConfig struct {
	Verifier    *provider.SignatureVerifier
	API         ProviderAPI
	Events      banking.WebhookEventRepository
	Collections banking.SepaCollectionRepository
	Payouts     banking.PayoutRepository
	Connections banking.BankConnectionRepository
	Idempotency shared.IdempotencyStore
	EventTTL    time.Duration
	Logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	eventTTL := cfg.EventTTL
	if eventTTL <= 0 {
		eventTTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &WebhookService{
		verifier:    cfg.Verifier,
		api:         cfg.API,
		events:      cfg.Events,
		collections: cfg.Collections,
		payouts:     cfg.Payouts,
		connections: cfg.Connections,
		idempotency: cfg.Idempotency,
		eventTTL:    eventTTL,
		logger:      logger,
	}
}

// Process handles one webhook delivery. A bad signature rejects the whole
// body before anything is persisted; after that, each event is isolated so
// one failing handler cannot take down the rest of the batch.
func (s *WebhookService) Process(ctx context.Context, providerName string, body []byte, signature string) (*WebhookResult, error) {
	if err := s.verifier.Verify(body, signature); err != nil {
		s.logger.Warn("Webhook signature rejected", zap.String("provider", providerName))
		return nil, err
	}

	envelope, err := provider.DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{Total: len(envelope.Events)}
	for _, event := range envelope.Events {
		if err := s.processEvent(ctx, providerName, event); err != nil {
			result.Errors++
			s.logger.Warn("Webhook event failed",
				zap.String("provider", providerName),
				zap.String("event_id", event.ID),
				zap.String("resource_type", event.ResourceType),
				zap.String("action", event.Action),
				zap.Error(err),
			)
			continue
		}
		result.Processed++
	}
	result.Success = result.Errors == 0

	s.logger.Info("Webhook delivery processed",
		zap.String("provider", providerName),
		zap.Int("total", result.Total),
		zap.Int("processed", result.Processed),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// processEvent runs the dedupe checks, persists the raw event, dispatches it
// and records the outcome on the stored event.
func (s *WebhookService) processEvent(ctx context.Context, providerName string, event provider.Event) error {
	// Fast path, shared across instances when Redis backs the store
	seen, err := s.idempotency.IsProcessed(ctx, event.ID)
	if err != nil {
		s.logger.Warn("Idempotency check failed, falling through to durable dedupe", zap.Error(err))
	} else if seen {
		return nil
	}

	// Durable path: a previously processed event is a no-op replay
	record, err := s.events.FindByEventID(ctx, providerName, event.ID)
	switch {
	case err == nil:
		if record.IsProcessed() {
			s.rememberEvent(ctx, event.ID)
			return nil
		}
	case errors.Is(err, shared.ErrNotFound):
		payload, marshalErr := json.Marshal(event)
		if marshalErr != nil {
			return marshalErr
		}
		record = banking.NewWebhookEvent(providerName, event.ID, event.ResourceType, event.Action, payload)
		if saveErr := s.events.Save(ctx, record); saveErr != nil {
			return saveErr
		}
	default:
		return err
	}

	if handlerErr := s.dispatch(ctx, providerName, event); handlerErr != nil {
		if markErr := s.events.MarkFailed(ctx, record.ID, handlerErr); markErr != nil {
			s.logger.Error("Failed to record webhook event failure", zap.Error(markErr))
		}
		return handlerErr
	}

	if err := s.events.MarkProcessed(ctx, record.ID); err != nil {
		return err
	}
	s.rememberEvent(ctx, event.ID)
	return nil
}

// Retry re-dispatches persisted events whose handler previously failed
func (s *WebhookService) Retry(ctx context.Context, providerName string, limit int) (*WebhookResult, error) {
	failed, err := s.events.FindFailed(ctx, providerName, limit)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{Total: len(failed)}
	for i := range failed {
		record := &failed[i]

		var event provider.Event
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			result.Errors++
			s.logger.Error("Stored webhook payload no longer decodes",
				zap.String("event_id", record.EventID), zap.Error(err))
			continue
		}

		if handlerErr := s.dispatch(ctx, providerName, event); handlerErr != nil {
			result.Errors++
			if markErr := s.events.MarkFailed(ctx, record.ID, handlerErr); markErr != nil {
				s.logger.Error("Failed to record webhook event failure", zap.Error(markErr))
			}
			continue
		}

		if err := s.events.MarkProcessed(ctx, record.ID); err != nil {
			result.Errors++
			continue
		}
		s.rememberEvent(ctx, event.ID)
		result.Processed++
	}
	result.Success = result.Errors == 0
	return result, nil
}

func (s *WebhookService) rememberEvent(ctx context.Context, eventID string) {
	if _, err := s.idempotency.MarkProcessed(ctx, eventID, s.eventTTL); err != nil {
		s.logger.Warn("Failed to remember processed event", zap.String("event_id", eventID), zap.Error(err))
	}
}

// dispatch routes an event to its resource-type handler. Unknown resource
// types fail loudly instead of being silently dropped.
func (s *WebhookService) dispatch(ctx context.Context, providerName string, event provider.Event) error {
	switch event.ResourceType {
	case provider.ResourcePayments:
		return s.handlePaymentEvent(ctx, event)
	case provider.ResourcePayouts:
		return s.handlePayoutEvent(ctx, event)
	case provider.ResourceRefunds:
		return s.handleRefundEvent(ctx, event)
	case provider.ResourceMandates:
		return s.handleMandateEvent(ctx, providerName, event)
	case provider.ResourceSubscriptions:
		// Subscription lifecycle is owned by the leasing side; the event is
		// recorded and acknowledged here.
		s.logger.Info("Subscription event acknowledged",
			zap.String("event_id", event.ID), zap.String("action", event.Action))
		return nil
	default:
		return shared.NewValidationError("resource_type",
			fmt.Sprintf("unsupported resource type %q", event.ResourceType))
	}
}

// handlePaymentEvent refreshes the SEPA collection the event refers to from
// the provider API and upserts it.
func (s *WebhookService) handlePaymentEvent(ctx context.Context, event provider.Event) error {
	companyID, err := eventCompany(event)
	if err != nil {
		return err
	}
	if event.Links.Payment == "" {
		return shared.NewValidationError("links.payment", "payment event carries no payment id")
	}

	record, err := s.api.GetPayment(ctx, event.Links.Payment)
	if err != nil {
		return err
	}

	canonical, err := banking.Normalize(record.SourceRecord)
	if err != nil {
		return err
	}

	collection := banking.NewSepaCollection(companyID, canonical, record.MandateID, record.Status)
	return s.collections.Upsert(ctx, collection)
}

// handlePayoutEvent refreshes the payout batch the event refers to
func (s *WebhookService) handlePayoutEvent(ctx context.Context, event provider.Event) error {
	companyID, err := eventCompany(event)
	if err != nil {
		return err
	}
	if event.Links.Payout == "" {
		return shared.NewValidationError("links.payout", "payout event carries no payout id")
	}

	record, err := s.api.GetPayout(ctx, event.Links.Payout)
	if err != nil {
		return err
	}

	canonical, err := banking.Normalize(record.SourceRecord)
	if err != nil {
		return err
	}

	payout := banking.NewPayout(companyID, canonical.ExternalID, canonical.AmountCents, canonical.Currency, canonical.Date)
	return s.payouts.Upsert(ctx, payout)
}

// handleRefundEvent moves the refunded collection out of the matcher's pool
func (s *WebhookService) handleRefundEvent(ctx context.Context, event provider.Event) error {
	companyID, err := eventCompany(event)
	if err != nil {
		return err
	}
	if event.Links.Payment == "" {
		return shared.NewValidationError("links.payment", "refund event carries no payment id")
	}
	return s.collections.UpdateStatus(ctx, companyID, event.Links.Payment, banking.CollectionStatusRefunded)
}

// handleMandateEvent expires the company's provider connections when the
// direct-debit mandate lapses, so the UI prompts re-authorization.
func (s *WebhookService) handleMandateEvent(ctx context.Context, providerName string, event provider.Event) error {
	switch event.Action {
	case "cancelled", "expired", "failed":
	default:
		s.logger.Info("Mandate event acknowledged",
			zap.String("event_id", event.ID), zap.String("action", event.Action))
		return nil
	}

	companyID, err := eventCompany(event)
	if err != nil {
		return err
	}

	conns, err := s.connections.FindByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	for i := range conns {
		conn := &conns[i]
		if conn.Provider != providerName || !conn.IsConnected() {
			continue
		}
		if err := s.connections.MarkStatus(ctx, companyID, conn.ID, banking.ConnectionStatusExpired); err != nil {
			return err
		}
	}
	return nil
}

// eventCompany resolves the owning company from the metadata the platform
// attaches when creating provider resources.
func eventCompany(event provider.Event) (uuid.UUID, error) {
	raw := event.Metadata.CompanyID()
	if raw == "" {
		return uuid.Nil, shared.NewValidationError("metadata.company_id", "event carries no company id")
	}
	companyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewValidationError("metadata.company_id", "company id is not a valid uuid")
	}
	return companyID, nil
}
