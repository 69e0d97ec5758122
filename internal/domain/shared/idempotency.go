package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed provider event IDs so that webhook
// replays can be suppressed cheaply before touching the database.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs. Providers may redeliver
	// an event for days after the original delivery, so keep this generous.
	TTL time.Duration

	// Enabled determines whether the fast-path check is enabled. The durable
	// webhook_events record is always consulted regardless.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
