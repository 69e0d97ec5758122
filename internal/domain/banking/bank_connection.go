package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/shared"
)

// ConnectionStatus represents the state of a company's link to a banking provider
type ConnectionStatus string

const (
	ConnectionStatusActive       ConnectionStatus = "ACTIVE"
	ConnectionStatusExpired      ConnectionStatus = "EXPIRED" // Mandate or consent lapsed, needs re-authorization
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// IsValid checks if the status is a valid ConnectionStatus
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusActive, ConnectionStatusExpired, ConnectionStatusDisconnected:
		return true
	}
	return false
}

// BankConnection is a per-company link to a banking provider. It owns the
// bank transactions ingested through it and tracks sync bookkeeping.
type BankConnection struct {
	shared.CompanyEntity
	Provider         string
	Institution      string
	Status           ConnectionStatus
	LastSyncAt       *time.Time
	LastReconciledAt *time.Time
}

// NewBankConnection creates an active connection
func NewBankConnection(companyID uuid.UUID, provider, institution string) *BankConnection {
	return &BankConnection{
		CompanyEntity: shared.NewCompanyEntity(companyID),
		Provider:      provider,
		Institution:   institution,
		Status:        ConnectionStatusActive,
	}
}

// IsConnected returns true if the connection can currently serve syncs
func (c *BankConnection) IsConnected() bool {
	return c.Status == ConnectionStatusActive
}

// TouchSync records a completed provider sync
func (c *BankConnection) TouchSync(at time.Time) {
	c.LastSyncAt = &at
	c.UpdatedAt = time.Now()
}

// TouchReconciled records a completed reconciliation run
func (c *BankConnection) TouchReconciled(at time.Time) {
	c.LastReconciledAt = &at
	c.UpdatedAt = time.Now()
}

// Expire marks the connection as needing re-authorization, e.g. after a
// mandate-cancelled webhook event.
func (c *BankConnection) Expire() {
	c.Status = ConnectionStatusExpired
	c.UpdatedAt = time.Now()
}
