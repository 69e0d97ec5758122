package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared/valueobject"
)

// BankTransactionModel is the persistence model for bank account movements.
type BankTransactionModel struct {
	CompanyModel
	ConnectionID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	ExternalID      string                   `gorm:"type:varchar(100);not null;uniqueIndex:idx_bank_tx_company_external,priority:2"`
	AmountCents     int64                    `gorm:"not null"`
	Currency        valueobject.Currency     `gorm:"type:varchar(3);not null;default:'EUR'"`
	BookedAt        time.Time                `gorm:"not null;index"`
	Description     string                   `gorm:"type:text;not null"`
	CounterpartyRef string                   `gorm:"type:varchar(200)"`
	State           banking.ReconcileState   `gorm:"type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	CounterpartType *banking.CounterpartType `gorm:"type:varchar(30)"`
	CounterpartID   *uuid.UUID               `gorm:"type:uuid"`
	MatchedAt       *time.Time
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// ToDomain converts the persistence model to a domain BankTransaction entity.
func (m *BankTransactionModel) ToDomain() *banking.BankTransaction {
	return &banking.BankTransaction{
		CompanyEntity:   m.ToDomainCompanyEntity(),
		ConnectionID:    m.ConnectionID,
		ExternalID:      m.ExternalID,
		AmountCents:     m.AmountCents,
		Currency:        m.Currency,
		BookedAt:        m.BookedAt,
		Description:     m.Description,
		CounterpartyRef: m.CounterpartyRef,
		State:           m.State,
		CounterpartType: m.CounterpartType,
		CounterpartID:   m.CounterpartID,
		MatchedAt:       m.MatchedAt,
	}
}

// FromDomain populates the persistence model from a domain BankTransaction entity.
func (m *BankTransactionModel) FromDomain(t *banking.BankTransaction) {
	m.FromDomainCompanyEntity(t.CompanyEntity)
	m.ConnectionID = t.ConnectionID
	m.ExternalID = t.ExternalID
	m.AmountCents = t.AmountCents
	m.Currency = t.Currency
	m.BookedAt = t.BookedAt
	m.Description = t.Description
	m.CounterpartyRef = t.CounterpartyRef
	m.State = t.State
	m.CounterpartType = t.CounterpartType
	m.CounterpartID = t.CounterpartID
	m.MatchedAt = t.MatchedAt
}

// BankTransactionModelFromDomain creates a new persistence model from a domain BankTransaction.
func BankTransactionModelFromDomain(t *banking.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{}
	m.FromDomain(t)
	return m
}

// PaymentModel is the persistence model for internal payments.
type PaymentModel struct {
	CompanyModel
	ContractID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	TenantName      string                   `gorm:"type:varchar(200);not null"`
	Reference       string                   `gorm:"type:varchar(100);index"`
	AmountCents     int64                    `gorm:"not null"`
	Currency        valueobject.Currency     `gorm:"type:varchar(3);not null;default:'EUR'"`
	DueDate         time.Time                `gorm:"not null;index"`
	PaidAt          *time.Time
	Status          banking.PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ReconcileState  banking.ReconcileState   `gorm:"type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	CounterpartType *banking.CounterpartType `gorm:"type:varchar(30)"`
	CounterpartID   *uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *banking.Payment {
	return &banking.Payment{
		CompanyEntity:   m.ToDomainCompanyEntity(),
		ContractID:      m.ContractID,
		TenantName:      m.TenantName,
		Reference:       m.Reference,
		AmountCents:     m.AmountCents,
		Currency:        m.Currency,
		DueDate:         m.DueDate,
		PaidAt:          m.PaidAt,
		Status:          m.Status,
		ReconcileState:  m.ReconcileState,
		CounterpartType: m.CounterpartType,
		CounterpartID:   m.CounterpartID,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *banking.Payment) {
	m.FromDomainCompanyEntity(p.CompanyEntity)
	m.ContractID = p.ContractID
	m.TenantName = p.TenantName
	m.Reference = p.Reference
	m.AmountCents = p.AmountCents
	m.Currency = p.Currency
	m.DueDate = p.DueDate
	m.PaidAt = p.PaidAt
	m.Status = p.Status
	m.ReconcileState = p.ReconcileState
	m.CounterpartType = p.CounterpartType
	m.CounterpartID = p.CounterpartID
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *banking.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PayoutModel is the persistence model for payout batches.
type PayoutModel struct {
	CompanyModel
	ExternalID           string                 `gorm:"type:varchar(100);not null;uniqueIndex:idx_payout_company_external,priority:2"`
	AmountCents          int64                  `gorm:"not null"`
	Currency             valueobject.Currency   `gorm:"type:varchar(3);not null;default:'EUR'"`
	ArrivalDate          time.Time              `gorm:"not null;index"`
	PaymentIDs           banking.UUIDList       `gorm:"type:jsonb;default:'[]'"`
	State                banking.ReconcileState `gorm:"type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	MatchedTransactionID *uuid.UUID             `gorm:"type:uuid"`
	MatchedAt            *time.Time
}

// TableName returns the table name for GORM
func (PayoutModel) TableName() string {
	return "payouts"
}

// ToDomain converts the persistence model to a domain Payout entity.
func (m *PayoutModel) ToDomain() *banking.Payout {
	return &banking.Payout{
		CompanyEntity:        m.ToDomainCompanyEntity(),
		ExternalID:           m.ExternalID,
		AmountCents:          m.AmountCents,
		Currency:             m.Currency,
		ArrivalDate:          m.ArrivalDate,
		PaymentIDs:           m.PaymentIDs,
		State:                m.State,
		MatchedTransactionID: m.MatchedTransactionID,
		MatchedAt:            m.MatchedAt,
	}
}

// FromDomain populates the persistence model from a domain Payout entity.
func (m *PayoutModel) FromDomain(p *banking.Payout) {
	m.FromDomainCompanyEntity(p.CompanyEntity)
	m.ExternalID = p.ExternalID
	m.AmountCents = p.AmountCents
	m.Currency = p.Currency
	m.ArrivalDate = p.ArrivalDate
	m.PaymentIDs = p.PaymentIDs
	m.State = p.State
	m.MatchedTransactionID = p.MatchedTransactionID
	m.MatchedAt = p.MatchedAt
}

// PayoutModelFromDomain creates a new persistence model from a domain Payout.
func PayoutModelFromDomain(p *banking.Payout) *PayoutModel {
	m := &PayoutModel{}
	m.FromDomain(p)
	return m
}

// SepaCollectionModel is the persistence model for SEPA direct-debit collections.
type SepaCollectionModel struct {
	CompanyModel
	ExternalID       string                   `gorm:"type:varchar(100);not null;uniqueIndex:idx_collection_company_external,priority:2"`
	MandateID        string                   `gorm:"type:varchar(100);index"`
	AmountCents      int64                    `gorm:"not null"`
	Currency         valueobject.Currency     `gorm:"type:varchar(3);not null;default:'EUR'"`
	ChargeDate       time.Time                `gorm:"not null;index"`
	Reference        string                   `gorm:"type:varchar(200)"`
	Description      string                   `gorm:"type:text"`
	Status           banking.CollectionStatus `gorm:"type:varchar(20);not null;index"`
	State            banking.ReconcileState   `gorm:"type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	MatchedPaymentID *uuid.UUID               `gorm:"type:uuid"`
	MatchedAt        *time.Time
}

// TableName returns the table name for GORM
func (SepaCollectionModel) TableName() string {
	return "sepa_collections"
}

// ToDomain converts the persistence model to a domain SepaCollection entity.
func (m *SepaCollectionModel) ToDomain() *banking.SepaCollection {
	return &banking.SepaCollection{
		CompanyEntity:    m.ToDomainCompanyEntity(),
		ExternalID:       m.ExternalID,
		MandateID:        m.MandateID,
		AmountCents:      m.AmountCents,
		Currency:         m.Currency,
		ChargeDate:       m.ChargeDate,
		Reference:        m.Reference,
		Description:      m.Description,
		Status:           m.Status,
		State:            m.State,
		MatchedPaymentID: m.MatchedPaymentID,
		MatchedAt:        m.MatchedAt,
	}
}

// FromDomain populates the persistence model from a domain SepaCollection entity.
func (m *SepaCollectionModel) FromDomain(c *banking.SepaCollection) {
	m.FromDomainCompanyEntity(c.CompanyEntity)
	m.ExternalID = c.ExternalID
	m.MandateID = c.MandateID
	m.AmountCents = c.AmountCents
	m.Currency = c.Currency
	m.ChargeDate = c.ChargeDate
	m.Reference = c.Reference
	m.Description = c.Description
	m.Status = c.Status
	m.State = c.State
	m.MatchedPaymentID = c.MatchedPaymentID
	m.MatchedAt = c.MatchedAt
}

// SepaCollectionModelFromDomain creates a new persistence model from a domain SepaCollection.
func SepaCollectionModelFromDomain(c *banking.SepaCollection) *SepaCollectionModel {
	m := &SepaCollectionModel{}
	m.FromDomain(c)
	return m
}

// BankConnectionModel is the persistence model for provider links.
type BankConnectionModel struct {
	CompanyModel
	Provider         string                   `gorm:"type:varchar(50);not null;index"`
	Institution      string                   `gorm:"type:varchar(200);not null"`
	Status           banking.ConnectionStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	LastSyncAt       *time.Time
	LastReconciledAt *time.Time
}

// TableName returns the table name for GORM
func (BankConnectionModel) TableName() string {
	return "bank_connections"
}

// ToDomain converts the persistence model to a domain BankConnection entity.
func (m *BankConnectionModel) ToDomain() *banking.BankConnection {
	return &banking.BankConnection{
		CompanyEntity:    m.ToDomainCompanyEntity(),
		Provider:         m.Provider,
		Institution:      m.Institution,
		Status:           m.Status,
		LastSyncAt:       m.LastSyncAt,
		LastReconciledAt: m.LastReconciledAt,
	}
}

// FromDomain populates the persistence model from a domain BankConnection entity.
func (m *BankConnectionModel) FromDomain(c *banking.BankConnection) {
	m.FromDomainCompanyEntity(c.CompanyEntity)
	m.Provider = c.Provider
	m.Institution = c.Institution
	m.Status = c.Status
	m.LastSyncAt = c.LastSyncAt
	m.LastReconciledAt = c.LastReconciledAt
}

// BankConnectionModelFromDomain creates a new persistence model from a domain BankConnection.
func BankConnectionModelFromDomain(c *banking.BankConnection) *BankConnectionModel {
	m := &BankConnectionModel{}
	m.FromDomain(c)
	return m
}

// WebhookEventModel is the persistence model for raw provider webhook events.
type WebhookEventModel struct {
	BaseModel
	Provider     string                     `gorm:"type:varchar(50);not null;uniqueIndex:idx_webhook_provider_event,priority:1"`
	EventID      string                     `gorm:"type:varchar(100);not null;uniqueIndex:idx_webhook_provider_event,priority:2"`
	ResourceType string                     `gorm:"type:varchar(50);not null;index"`
	Action       string                     `gorm:"type:varchar(50);not null"`
	Payload      []byte                     `gorm:"type:jsonb"`
	Status       banking.WebhookEventStatus `gorm:"type:varchar(20);not null;default:'RECEIVED';index"`
	LastError    string                     `gorm:"type:text"`
	ProcessedAt  *time.Time
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent entity.
func (m *WebhookEventModel) ToDomain() *banking.WebhookEvent {
	return &banking.WebhookEvent{
		BaseEntity:   m.BaseModel.ToDomain(),
		Provider:     m.Provider,
		EventID:      m.EventID,
		ResourceType: m.ResourceType,
		Action:       m.Action,
		Payload:      m.Payload,
		Status:       m.Status,
		LastError:    m.LastError,
		ProcessedAt:  m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent entity.
func (m *WebhookEventModel) FromDomain(e *banking.WebhookEvent) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Provider = e.Provider
	m.EventID = e.EventID
	m.ResourceType = e.ResourceType
	m.Action = e.Action
	m.Payload = e.Payload
	m.Status = e.Status
	m.LastError = e.LastError
	m.ProcessedAt = e.ProcessedAt
}

// WebhookEventModelFromDomain creates a new persistence model from a domain WebhookEvent.
func WebhookEventModelFromDomain(e *banking.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}
