package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inmova/backend/internal/domain/shared"
)

// Resource types carried in webhook events and API listings
const (
	ResourcePayments      = "payments"
	ResourcePayouts       = "payouts"
	ResourceMandates      = "mandates"
	ResourceRefunds       = "refunds"
	ResourceSubscriptions = "subscriptions"
)

// Envelope is the top-level webhook body: a batch of events
type Envelope struct {
	Events []Event `json:"events"`
}

// Event is a single provider webhook event. Links carries the ids of the
// resources the event refers to; Details explains the cause.
type Event struct {
	ID           string       `json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	ResourceType string       `json:"resource_type"`
	Action       string       `json:"action"`
	Links        EventLinks   `json:"links"`
	Details      EventDetails `json:"details"`
	Metadata     Metadata     `json:"metadata"`
}

// EventLinks holds resource id references for an event
type EventLinks struct {
	Payment      string `json:"payment,omitempty"`
	Payout       string `json:"payout,omitempty"`
	Mandate      string `json:"mandate,omitempty"`
	Refund       string `json:"refund,omitempty"`
	Subscription string `json:"subscription,omitempty"`
}

// EventDetails describes the origin and cause of an event
type EventDetails struct {
	Origin      string `json:"origin,omitempty"`
	Cause       string `json:"cause,omitempty"`
	Description string `json:"description,omitempty"`
}

// Metadata is the free-form key/value block providers attach to resources.
// The platform stores the company and tenant reference here when creating
// collections.
type Metadata map[string]string

// CompanyID returns the owning company id recorded in metadata, if any
func (m Metadata) CompanyID() string {
	return m["company_id"]
}

// Reference returns the tenant collection reference recorded in metadata
func (m Metadata) Reference() string {
	return m["reference"]
}

// DecodeEnvelope parses a raw webhook body. A body that is not a well-formed
// event envelope is a validation error; ingest never guesses at shapes.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, shared.NewValidationError("body", "webhook body is not a valid event envelope")
	}
	if envelope.Events == nil {
		return nil, shared.NewValidationError("events", "webhook body carries no events array")
	}
	for i, e := range envelope.Events {
		if e.ID == "" {
			return nil, shared.NewValidationError("events", fmt.Sprintf("event %d has no id", i))
		}
		if e.ResourceType == "" {
			return nil, shared.NewValidationError("events", fmt.Sprintf("event %q has no resource_type", e.ID))
		}
	}
	return &envelope, nil
}

// paymentResource is the provider's payment (SEPA collection) shape
type paymentResource struct {
	ID          string   `json:"id"`
	Amount      int64    `json:"amount"` // minor units
	Currency    string   `json:"currency"`
	ChargeDate  string   `json:"charge_date"` // YYYY-MM-DD
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Metadata    Metadata `json:"metadata"`
	Links       struct {
		Mandate string `json:"mandate"`
	} `json:"links"`
}

// payoutResource is the provider's payout batch shape
type payoutResource struct {
	ID          string   `json:"id"`
	Amount      int64    `json:"amount"` // minor units
	Currency    string   `json:"currency"`
	ArrivalDate string   `json:"arrival_date"` // YYYY-MM-DD
	Reference   string   `json:"reference"`
	Status      string   `json:"status"`
	Metadata    Metadata `json:"metadata"`
}

// listMeta is the provider's cursor pagination block
type listMeta struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Limit int `json:"limit"`
}

// parseAPIDate parses the provider's YYYY-MM-DD date fields
func parseAPIDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, shared.NewValidationError(field, "date is required")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, shared.NewValidationError(field, fmt.Sprintf("invalid date %q", value))
	}
	return t, nil
}
