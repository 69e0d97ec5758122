package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// versionHeader selects the provider API version for a request
const versionHeader = "GoCardless-Version"

// maxResponseSize caps how much of a provider response is read
const maxResponseSize = 4 << 20

// Error is a failed call against the provider API. It unwraps to
// ErrProviderUnavailable so handlers surface it as a generic upstream error
// while the full detail stays in the logs.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return shared.ErrProviderUnavailable
}

// PaymentRecord is a provider payment (SEPA collection) listing entry,
// already reduced to the normalizer's input shape plus collection metadata.
type PaymentRecord struct {
	banking.SourceRecord
	MandateID string
	Status    banking.CollectionStatus
	CompanyID string
}

// PayoutRecord is a provider payout listing entry
type PayoutRecord struct {
	banking.SourceRecord
	CompanyID string
}

// Client calls the payment provider's REST API. Every request walks the
// configured API version list in order with a fresh timeout per attempt;
// the first version the provider accepts wins.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	accessToken    string
	versions       []string
	attemptTimeout time.Duration
	pageSize       int
	logger         *zap.Logger
}

// NewClient creates a provider API client from configuration
func NewClient(cfg *config.ProviderConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     &http.Client{},
		baseURL:        cfg.BaseURL,
		accessToken:    cfg.AccessToken,
		versions:       cfg.APIVersions,
		attemptTimeout: cfg.AttemptTimeout,
		pageSize:       cfg.PageSize,
		logger:         logger.Named("provider"),
	}
}

// ListPayments pulls all payments created since the given time
func (c *Client) ListPayments(ctx context.Context, since time.Time) ([]PaymentRecord, error) {
	var records []PaymentRecord
	after := ""
	for {
		query := c.listQuery(since, after)
		body, err := c.get(ctx, "/payments", query)
		if err != nil {
			return nil, err
		}

		var page struct {
			Payments []paymentResource `json:"payments"`
			Meta     listMeta          `json:"meta"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &Error{Op: "list payments", Message: "malformed response body"}
		}

		for _, p := range page.Payments {
			record, err := paymentToRecord(p)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		if page.Meta.Cursors.After == "" || len(page.Payments) == 0 {
			return records, nil
		}
		after = page.Meta.Cursors.After
	}
}

// ListPayouts pulls all payouts created since the given time
func (c *Client) ListPayouts(ctx context.Context, since time.Time) ([]PayoutRecord, error) {
	var records []PayoutRecord
	after := ""
	for {
		query := c.listQuery(since, after)
		body, err := c.get(ctx, "/payouts", query)
		if err != nil {
			return nil, err
		}

		var page struct {
			Payouts []payoutResource `json:"payouts"`
			Meta    listMeta         `json:"meta"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &Error{Op: "list payouts", Message: "malformed response body"}
		}

		for _, p := range page.Payouts {
			record, err := payoutToRecord(p)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		if page.Meta.Cursors.After == "" || len(page.Payouts) == 0 {
			return records, nil
		}
		after = page.Meta.Cursors.After
	}
}

// GetPayment fetches a single payment by its provider id
func (c *Client) GetPayment(ctx context.Context, id string) (PaymentRecord, error) {
	body, err := c.get(ctx, "/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return PaymentRecord{}, err
	}

	var resp struct {
		Payment paymentResource `json:"payments"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return PaymentRecord{}, &Error{Op: "get payment", Message: "malformed response body"}
	}
	if resp.Payment.ID == "" {
		return PaymentRecord{}, &Error{Op: "get payment", Message: "response carries no payment"}
	}
	return paymentToRecord(resp.Payment)
}

// GetPayout fetches a single payout by its provider id
func (c *Client) GetPayout(ctx context.Context, id string) (PayoutRecord, error) {
	body, err := c.get(ctx, "/payouts/"+url.PathEscape(id), nil)
	if err != nil {
		return PayoutRecord{}, err
	}

	var resp struct {
		Payout payoutResource `json:"payouts"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return PayoutRecord{}, &Error{Op: "get payout", Message: "malformed response body"}
	}
	if resp.Payout.ID == "" {
		return PayoutRecord{}, &Error{Op: "get payout", Message: "response carries no payout"}
	}
	return payoutToRecord(resp.Payout)
}

func (c *Client) listQuery(since time.Time, after string) url.Values {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))
	if !since.IsZero() {
		query.Set("created_at[gte]", since.UTC().Format(time.RFC3339))
	}
	if after != "" {
		query.Set("after", after)
	}
	return query
}

// get walks the API version fallback list. A version the provider rejects
// moves on to the next one; the last error is returned when all fail.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for _, version := range c.versions {
		body, err := c.attempt(ctx, path, query, version)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("provider request attempt failed",
			zap.String("path", path),
			zap.String("api_version", version),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &Error{Op: "GET " + path, Message: "no API versions configured"}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, path string, query url.Values, version string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Op: "GET " + path, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(versionHeader, version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &Error{Op: "GET " + path, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Op: "GET " + path, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Op: "GET " + path, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}

func paymentToRecord(p paymentResource) (PaymentRecord, error) {
	chargeDate, err := parseAPIDate("charge_date", p.ChargeDate)
	if err != nil {
		return PaymentRecord{}, err
	}
	amount := p.Amount
	return PaymentRecord{
		SourceRecord: banking.SourceRecord{
			ExternalID:  p.ID,
			AmountCents: &amount,
			Currency:    p.Currency,
			Date:        chargeDate,
			Description: p.Description,
			Reference:   p.Metadata.Reference(),
		},
		MandateID: p.Links.Mandate,
		Status:    MapCollectionStatus(p.Status),
		CompanyID: p.Metadata.CompanyID(),
	}, nil
}

func payoutToRecord(p payoutResource) (PayoutRecord, error) {
	arrivalDate, err := parseAPIDate("arrival_date", p.ArrivalDate)
	if err != nil {
		return PayoutRecord{}, err
	}
	amount := p.Amount
	return PayoutRecord{
		SourceRecord: banking.SourceRecord{
			ExternalID:  p.ID,
			AmountCents: &amount,
			Currency:    p.Currency,
			Date:        arrivalDate,
			Reference:   p.Reference,
		},
		CompanyID: p.Metadata.CompanyID(),
	}, nil
}

// MapCollectionStatus reduces the provider's payment lifecycle vocabulary to
// the domain's collection statuses.
func MapCollectionStatus(status string) banking.CollectionStatus {
	switch status {
	case "pending_customer_approval", "pending_submission":
		return banking.CollectionStatusCreated
	case "submitted":
		return banking.CollectionStatusSubmitted
	case "confirmed", "paid_out":
		return banking.CollectionStatusConfirmed
	case "failed", "cancelled", "customer_approval_denied", "charged_back":
		return banking.CollectionStatusFailed
	case "refunded":
		return banking.CollectionStatusRefunded
	default:
		return banking.CollectionStatusCreated
	}
}
