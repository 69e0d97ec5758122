package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	bankingapp "github.com/inmova/backend/internal/application/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/infrastructure/provider"
	"github.com/inmova/backend/internal/interfaces/http/dto"
	"github.com/inmova/backend/internal/interfaces/http/middleware"
)

// Maximum webhook payload size. Provider deliveries batch at most a few
// hundred events and stay well under this.
const maxWebhookPayloadSize = 1 << 20

// WebhookHandler handles provider webhook endpoints. The ingest endpoint is
// called by the payment provider and is signature-gated instead of
// session-authenticated.
type WebhookHandler struct {
	BaseHandler
	webhookService *bankingapp.WebhookService
	retryBatchSize int
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *bankingapp.WebhookService, retryBatchSize int) *WebhookHandler {
	if retryBatchSize <= 0 {
		retryBatchSize = 50
	}
	return &WebhookHandler{
		webhookService: webhookService,
		retryBatchSize: retryBatchSize,
	}
}

// RegisterPublicRoutes registers the signature-gated ingest route. It must
// be mounted outside the JWT middleware.
func (h *WebhookHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/banking/webhooks/:provider", h.HandleWebhook)
}

// RegisterRoutes registers the session-authenticated webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/banking/webhooks/retry", h.RetryFailed)
}

// HandleWebhook receives one signed provider delivery. The signature covers
// the raw body, so the body is read before any parsing. A mismatch answers
// 498 and leaves no trace; after verification the delivery always answers
// 200, with per-event failures counted in the body.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	providerName := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(body) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Payload too large")
		return
	}

	signature := c.GetHeader(provider.SignatureHeader)
	result, err := h.webhookService.Process(c.Request.Context(), providerName, body, signature)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidSignature) {
			h.Error(c, dto.StatusSignatureInvalid, dto.ErrCodeInvalidSignature,
				"Webhook signature verification failed")
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RetryFailed re-dispatches persisted events whose handler previously failed
func (h *WebhookHandler) RetryFailed(c *gin.Context) {
	providerName := c.Query("provider")
	if providerName == "" {
		providerName = "gocardless"
	}

	var req dto.RetryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.retryBatchSize
	}

	result, err := h.webhookService.Retry(c.Request.Context(), providerName, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
