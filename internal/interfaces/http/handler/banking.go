package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	bankingapp "github.com/inmova/backend/internal/application/banking"
	"github.com/inmova/backend/internal/interfaces/http/dto"
	"github.com/inmova/backend/internal/interfaces/http/middleware"
)

// BankingHandler handles reconciliation and banking status endpoints
type BankingHandler struct {
	BaseHandler
	reconciliation *bankingapp.ReconciliationService
	sync           *bankingapp.SyncService
}

// NewBankingHandler creates a new BankingHandler
func NewBankingHandler(reconciliation *bankingapp.ReconciliationService, sync *bankingapp.SyncService) *BankingHandler {
	return &BankingHandler{
		reconciliation: reconciliation,
		sync:           sync,
	}
}

// RegisterRoutes registers banking routes
func (h *BankingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	banking := rg.Group("/banking")
	{
		banking.POST("/reconciliation", h.RunReconciliation)
		banking.GET("/status", h.GetStatus)
		banking.POST("/transactions/:id/ignore", h.IgnoreTransaction)
	}
}

// RunReconciliation runs the action named in the request body against the
// authenticated company
func (h *BankingHandler) RunReconciliation(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company not resolved from token")
		return
	}

	var req dto.ReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	switch req.Action {
	case "reconcile":
		result, err := h.reconciliation.Reconcile(c.Request.Context(), companyID)
		if err != nil {
			if result == nil {
				h.HandleError(c, err)
				return
			}
			// Some pass writes failed; the counts cover persisted
			// matches only.
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"result":  result,
				"error": dto.ErrorInfo{
					Code:    dto.ErrCodeInternal,
					Message: "Some matches could not be persisted",
				},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	case "full-sync":
		result, err := h.sync.FullSync(c.Request.Context(), companyID)
		if err != nil {
			if result == nil {
				h.HandleError(c, err)
				return
			}
			c.JSON(http.StatusOK, dto.Response{
				Success: false,
				Data:    result,
				Error: &dto.ErrorInfo{
					Code:    dto.ErrCodeInternal,
					Message: "Sync finished but some matches could not be persisted",
				},
			})
			return
		}
		h.Success(c, result)
	case "status":
		status, err := h.reconciliation.Status(c.Request.Context(), companyID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, status)
	default:
		h.BadRequest(c, "Unknown action: "+req.Action)
	}
}

// GetStatus returns the per-company banking summary
func (h *BankingHandler) GetStatus(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company not resolved from token")
		return
	}

	status, err := h.reconciliation.Status(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// IgnoreTransaction manually excludes a pending bank transaction from
// reconciliation
func (h *BankingHandler) IgnoreTransaction(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company not resolved from token")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid transaction id")
		return
	}
	transactionID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction id")
		return
	}

	// Attributed in the audit log; uuid.Nil when the claim is absent
	userID, _ := getUserID(c)

	if err := h.reconciliation.IgnoreTransaction(c.Request.Context(), companyID, transactionID, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"ignored": true})
}
