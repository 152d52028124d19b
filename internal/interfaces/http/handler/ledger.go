package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/sneakerflash/backend/internal/application/integration"
	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/domain/shared"
	"github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/sneakerflash/backend/internal/interfaces/http/dto"
)

// LedgerQuery reads the sync ledger
type LedgerQuery interface {
	ListEntries(ctx context.Context, filter integration.LedgerFilter) (*appintegration.LedgerPage, error)
	SessionSummary(ctx context.Context, sessionID string) (*appintegration.SessionSummary, error)
}

// LedgerHandler serves read-only sync ledger views for operators
type LedgerHandler struct {
	ledger LedgerQuery
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger LedgerQuery) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// LedgerListQuery holds the query parameters of the ledger listing
type LedgerListQuery struct {
	SessionID     string     `form:"session_id"`
	SKU           string     `form:"sku"`
	Status        string     `form:"status"`
	OperationType string     `form:"operation_type"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1"`
}

// ListEntries returns one page of ledger entries, newest first
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var q LedgerListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_QUERY", err.Error()))
		return
	}

	page, err := h.ledger.ListEntries(c.Request.Context(), integration.LedgerFilter{
		SessionID:     q.SessionID,
		SKU:           q.SKU,
		Status:        integration.LedgerStatus(q.Status),
		OperationType: integration.OperationType(q.OperationType),
		From:          q.From,
		To:            q.To,
		Page:          q.Page,
		PageSize:      q.PageSize,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(page))
}

// GetSessionSummary returns the ledger status counts of one reconciliation session
func (h *LedgerHandler) GetSessionSummary(c *gin.Context) {
	summary, err := h.ledger.SessionSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(summary))
}

func (h *LedgerHandler) handleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusBadRequest
		if domainErr.Code == "NOT_FOUND" {
			status = http.StatusNotFound
		}
		c.JSON(status, dto.NewErrorResponse(domainErr.Code, domainErr.Message))
		return
	}

	logger.GetGinLogger(c).Error("Ledger query failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "failed to read the sync ledger"))
}
