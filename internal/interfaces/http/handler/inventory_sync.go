package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/logger"
	"github.com/erp/equipsync/internal/interfaces/http/dto"
)

const defaultRunListLimit = 20

// SyncRunner performs one lease-guarded inventory sync
type SyncRunner interface {
	Run(ctx context.Context) (*integration.SyncResult, error)
}

// InventorySyncHandler exposes the manual sync trigger and run history
type InventorySyncHandler struct {
	BaseHandler
	runner  SyncRunner
	history integration.SyncHistory
}

// NewInventorySyncHandler creates a new InventorySyncHandler.
// A nil history disables the read endpoints.
func NewInventorySyncHandler(runner SyncRunner, history integration.SyncHistory) *InventorySyncHandler {
	return &InventorySyncHandler{
		runner:  runner,
		history: history,
	}
}

// Run godoc
// @Summary      Run an inventory sync
// @Description  Runs one reconciliation under the sync lease and blocks until it finishes. The run summary is returned on failure too.
// @Tags         inventory-sync
// @Produce      json
// @Success      200 {object} dto.Response{data=integration.SyncResult}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo,data=integration.SyncResult}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo,data=integration.SyncResult}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo,data=integration.SyncResult}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo,data=integration.SyncResult}
// @Failure      504 {object} dto.Response{error=dto.ErrorInfo,data=integration.SyncResult}
// @Router       /inventory-sync/run [post]
func (h *InventorySyncHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := h.runner.Run(ctx)
	if err != nil {
		code := dto.SyncErrorCode(err)
		status := dto.GetHTTPStatus(code)
		if status >= 500 {
			logger.L(ctx).Error("Manual inventory sync failed", zap.Error(err))
		}
		message := err.Error()
		if code == dto.ErrCodeSyncInProgress {
			message = "An inventory sync is already running"
		}
		c.JSON(status, dto.NewErrorResponseWithData(code, message, getRequestID(c), result))
		return
	}
	h.Success(c, result)
}

// Latest godoc
// @Summary      Latest sync run
// @Description  Summary of the most recent inventory sync run
// @Tags         inventory-sync
// @Produce      json
// @Success      200 {object} dto.Response{data=integration.SyncResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory-sync/runs/latest [get]
func (h *InventorySyncHandler) Latest(c *gin.Context) {
	if h.history == nil {
		h.NotFound(c, "Run history is not available")
		return
	}
	result, err := h.history.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, integration.ErrNoSyncRuns) {
			h.NotFound(c, "No inventory sync has run yet")
			return
		}
		logger.L(c.Request.Context()).Error("Failed to load latest sync run", zap.Error(err))
		h.InternalError(c, "Failed to load latest sync run")
		return
	}
	h.Success(c, result)
}

// List godoc
// @Summary      List sync runs
// @Description  Recent inventory sync runs, newest first
// @Tags         inventory-sync
// @Produce      json
// @Param        limit query int false "Maximum runs to return" minimum(1) maximum(100) default(20)
// @Success      200 {object} dto.Response{data=[]integration.SyncResult,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory-sync/runs [get]
func (h *InventorySyncHandler) List(c *gin.Context) {
	if h.history == nil {
		h.NotFound(c, "Run history is not available")
		return
	}
	var query dto.ListRunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	limit := query.LimitOr(defaultRunListLimit)

	runs, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		logger.L(c.Request.Context()).Error("Failed to list sync runs", zap.Error(err))
		h.InternalError(c, "Failed to list sync runs")
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(runs, len(runs), limit))
}
