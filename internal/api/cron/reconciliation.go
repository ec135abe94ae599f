package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
)

// ReconciliationHandler exposes the scheduled reconciliation jobs for external schedulers
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *logger.Logger
}

func NewReconciliationHandler(
	reconciliationService service.ReconciliationService,
	logger *logger.Logger,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// SweepOverdue moves every sent or pending invoice past its due date to overdue
func (h *ReconciliationHandler) SweepOverdue(c *gin.Context) {
	h.logger.Infow("starting overdue sweep cron job")

	ids, err := h.reconciliationService.SweepOverdue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to sweep overdue invoices", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed overdue sweep cron job", "count", len(ids))
	c.JSON(http.StatusOK, gin.H{
		"status":      "completed",
		"invoice_ids": ids,
	})
}

// ReplayWebhooks re-dispatches stored webhook events that were never processed
func (h *ReconciliationHandler) ReplayWebhooks(c *gin.Context) {
	h.logger.Infow("starting webhook replay cron job")

	resp, err := h.reconciliationService.ReplayWebhooks(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to replay webhooks", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
