package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
	"github.com/settlehq/settle/internal/types"
)

type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *logger.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, logger *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// ListTransactions godoc
// @Summary List tracked transactions
// @Tags Transactions
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.TransactionFilter false "Filter"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var filter types.TransactionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.QueryFilter = withDefaultLimit(filter.QueryFilter)

	resp, err := h.transactionService.ListTransactions(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTransaction godoc
// @Summary Get a tracked transaction
// @Tags Transactions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	resp, err := h.transactionService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
