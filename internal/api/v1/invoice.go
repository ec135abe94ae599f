package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/api/dto"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
	"github.com/settlehq/settle/internal/types"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// CreateInvoice godoc
// @Summary Create a new invoice
// @Description Create an invoice for an email or wallet client. Wallet client invoices are registered on chain in the background.
// @Tags Invoices
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorw("failed to create invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetInvoice godoc
// @Summary Get an invoice by ID
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListInvoices godoc
// @Summary List invoices
// @Description List the caller's invoices, optionally filtered by status and client
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.QueryFilter = withDefaultLimit(filter.QueryFilter)

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateInvoice godoc
// @Summary Update an invoice
// @Description Edit the title, description, due date or metadata of a draft or sent invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Param invoice body dto.UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteInvoice godoc
// @Summary Delete an invoice
// @Description Soft delete an invoice that has not been paid
// @Tags Invoices
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 204
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SendInvoice godoc
// @Summary Send a draft invoice
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	resp, err := h.invoiceService.SendInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelInvoice godoc
// @Summary Cancel an invoice
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	resp, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SendReminder godoc
// @Summary Remind the client about an unpaid invoice
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 202 {object} dto.SuccessResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/remind [post]
func (h *InvoiceHandler) SendReminder(c *gin.Context) {
	if err := h.invoiceService.SendReminder(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "reminder queued"})
}

// SyncInvoice godoc
// @Summary Reconcile an invoice with the contract
// @Description Reads the invoice from the chain and marks it paid when the contract reports it settled
// @Tags Invoices
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.SyncResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /invoices/{id}/sync [post]
func (h *InvoiceHandler) SyncInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	// ownership check, sync itself acts as the system
	if _, err := h.invoiceService.GetInvoice(ctx, id); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.invoiceService.SyncFromChain(ctx, id)
	if err != nil {
		h.logger.Errorw("failed to sync invoice from chain", "invoice_id", id, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// InitiatePayment godoc
// @Summary Pay an invoice
// @Description Submit a sponsored approve and pay operation for a registered invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payment body dto.InitiatePaymentRequest true "Payer wallet and signature"
// @Success 202 {object} dto.InitiatePaymentResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /invoices/{id}/pay [post]
func (h *InvoiceHandler) InitiatePayment(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.InitiatePayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.logger.Errorw("failed to initiate payment", "invoice_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func withDefaultLimit(f *types.QueryFilter) *types.QueryFilter {
	if f == nil {
		return types.NewDefaultQueryFilter()
	}
	if f.Limit == nil {
		f.Limit = types.NewDefaultQueryFilter().Limit
	}
	return f
}
