package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/api/dto"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
)

// PaymentHandler serves the public payment page and the relay facing endpoints
type PaymentHandler struct {
	invoiceService        service.InvoiceService
	paymentService        service.PaymentService
	reconciliationService service.ReconciliationService
	logger                *logger.Logger
}

func NewPaymentHandler(
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	reconciliationService service.ReconciliationService,
	logger *logger.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		invoiceService:        invoiceService,
		paymentService:        paymentService,
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// GetPaymentInvoice godoc
// @Summary Get the invoice behind a payment link
// @Description Public lookup used by the payment page. Only sent and pending invoices are visible.
// @Tags Payments
// @Produce json
// @Param link_id path string true "Payment link ID"
// @Success 200 {object} dto.PaymentInvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /pay/{link_id} [get]
func (h *PaymentHandler) GetPaymentInvoice(c *gin.Context) {
	resp, err := h.invoiceService.GetInvoiceForPayment(c.Request.Context(), c.Param("link_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PayByLink godoc
// @Summary Pay an invoice through its payment link
// @Tags Payments
// @Accept json
// @Produce json
// @Param link_id path string true "Payment link ID"
// @Param payment body dto.InitiatePaymentRequest true "Payer wallet and signature"
// @Success 202 {object} dto.InitiatePaymentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /pay/{link_id} [post]
func (h *PaymentHandler) PayByLink(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.InitiatePaymentByLink(c.Request.Context(), c.Param("link_id"), req)
	if err != nil {
		h.logger.Errorw("failed to initiate payment by link", "link_id", c.Param("link_id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetPaymentStatus godoc
// @Summary Poll the settlement state of a submitted operation
// @Tags Payments
// @Produce json
// @Param hash path string true "User operation or transaction hash"
// @Success 200 {object} dto.PaymentStatusResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /payments/status/{hash} [get]
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	resp, err := h.reconciliationService.PollStatus(c.Request.Context(), c.Param("hash"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SponsorGas godoc
// @Summary Sponsor and submit a user operation
// @Tags Payments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param operation body dto.SponsorGasRequest true "User operation"
// @Success 202 {object} dto.SponsorGasResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /payments/sponsor [post]
func (h *PaymentHandler) SponsorGas(c *gin.Context) {
	var req dto.SponsorGasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.paymentService.SponsorGas(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to sponsor user operation", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}
