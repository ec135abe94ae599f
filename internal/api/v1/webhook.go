package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
	"github.com/settlehq/settle/internal/types"
)

// WebhookHandler receives relay and chain notifications
type WebhookHandler struct {
	config                *config.Configuration
	reconciliationService service.ReconciliationService
	logger                *logger.Logger
}

func NewWebhookHandler(
	config *config.Configuration,
	reconciliationService service.ReconciliationService,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:                config,
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// HandleWebhook godoc
// @Summary Receive a relay or chain notification
// @Description The raw body is verified against the HMAC signature header, stored, then dispatched.
// @Description Dispatch failures are kept for replay and still acknowledged with 200.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of the body, hex encoded"
// @Param X-Event-Type header string false "Event type, falls back to the type path parameter"
// @Param type path string false "Event type"
// @Success 200 {object} dto.WebhookResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Router /webhooks/{type} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	eventType := types.WebhookEventType(c.GetHeader(h.config.Webhook.EventHeader))
	if eventType == "" {
		eventType = types.WebhookEventType(c.Param("type"))
	}
	if eventType == "" {
		c.Error(ierr.NewError("missing webhook event type").
			WithHintf("Event type is required in the %s header", h.config.Webhook.EventHeader).
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(h.config.Webhook.SignatureHeader)

	resp, err := h.reconciliationService.HandleWebhook(c.Request.Context(), eventType, body, signature)
	if err != nil {
		h.logger.Warnw("webhook rejected",
			"event_type", eventType,
			"error", err)
		c.Error(err)
		return
	}

	if resp.Error != "" {
		h.logger.Warnw("webhook stored for replay",
			"event_id", resp.EventID,
			"event_type", eventType,
			"error", resp.Error)
	}

	c.JSON(http.StatusOK, resp)
}
