package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paysync/paysync/internal/config"
	stripeclient "github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/service"
)

// maxWebhookBodyBytes caps the webhook payload size before signature
// verification runs.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler handles webhook-related endpoints
type WebhookHandler struct {
	config         *config.Configuration
	stripeClient   *stripeclient.Client
	webhookService service.WebhookService
	logger         *logger.Logger
}

func NewWebhookHandler(
	cfg *config.Configuration,
	stripeClient *stripeclient.Client,
	webhookService service.WebhookService,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:         cfg,
		stripeClient:   stripeClient,
		webhookService: webhookService,
		logger:         logger,
	}
}

// @Summary Handle Stripe webhook events
// @Description Verify and process an incoming Stripe webhook delivery
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} map[string]interface{} "Webhook processed successfully"
// @Failure 400 {object} map[string]interface{} "Bad request - missing or invalid signature"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read webhook request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.logger.Errorw("missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing Stripe-Signature header",
		})
		return
	}

	event, err := h.stripeClient.ParseWebhookEvent(body, signature)
	if err != nil {
		h.logger.Errorw("failed to parse/verify Stripe webhook event", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to verify webhook signature or parse event",
		})
		return
	}

	h.logger.Debugw("processing webhook",
		"event_id", event.ID,
		"event_type", event.Type,
		"payload_length", len(body))

	// Any non-nil error must surface as a non-2xx status so the provider
	// redelivers; the error middleware maps the in-flight collision to 409.
	if err := h.webhookService.ProcessEvent(c.Request.Context(), event); err != nil {
		h.logger.Errorw("failed to process webhook event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook processed successfully",
	})
}
