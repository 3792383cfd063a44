package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/paysync/paysync/internal/errors"
	stripeclient "github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/logger"
)

type CheckoutHandler struct {
	checkoutSvc *stripeclient.CheckoutService
	log         *logger.Logger
}

func NewCheckoutHandler(checkoutSvc *stripeclient.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc, log: log}
}

// @Summary Create a checkout session
// @Description Create a Stripe checkout session for a plan purchase
// @Tags Checkout
// @Accept json
// @Produce json
// @Param session body stripeclient.CreateCheckoutSessionRequest true "Checkout session configuration"
// @Success 201 {object} stripeclient.CheckoutSessionResponse
// @Router /checkout/sessions [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req stripeclient.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.checkoutSvc.CreateCheckoutSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create checkout session", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
