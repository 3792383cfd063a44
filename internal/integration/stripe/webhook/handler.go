package webhook

import (
	"context"

	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/domain/subscription"
	"github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/service"
	"github.com/paysync/paysync/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
)

type handlerFunc func(ctx context.Context, event *stripeapi.Event) error

// Handler routes verified Stripe webhook events to their domain handlers.
// The routing table is a closed set built at construction; an event type
// without an entry is reported back as unhandled, never an error.
type Handler struct {
	client      *stripe.Client
	customerSvc *stripe.CustomerService
	recorder    service.TransactionRecorder
	subRepo     subscription.Repository
	cfg         *config.Configuration
	logger      *logger.Logger
	handlers    map[types.WebhookEventType]handlerFunc
}

// NewHandler creates a new Stripe webhook handler
func NewHandler(
	client *stripe.Client,
	customerSvc *stripe.CustomerService,
	recorder service.TransactionRecorder,
	subRepo subscription.Repository,
	cfg *config.Configuration,
	logger *logger.Logger,
) *Handler {
	h := &Handler{
		client:      client,
		customerSvc: customerSvc,
		recorder:    recorder,
		subRepo:     subRepo,
		cfg:         cfg,
		logger:      logger,
	}

	h.handlers = map[types.WebhookEventType]handlerFunc{
		types.WebhookEventTypeCheckoutSessionCompleted: h.handleCheckoutSessionCompleted,
		types.WebhookEventTypeInvoicePaymentSucceeded:  h.handleInvoicePaymentSucceeded,
		types.WebhookEventTypeInvoicePaymentFailed:     h.handleInvoicePaymentFailed,
		types.WebhookEventTypeInvoiceUpcoming:          h.handleInvoiceUpcoming,
		types.WebhookEventTypePaymentMethodAttached:    h.handlePaymentMethodAttached,
		types.WebhookEventTypeSubscriptionCreated:      h.handleSubscriptionCreated,
		types.WebhookEventTypeSubscriptionUpdated:      h.handleSubscriptionUpdated,
		types.WebhookEventTypeSubscriptionDeleted:      h.handleSubscriptionDeleted,
		types.WebhookEventTypeSubscriptionTrialWillEnd: h.handleSubscriptionTrialWillEnd,
		types.WebhookEventTypePaymentIntentSucceeded:   h.handlePaymentIntentSucceeded,
		types.WebhookEventTypePaymentIntentCreated:     h.handlePaymentIntentCreated,
		types.WebhookEventTypePaymentIntentFailed:      h.handlePaymentIntentFailed,
		types.WebhookEventTypePaymentIntentCanceled:    h.handlePaymentIntentCanceled,
		types.WebhookEventTypeChargeRefunded:           h.handleChargeRefunded,
	}

	return h
}

// Handle dispatches one event through the routing table. It reports false
// when the event type is outside the supported set.
func (h *Handler) Handle(ctx context.Context, event *stripeapi.Event) (bool, error) {
	fn, ok := h.handlers[types.WebhookEventType(event.Type)]
	if !ok {
		return false, nil
	}

	h.logger.Infow("processing Stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type)

	return true, fn(ctx, event)
}

// planNameForPrice reverse-maps a price id to the provisioned plan name.
// Returns empty when the price is not one of the configured plans.
func (h *Handler) planNameForPrice(priceID string) string {
	for plan, id := range h.cfg.Stripe.PriceIDs {
		if id == priceID {
			return plan
		}
	}
	return ""
}
