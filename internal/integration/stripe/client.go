package stripe

import (
	"context"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/paysync/paysync/internal/config"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client wraps the Stripe SDK client with the service configuration. The
// underlying HTTP transport retries transient failures; webhook verification
// uses the signing secret from configuration.
type Client struct {
	cfg    *config.Configuration
	logger *logger.Logger
	api    *stripe.Client
}

// NewClient creates a new Stripe client
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.Logger = nil

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: retryClient.StandardClient(),
	})
	stripe.SetBackend(stripe.APIBackend, backend)

	return &Client{
		cfg:    cfg,
		logger: logger,
		api:    stripe.NewClient(cfg.Stripe.SecretKey, nil),
	}
}

// API returns the configured Stripe SDK client
func (c *Client) API() *stripe.Client {
	return c.api
}

// ParseWebhookEvent parses a Stripe webhook event with signature verification
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	// Verify the webhook signature, ignoring API version mismatch
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.Stripe.WebhookSecret, options)
	if err != nil {
		c.logger.Errorw("Stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// GetChargeSettlement retrieves the balance transaction of a charge, which
// carries the processor fee and net amount once the charge settles. Returns
// nil without error when the charge has no balance transaction yet.
func (c *Client) GetChargeSettlement(ctx context.Context, chargeID string) (*stripe.BalanceTransaction, error) {
	params := &stripe.ChargeRetrieveParams{
		Expand: []*string{
			stripe.String("balance_transaction"),
		},
	}

	charge, err := c.api.V1Charges.Retrieve(ctx, chargeID, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to retrieve charge %s from Stripe", chargeID).
			Mark(ierr.ErrHTTPClient)
	}

	return charge.BalanceTransaction, nil
}

// GetPaymentIntentSettlement retrieves the balance transaction behind a
// payment intent's latest charge. Returns nil without error when settlement
// detail is not available yet.
func (c *Client) GetPaymentIntentSettlement(ctx context.Context, paymentIntentID string) (*stripe.BalanceTransaction, error) {
	params := &stripe.PaymentIntentRetrieveParams{
		Expand: []*string{
			stripe.String("latest_charge.balance_transaction"),
		},
	}

	paymentIntent, err := c.api.V1PaymentIntents.Retrieve(ctx, paymentIntentID, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to retrieve payment intent %s from Stripe", paymentIntentID).
			Mark(ierr.ErrHTTPClient)
	}

	if paymentIntent.LatestCharge == nil {
		return nil, nil
	}
	return paymentIntent.LatestCharge.BalanceTransaction, nil
}
