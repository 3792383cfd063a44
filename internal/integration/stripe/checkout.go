package stripe

import (
	"context"

	"github.com/paysync/paysync/internal/config"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// CheckoutService creates Stripe Checkout sessions for the configured
// subscription plans. The resulting payments flow back through the webhook
// pipeline; this service never writes local state.
type CheckoutService struct {
	client      *Client
	customerSvc *CustomerService
	cfg         *config.Configuration
	logger      *logger.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	client *Client,
	customerSvc *CustomerService,
	cfg *config.Configuration,
	logger *logger.Logger,
) *CheckoutService {
	return &CheckoutService{
		client:      client,
		customerSvc: customerSvc,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateCheckoutSessionRequest is the input for creating a checkout session
type CreateCheckoutSessionRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Plan       string `json:"plan" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url" binding:"required"`
}

// CheckoutSessionResponse carries the session handle back to the caller
type CheckoutSessionResponse struct {
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
	CustomerID string `json:"customer_id"`
	Plan       string `json:"plan"`
	PriceID    string `json:"price_id"`
}

// CreateCheckoutSession creates a subscription checkout session for one of
// the configured plans, ensuring the user is linked to a Stripe customer
// first so the webhook events correlate back.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	priceID, ok := s.cfg.PriceIDForPlan(req.Plan)
	if !ok {
		return nil, ierr.NewError("unknown plan").
			WithHintf("No price configured for plan %s", req.Plan).
			Mark(ierr.ErrValidation)
	}

	customerID, err := s.customerSvc.EnsureCustomer(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String("subscription"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata: map[string]string{
			"paysync_user_id": req.UserID,
			"plan":            req.Plan,
		},
	}

	session, err := s.client.API().V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		s.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"user_id", req.UserID,
			"plan", req.Plan)
		return nil, ierr.NewError("failed to create checkout session").
			WithHint("Unable to create Stripe checkout session").
			Mark(ierr.ErrSystem)
	}

	s.logger.Infow("created checkout session",
		"session_id", session.ID,
		"user_id", req.UserID,
		"plan", req.Plan,
		"price_id", priceID)

	return &CheckoutSessionResponse{
		SessionID:  session.ID,
		SessionURL: session.URL,
		CustomerID: customerID,
		Plan:       req.Plan,
		PriceID:    priceID,
	}, nil
}
