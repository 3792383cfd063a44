package webhook

import (
	"context"
	"encoding/json"

	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/service"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// handleCheckoutSessionCompleted records the payment made through a checkout
// session. Subscription bookkeeping is not done here; the provider emits
// customer.subscription.created alongside and that handler owns it.
func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, event *stripeapi.Event) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}

	if session.Customer == nil {
		h.logger.Warnw("checkout session has no customer, skipping",
			"event_id", event.ID,
			"session_id", session.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, session.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping checkout session",
			"event_id", event.ID,
			"stripe_customer_id", session.Customer.ID,
			"session_id", session.ID)
		return nil
	}

	// Prefer the payment intent id as the reference so later payment_intent
	// events correct the same record.
	reference := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		reference = session.PaymentIntent.ID
	}

	existing, err := h.recorder.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	if existing != nil {
		h.logger.Infow("checkout session already recorded, skipping",
			"session_id", session.ID,
			"external_reference_id", reference)
		return nil
	}

	amount := decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100))

	_, err = h.recorder.Record(ctx, service.RecordTransactionParams{
		UserID:              u.ID,
		ExternalReferenceID: reference,
		Type:                types.TransactionTypePayment,
		Amount:              amount,
		Currency:            string(session.Currency),
		Status:              types.TransactionStatusCompleted,
		Description:         "Checkout session completed",
		Metadata:            types.Metadata(session.Metadata),
		ProcessedAt:         resolveEpoch(event.Created),
	})
	return err
}
