package webhook

import (
	"context"
	"encoding/json"

	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/service"
	"github.com/paysync/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v82"
)

func (h *Handler) handlePaymentIntentSucceeded(ctx context.Context, event *stripeapi.Event) error {
	var paymentIntent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment intent data in webhook").
			Mark(ierr.ErrValidation)
	}

	if paymentIntent.Customer == nil {
		h.logger.Warnw("payment intent has no customer, skipping",
			"event_id", event.ID,
			"payment_intent_id", paymentIntent.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, paymentIntent.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping payment intent",
			"event_id", event.ID,
			"stripe_customer_id", paymentIntent.Customer.ID,
			"payment_intent_id", paymentIntent.ID)
		return nil
	}

	existing, err := h.recorder.GetByReference(ctx, paymentIntent.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.recorder.UpdateStatusByReference(ctx, paymentIntent.ID, types.TransactionStatusCompleted, nil)
	}

	minor := paymentIntent.AmountReceived
	if minor == 0 {
		minor = paymentIntent.Amount
	}
	amount := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))

	fee, net := h.paymentIntentSettlement(ctx, paymentIntent.ID, event.ID)

	_, err = h.recorder.Record(ctx, service.RecordTransactionParams{
		UserID:              u.ID,
		ExternalReferenceID: paymentIntent.ID,
		Type:                types.TransactionTypePayment,
		Amount:              amount,
		Currency:            string(paymentIntent.Currency),
		Status:              types.TransactionStatusCompleted,
		Description:         "Payment",
		Metadata:            types.Metadata(paymentIntent.Metadata),
		Fee:                 fee,
		Net:                 net,
		ProcessedAt:         resolveEpoch(event.Created),
	})
	return err
}

func (h *Handler) handlePaymentIntentCreated(ctx context.Context, event *stripeapi.Event) error {
	var paymentIntent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment intent data in webhook").
			Mark(ierr.ErrValidation)
	}

	h.logger.Infow("payment intent created",
		"event_id", event.ID,
		"payment_intent_id", paymentIntent.ID,
		"amount", paymentIntent.Amount,
		"currency", paymentIntent.Currency)

	return nil
}

func (h *Handler) handlePaymentIntentFailed(ctx context.Context, event *stripeapi.Event) error {
	var paymentIntent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment intent data in webhook").
			Mark(ierr.ErrValidation)
	}

	reason := "payment failed"
	if paymentIntent.LastPaymentError != nil && paymentIntent.LastPaymentError.Msg != "" {
		reason = paymentIntent.LastPaymentError.Msg
	}

	existing, err := h.recorder.GetByReference(ctx, paymentIntent.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.recorder.UpdateStatusByReference(ctx, paymentIntent.ID, types.TransactionStatusFailed, lo.ToPtr(reason))
	}

	if paymentIntent.Customer == nil {
		h.logger.Warnw("failed payment intent has no customer, skipping",
			"event_id", event.ID,
			"payment_intent_id", paymentIntent.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, paymentIntent.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping payment intent",
			"event_id", event.ID,
			"stripe_customer_id", paymentIntent.Customer.ID,
			"payment_intent_id", paymentIntent.ID)
		return nil
	}

	amount := decimal.NewFromInt(paymentIntent.Amount).Div(decimal.NewFromInt(100))

	_, err = h.recorder.Record(ctx, service.RecordTransactionParams{
		UserID:              u.ID,
		ExternalReferenceID: paymentIntent.ID,
		Type:                types.TransactionTypePayment,
		Amount:              amount,
		Currency:            string(paymentIntent.Currency),
		Status:              types.TransactionStatusFailed,
		Description:         "Payment failed",
		Metadata:            types.Metadata(paymentIntent.Metadata),
		FailureReason:       lo.ToPtr(reason),
		ProcessedAt:         resolveEpoch(event.Created),
	})
	return err
}

// handlePaymentIntentCanceled issues a keyed status correction only; a
// cancellation for a payment that was never recorded is a warned no-op
// inside the recorder.
func (h *Handler) handlePaymentIntentCanceled(ctx context.Context, event *stripeapi.Event) error {
	var paymentIntent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment intent data in webhook").
			Mark(ierr.ErrValidation)
	}

	reason := "payment was canceled"
	if paymentIntent.CancellationReason != "" {
		reason = string(paymentIntent.CancellationReason)
	}

	return h.recorder.UpdateStatusByReference(ctx, paymentIntent.ID, types.TransactionStatusCancelled, lo.ToPtr(reason))
}

// handlePaymentMethodAttached records nothing; it warms the customer
// correlation cache and leaves an audit log line.
func (h *Handler) handlePaymentMethodAttached(ctx context.Context, event *stripeapi.Event) error {
	var paymentMethod stripeapi.PaymentMethod
	if err := json.Unmarshal(event.Data.Raw, &paymentMethod); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment method data in webhook").
			Mark(ierr.ErrValidation)
	}

	customerID := ""
	if paymentMethod.Customer != nil {
		customerID = paymentMethod.Customer.ID
	}

	if customerID != "" {
		if _, err := h.customerSvc.ResolveUser(ctx, customerID); err != nil {
			return err
		}
	}

	fields := []interface{}{
		"event_id", event.ID,
		"payment_method_id", paymentMethod.ID,
		"stripe_customer_id", customerID,
		"type", paymentMethod.Type,
	}
	if paymentMethod.Card != nil {
		fields = append(fields,
			"card_brand", paymentMethod.Card.Brand,
			"card_last4", paymentMethod.Card.Last4)
	}
	h.logger.Infow("payment method attached", fields...)

	return nil
}

// paymentIntentSettlement fetches fee and net (major units) for a payment
// intent's latest charge. Any failure degrades to the recorder's fallback.
func (h *Handler) paymentIntentSettlement(ctx context.Context, paymentIntentID, eventID string) (*decimal.Decimal, *decimal.Decimal) {
	bt, err := h.client.GetPaymentIntentSettlement(ctx, paymentIntentID)
	if err != nil {
		h.logger.Warnw("failed to fetch settlement detail, using fallback",
			"error", err,
			"event_id", eventID,
			"payment_intent_id", paymentIntentID)
		return nil, nil
	}
	if bt == nil {
		return nil, nil
	}
	return h.settlementAmounts(bt)
}
