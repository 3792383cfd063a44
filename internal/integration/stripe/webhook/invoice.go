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

// invoiceRefs picks the reference ids out of the raw invoice payload. The
// subscription reference moved under parent.subscription_details in newer
// Stripe API versions, so both shapes are read.
type invoiceRefs struct {
	Subscription string `json:"subscription"`
	Charge       string `json:"charge"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (r invoiceRefs) subscriptionID() string {
	if r.Subscription != "" {
		return r.Subscription
	}
	return r.Parent.SubscriptionDetails.Subscription
}

func (h *Handler) handleInvoicePaymentSucceeded(ctx context.Context, event *stripeapi.Event) error {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}
	var refs invoiceRefs
	if err := json.Unmarshal(event.Data.Raw, &refs); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	if invoice.Customer == nil {
		h.logger.Warnw("invoice has no customer, skipping",
			"event_id", event.ID,
			"invoice_id", invoice.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, invoice.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping invoice",
			"event_id", event.ID,
			"stripe_customer_id", invoice.Customer.ID,
			"invoice_id", invoice.ID)
		return nil
	}

	existing, err := h.recorder.GetByReference(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Redelivery or a retry after a recorded failure; correct in place.
		if err := h.recorder.UpdateStatusByReference(ctx, invoice.ID, types.TransactionStatusCompleted, nil); err != nil {
			return err
		}
	} else {
		amount := decimal.NewFromInt(invoice.AmountPaid).Div(decimal.NewFromInt(100))
		fee, net := h.chargeSettlement(ctx, refs.Charge, event.ID)

		if _, err := h.recorder.Record(ctx, service.RecordTransactionParams{
			UserID:              u.ID,
			ExternalReferenceID: invoice.ID,
			Type:                types.TransactionTypeSubscription,
			Amount:              amount,
			Currency:            string(invoice.Currency),
			Status:              types.TransactionStatusCompleted,
			Description:         "Subscription payment",
			Fee:                 fee,
			Net:                 net,
			ProcessedAt:         resolveEpoch(event.Created),
		}); err != nil {
			return err
		}
	}

	// A paid invoice never touches subscription state. Recovery from
	// past_due is owned by the customer.subscription.updated handler; an
	// out-of-order paid invoice must not clear a real failure streak.
	return nil
}

func (h *Handler) handleInvoicePaymentFailed(ctx context.Context, event *stripeapi.Event) error {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}
	var refs invoiceRefs
	if err := json.Unmarshal(event.Data.Raw, &refs); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	if invoice.Customer == nil {
		h.logger.Warnw("invoice has no customer, skipping",
			"event_id", event.ID,
			"invoice_id", invoice.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, invoice.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping invoice",
			"event_id", event.ID,
			"stripe_customer_id", invoice.Customer.ID,
			"invoice_id", invoice.ID)
		return nil
	}

	failureReason := lo.ToPtr("invoice payment failed")

	existing, err := h.recorder.GetByReference(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := h.recorder.UpdateStatusByReference(ctx, invoice.ID, types.TransactionStatusFailed, failureReason); err != nil {
			return err
		}
	} else {
		amount := decimal.NewFromInt(invoice.AmountDue).Div(decimal.NewFromInt(100))
		if _, err := h.recorder.Record(ctx, service.RecordTransactionParams{
			UserID:              u.ID,
			ExternalReferenceID: invoice.ID,
			Type:                types.TransactionTypeSubscription,
			Amount:              amount,
			Currency:            string(invoice.Currency),
			Status:              types.TransactionStatusFailed,
			Description:         "Subscription payment failed",
			FailureReason:       failureReason,
			ProcessedAt:         resolveEpoch(event.Created),
		}); err != nil {
			return err
		}
	}

	subID := refs.subscriptionID()
	if subID == "" {
		return nil
	}

	// Every failed payment counts, and the first one already pushes the
	// subscription to past_due rather than waiting for the provider. The
	// increment is a single keyed write in the store so concurrent
	// deliveries for distinct invoices cannot lose a count. Unknown and
	// canceled subscriptions both fall out as zero rows.
	failedCount, err := h.subRepo.MarkPastDueOnFailedPayment(ctx, subID)
	if err != nil {
		return err
	}
	if failedCount == 0 {
		h.logger.Warnw("failed invoice references no updatable subscription, skipping",
			"event_id", event.ID,
			"stripe_subscription_id", subID)
		return nil
	}

	h.logger.Infow("subscription marked past due after failed invoice",
		"stripe_subscription_id", subID,
		"failed_payment_count", failedCount)

	return nil
}

func (h *Handler) handleInvoiceUpcoming(ctx context.Context, event *stripeapi.Event) error {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	h.logger.Infow("upcoming invoice",
		"event_id", event.ID,
		"stripe_customer_id", func() string {
			if invoice.Customer != nil {
				return invoice.Customer.ID
			}
			return ""
		}(),
		"amount_due", invoice.AmountDue,
		"currency", invoice.Currency)

	return nil
}

// chargeSettlement fetches fee and net (major units) from the charge's
// balance transaction. Any failure degrades to the recorder's fallback
// rather than failing the event.
func (h *Handler) chargeSettlement(ctx context.Context, chargeID, eventID string) (*decimal.Decimal, *decimal.Decimal) {
	if chargeID == "" {
		return nil, nil
	}

	bt, err := h.client.GetChargeSettlement(ctx, chargeID)
	if err != nil {
		h.logger.Warnw("failed to fetch settlement detail, using fallback",
			"error", err,
			"event_id", eventID,
			"charge_id", chargeID)
		return nil, nil
	}
	if bt == nil {
		return nil, nil
	}

	return h.settlementAmounts(bt)
}

func (h *Handler) settlementAmounts(bt *stripeapi.BalanceTransaction) (*decimal.Decimal, *decimal.Decimal) {
	fee := decimal.NewFromInt(bt.Fee).Div(decimal.NewFromInt(100))
	net := decimal.NewFromInt(bt.Net).Div(decimal.NewFromInt(100))
	return &fee, &net
}
