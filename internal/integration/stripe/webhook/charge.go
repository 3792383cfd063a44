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

// handleChargeRefunded appends a refund record for the refunded amount and
// marks the original payment record refunded when it can be located by the
// charge's payment intent.
func (h *Handler) handleChargeRefunded(ctx context.Context, event *stripeapi.Event) error {
	var charge stripeapi.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid charge data in webhook").
			Mark(ierr.ErrValidation)
	}

	if charge.Customer == nil {
		h.logger.Warnw("refunded charge has no customer, skipping",
			"event_id", event.ID,
			"charge_id", charge.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, charge.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping refund",
			"event_id", event.ID,
			"stripe_customer_id", charge.Customer.ID,
			"charge_id", charge.ID)
		return nil
	}

	existing, err := h.recorder.GetByReference(ctx, charge.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		amount := decimal.NewFromInt(charge.AmountRefunded).Div(decimal.NewFromInt(100))

		if _, err := h.recorder.Record(ctx, service.RecordTransactionParams{
			UserID:              u.ID,
			ExternalReferenceID: charge.ID,
			Type:                types.TransactionTypeRefund,
			Amount:              amount,
			Currency:            string(charge.Currency),
			Status:              types.TransactionStatusRefunded,
			Description:         "Charge refunded",
			Metadata:            types.Metadata(charge.Metadata),
			ProcessedAt:         resolveEpoch(event.Created),
		}); err != nil {
			return err
		}
	}

	if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
		return h.recorder.UpdateStatusByReference(ctx, charge.PaymentIntent.ID,
			types.TransactionStatusRefunded, lo.ToPtr("charge refunded"))
	}

	return nil
}
