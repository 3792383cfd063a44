package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/paysync/paysync/internal/domain/subscription"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// handleSubscriptionCreated inserts the local record for a new provider
// subscription. Redelivered created events for a known subscription are
// acknowledged without touching the existing record.
func (h *Handler) handleSubscriptionCreated(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	if stripeSub.Customer == nil {
		h.logger.Warnw("subscription event has no customer, skipping",
			"event_id", event.ID,
			"stripe_subscription_id", stripeSub.ID)
		return nil
	}

	u, err := h.customerSvc.ResolveUser(ctx, stripeSub.Customer.ID)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warnw("no user correlated to Stripe customer, skipping subscription",
			"event_id", event.ID,
			"stripe_customer_id", stripeSub.Customer.ID,
			"stripe_subscription_id", stripeSub.ID)
		return nil
	}

	existing, err := h.subRepo.GetByExternalSubscriptionID(ctx, stripeSub.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		h.logger.Infow("subscription already exists, skipping create",
			"stripe_subscription_id", stripeSub.ID,
			"subscription_id", existing.ID)
		return nil
	}

	local := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
		UserID:                 u.ID,
		ExternalSubscriptionID: stripeSub.ID,
		BaseModel:              types.GetDefaultBaseModel(),
	}
	h.applySubscriptionFields(local, &stripeSub)

	if err := local.Validate(); err != nil {
		return err
	}

	if err := h.subRepo.Create(ctx, local); err != nil {
		return err
	}

	h.logger.Infow("created subscription from webhook",
		"subscription_id", local.ID,
		"user_id", u.ID,
		"stripe_subscription_id", stripeSub.ID,
		"status", local.SubscriptionStatus)

	return nil
}

// handleSubscriptionUpdated overwrites the local record with the provider's
// view. A record that was never created locally is tolerated with a warning,
// and a canceled subscription is terminal: late updates cannot revive it.
func (h *Handler) handleSubscriptionUpdated(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	existing, err := h.subRepo.GetByExternalSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			h.logger.Warnw("update for unknown subscription, skipping",
				"event_id", event.ID,
				"stripe_subscription_id", stripeSub.ID)
			return nil
		}
		return err
	}

	if existing.IsCanceled() {
		h.logger.Warnw("update for canceled subscription, skipping",
			"event_id", event.ID,
			"subscription_id", existing.ID,
			"stripe_subscription_id", stripeSub.ID)
		return nil
	}

	previousStatus := existing.SubscriptionStatus
	h.applySubscriptionFields(existing, &stripeSub)

	// Recovery from past_due clears the failure streak.
	if previousStatus == types.SubscriptionStatusPastDue &&
		existing.SubscriptionStatus == types.SubscriptionStatusActive {
		existing.FailedPaymentCount = 0
	}

	if existing.SubscriptionStatus == types.SubscriptionStatusCanceled && existing.EndedAt == nil {
		now := time.Now().UTC()
		if existing.CanceledAt == nil {
			existing.CanceledAt = &now
		}
		existing.EndedAt = &now
	}

	if err := existing.Validate(); err != nil {
		return err
	}

	if err := h.subRepo.Update(ctx, existing); err != nil {
		return err
	}

	h.logger.Infow("updated subscription from webhook",
		"subscription_id", existing.ID,
		"stripe_subscription_id", stripeSub.ID,
		"previous_status", previousStatus,
		"status", existing.SubscriptionStatus)

	return nil
}

// handleSubscriptionDeleted forces the terminal canceled state regardless of
// what status the payload reports. Cancellation timestamps are the
// processing time, not resolved payload fields.
func (h *Handler) handleSubscriptionDeleted(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	existing, err := h.subRepo.GetByExternalSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			h.logger.Warnw("deletion for unknown subscription, skipping",
				"event_id", event.ID,
				"stripe_subscription_id", stripeSub.ID)
			return nil
		}
		return err
	}

	if existing.IsCanceled() {
		h.logger.Infow("subscription already canceled, skipping deletion",
			"subscription_id", existing.ID,
			"stripe_subscription_id", stripeSub.ID)
		return nil
	}

	now := time.Now().UTC()
	existing.SubscriptionStatus = types.SubscriptionStatusCanceled
	existing.CanceledAt = &now
	existing.EndedAt = &now

	if err := h.subRepo.Update(ctx, existing); err != nil {
		return err
	}

	h.logger.Infow("canceled subscription from webhook",
		"subscription_id", existing.ID,
		"stripe_subscription_id", stripeSub.ID)

	return nil
}

func (h *Handler) handleSubscriptionTrialWillEnd(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	h.logger.Infow("subscription trial ending soon",
		"event_id", event.ID,
		"stripe_subscription_id", stripeSub.ID,
		"trial_end", resolveEpoch(stripeSub.TrialEnd))

	return nil
}

// applySubscriptionFields overwrites the provider-owned fields of the local
// record from the Stripe payload: status, plan, amounts, billing periods,
// trial window and cancellation timestamps.
func (h *Handler) applySubscriptionFields(local *subscription.Subscription, stripeSub *stripeapi.Subscription) {
	local.SubscriptionStatus = types.SubscriptionStatusFromStripe(string(stripeSub.Status))

	var firstItem *stripeapi.SubscriptionItem
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 {
		firstItem = stripeSub.Items.Data[0]
	}

	if firstItem != nil && firstItem.Price != nil {
		price := firstItem.Price
		local.PlanID = price.ID
		local.Amount = decimal.NewFromInt(price.UnitAmount).Div(decimal.NewFromInt(100))
		local.Currency = strings.ToUpper(string(price.Currency))
		if price.Recurring != nil {
			local.Interval = string(price.Recurring.Interval)
			local.IntervalCount = price.Recurring.IntervalCount
		}

		planName := h.planNameForPrice(price.ID)
		if planName == "" {
			planName = price.Nickname
		}
		if planName == "" {
			planName = price.ID
		}
		local.PlanName = planName
	}

	// Period start falls back from the item-level period to the billing
	// cycle anchor to the subscription creation time. Period end has no
	// safe fallback.
	var periodStart, periodEnd *time.Time
	if firstItem != nil {
		periodStart = resolveEpochLogged(h.logger, "current_period_start",
			firstItem.CurrentPeriodStart, stripeSub.BillingCycleAnchor, stripeSub.Created)
		periodEnd = resolveEpochLogged(h.logger, "current_period_end",
			firstItem.CurrentPeriodEnd)
	} else {
		periodStart = resolveEpochLogged(h.logger, "current_period_start",
			stripeSub.BillingCycleAnchor, stripeSub.Created)
	}
	if periodStart != nil {
		local.CurrentPeriodStart = periodStart
	}
	if periodEnd != nil {
		local.CurrentPeriodEnd = periodEnd
	}

	// The trial window only exists as a pair.
	trialStart := resolveEpoch(stripeSub.TrialStart)
	trialEnd := resolveEpoch(stripeSub.TrialEnd)
	if trialStart != nil && trialEnd != nil {
		local.TrialStart = trialStart
		local.TrialEnd = trialEnd
	}

	if canceledAt := resolveEpoch(stripeSub.CanceledAt); canceledAt != nil {
		local.CanceledAt = canceledAt
	}
	if endedAt := resolveEpoch(stripeSub.EndedAt); endedAt != nil {
		local.EndedAt = endedAt
	}

	if len(stripeSub.Metadata) > 0 {
		local.Metadata = types.Metadata(stripeSub.Metadata)
	}
}
