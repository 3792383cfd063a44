package subscription

import (
	"time"

	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is the authoritative local record for one provider
// subscription. It is created on the provider's created event, mutated in
// place by update/delete events matched on the external id, and never
// deleted; cancellation is a terminal status with ended_at set. A user may
// hold several concurrent subscriptions.
type Subscription struct {
	// Unique identifier for this subscription record
	ID string `db:"id" json:"id"`
	// The local user this subscription belongs to
	UserID string `db:"user_id" json:"user_id"`
	// The provider-assigned subscription id (unique)
	ExternalSubscriptionID string `db:"external_subscription_id" json:"external_subscription_id"`
	// Current state in the local state machine
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	// The provider price/plan identifier
	PlanID string `db:"plan_id" json:"plan_id"`
	// Human-readable plan name
	PlanName string `db:"plan_name" json:"plan_name"`
	// Recurring amount in the major currency unit
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// Three-letter ISO currency code, normalized upper-case
	Currency string `db:"currency" json:"currency"`
	// Billing interval (month, year, ...)
	Interval string `db:"interval" json:"interval"`
	// Number of intervals per billing period
	IntervalCount int64 `db:"interval_count" json:"interval_count"`
	// Current billing period boundaries; may be temporarily absent when the
	// provider payload carried no resolvable period fields
	CurrentPeriodStart *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	// Trial window; set together or not at all
	TrialStart *time.Time `db:"trial_start" json:"trial_start,omitempty"`
	TrialEnd   *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	// Consecutive failed payment count; reset on recovery to active
	FailedPaymentCount int `db:"failed_payment_count" json:"failed_payment_count"`
	// Cancellation bookkeeping
	CanceledAt *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	EndedAt    *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	// Additional custom key-value pairs (optional)
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("invalid user id").
			WithHint("User id is required").
			Mark(ierr.ErrValidation)
	}
	if s.ExternalSubscriptionID == "" {
		return ierr.NewError("invalid external subscription id").
			WithHint("External subscription id is required").
			Mark(ierr.ErrValidation)
	}
	if s.SubscriptionStatus == "" {
		return ierr.NewError("invalid subscription status").
			WithHint("Subscription status is required").
			Mark(ierr.ErrValidation)
	}
	if s.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	if (s.TrialStart == nil) != (s.TrialEnd == nil) {
		return ierr.NewError("invalid trial window").
			WithHint("Trial start and end must be set together").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCanceled reports whether the subscription reached its terminal state
func (s *Subscription) IsCanceled() bool {
	return s.SubscriptionStatus.IsTerminal()
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}
