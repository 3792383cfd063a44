package types

import (
	ierr "github.com/paysync/paysync/internal/errors"
)

// SubscriptionStatus is the local status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCanceled, SubscriptionStatusUnpaid, SubscriptionStatusIncomplete:
		return nil
	default:
		return ierr.NewError("invalid subscription status").
			WithHintf("Subscription status %s is not supported", s).
			Mark(ierr.ErrValidation)
	}
}

// SubscriptionStatusFromStripe maps a Stripe-reported subscription status to
// the local status. The mapping is total: an unrecognized status maps to
// active rather than failing, which keeps processing resilient to new
// provider statuses at the cost of leniency. Kept in one place so the
// default is visible and testable.
func SubscriptionStatusFromStripe(status string) SubscriptionStatus {
	switch status {
	case "trialing":
		return SubscriptionStatusTrialing
	case "active":
		return SubscriptionStatusActive
	case "past_due":
		return SubscriptionStatusPastDue
	case "canceled":
		return SubscriptionStatusCanceled
	case "unpaid":
		return SubscriptionStatusUnpaid
	case "incomplete", "incomplete_expired":
		return SubscriptionStatusIncomplete
	default:
		return SubscriptionStatusActive
	}
}

// IsTerminal reports whether the status admits no further transitions
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled
}
