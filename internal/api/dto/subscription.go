package dto

import (
	"time"

	"github.com/paysync/paysync/internal/domain/subscription"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// ListSubscriptionsRequest represents the query parameters for listing
// subscriptions of a user
type ListSubscriptionsRequest struct {
	UserID string `form:"user_id" binding:"required"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (r *ListSubscriptionsRequest) Validate() error {
	if r.Status != "" {
		if err := types.SubscriptionStatus(r.Status).Validate(); err != nil {
			return err
		}
	}
	if r.Limit < 0 || r.Offset < 0 {
		return ierr.NewError("invalid pagination").
			WithHint("Limit and offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToFilter converts the request into a repository filter with defaults applied
func (r *ListSubscriptionsRequest) ToFilter() *subscription.Filter {
	limit := r.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return &subscription.Filter{
		UserID: r.UserID,
		Status: types.SubscriptionStatus(r.Status),
		Limit:  limit,
		Offset: r.Offset,
	}
}

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	ID                     string                   `json:"id"`
	UserID                 string                   `json:"user_id"`
	ExternalSubscriptionID string                   `json:"external_subscription_id"`
	SubscriptionStatus     types.SubscriptionStatus `json:"subscription_status"`
	PlanID                 string                   `json:"plan_id"`
	PlanName               string                   `json:"plan_name"`
	Amount                 decimal.Decimal          `json:"amount"`
	Currency               string                   `json:"currency"`
	Interval               string                   `json:"interval"`
	IntervalCount          int64                    `json:"interval_count"`
	CurrentPeriodStart     *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time               `json:"current_period_end,omitempty"`
	TrialStart             *time.Time               `json:"trial_start,omitempty"`
	TrialEnd               *time.Time               `json:"trial_end,omitempty"`
	FailedPaymentCount     int                      `json:"failed_payment_count"`
	CanceledAt             *time.Time               `json:"canceled_at,omitempty"`
	EndedAt                *time.Time               `json:"ended_at,omitempty"`
	Metadata               types.Metadata           `json:"metadata,omitempty"`
	CreatedAt              time.Time                `json:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at"`
}

// ListSubscriptionsResponse represents a paginated subscription listing
type ListSubscriptionsResponse struct {
	Items      []*SubscriptionResponse  `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// NewSubscriptionResponse creates a new subscription response from a subscription
func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                     s.ID,
		UserID:                 s.UserID,
		ExternalSubscriptionID: s.ExternalSubscriptionID,
		SubscriptionStatus:     s.SubscriptionStatus,
		PlanID:                 s.PlanID,
		PlanName:               s.PlanName,
		Amount:                 s.Amount,
		Currency:               s.Currency,
		Interval:               s.Interval,
		IntervalCount:          s.IntervalCount,
		CurrentPeriodStart:     s.CurrentPeriodStart,
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		TrialStart:             s.TrialStart,
		TrialEnd:               s.TrialEnd,
		FailedPaymentCount:     s.FailedPaymentCount,
		CanceledAt:             s.CanceledAt,
		EndedAt:                s.EndedAt,
		Metadata:               s.Metadata,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}
