package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paysync/paysync/internal/domain/subscription"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id,
			user_id,
			external_subscription_id,
			subscription_status,
			plan_id,
			plan_name,
			amount,
			currency,
			interval,
			interval_count,
			current_period_start,
			current_period_end,
			trial_start,
			trial_end,
			failed_payment_count,
			canceled_at,
			ended_at,
			metadata,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:external_subscription_id,
			:subscription_status,
			:plan_id,
			:plan_name,
			:amount,
			:currency,
			:interval,
			:interval_count,
			:current_period_start,
			:current_period_end,
			:trial_start,
			:trial_end,
			:failed_payment_count,
			:canceled_at,
			:ended_at,
			:metadata,
			:status,
			:created_at,
			:updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = $1`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No subscription with id %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByExternalSubscriptionID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE external_subscription_id = $1`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No subscription with external id %s", externalID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription by external id").
			Mark(ierr.ErrDatabase)
	}

	return &sub, nil
}

// Update overwrites the mutable fields of the row matched by the external
// subscription id. The single-statement keyed write keeps concurrent
// handler invocations from interleaving partial updates.
func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE subscriptions
		SET
			subscription_status = :subscription_status,
			plan_id = :plan_id,
			plan_name = :plan_name,
			amount = :amount,
			currency = :currency,
			interval = :interval,
			interval_count = :interval_count,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			trial_start = :trial_start,
			trial_end = :trial_end,
			failed_payment_count = :failed_payment_count,
			canceled_at = :canceled_at,
			ended_at = :ended_at,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE external_subscription_id = :external_subscription_id
	`

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// MarkPastDueOnFailedPayment is the failed-invoice side effect as one atomic
// statement. Incrementing in SQL rather than read-modify-write keeps
// concurrent deliveries for the same subscription from losing a count, and
// the status guard makes a canceled subscription a zero-row no-op.
func (r *subscriptionRepository) MarkPastDueOnFailedPayment(ctx context.Context, externalID string) (int, error) {
	query := `
		UPDATE subscriptions
		SET
			failed_payment_count = failed_payment_count + 1,
			subscription_status = $2,
			updated_at = $3
		WHERE external_subscription_id = $1
		AND subscription_status <> $4
		RETURNING failed_payment_count
	`

	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query,
		externalID,
		types.SubscriptionStatusPastDue,
		time.Now().UTC(),
		types.SubscriptionStatusCanceled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, ierr.WithError(err).
			WithHint("Failed to record failed payment on subscription").
			Mark(ierr.ErrDatabase)
	}

	return count, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE 1=1`
	params := map[string]interface{}{
		"limit":  50,
		"offset": 0,
	}

	if filter != nil {
		if filter.UserID != "" {
			query += " AND user_id = :user_id"
			params["user_id"] = filter.UserID
		}
		if filter.Status != "" {
			query += " AND subscription_status = :subscription_status"
			params["subscription_status"] = filter.Status
		}
		if filter.Limit > 0 {
			params["limit"] = filter.Limit
		}
		if filter.Offset > 0 {
			params["offset"] = filter.Offset
		}
	}

	query += " ORDER BY created_at DESC LIMIT :limit OFFSET :offset"

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subscriptions []*subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.StructScan(&sub); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subscriptions = append(subscriptions, &sub)
	}

	return subscriptions, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *subscription.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM subscriptions WHERE 1=1`
	params := map[string]interface{}{}

	if filter != nil {
		if filter.UserID != "" {
			query += " AND user_id = :user_id"
			params["user_id"] = filter.UserID
		}
		if filter.Status != "" {
			query += " AND subscription_status = :subscription_status"
			params["subscription_status"] = filter.Status
		}
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	count := 0
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to scan subscription count").
				Mark(ierr.ErrDatabase)
		}
	}

	return count, nil
}
