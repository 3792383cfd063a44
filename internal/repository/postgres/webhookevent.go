package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paysync/paysync/internal/domain/webhookevent"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/internal/types"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

// BeginProcessing admits an event id using atomic conditional writes only,
// so concurrent deliveries across process instances serialize in the store
// rather than through in-process locks.
func (r *webhookEventRepository) BeginProcessing(ctx context.Context, event *webhookevent.WebhookEvent) (webhookevent.AdmissionOutcome, error) {
	insert := `
		INSERT INTO webhook_events (
			id,
			external_event_id,
			event_type,
			raw_payload,
			processing_status,
			retry_count,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:external_event_id,
			:event_type,
			:raw_payload,
			:processing_status,
			:retry_count,
			:status,
			:created_at,
			:updated_at
		)
		ON CONFLICT (external_event_id) DO NOTHING
	`

	res, err := r.db.NamedExecContext(ctx, insert, event)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to insert webhook event ledger row").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 1 {
		return webhookevent.AdmissionAdmitted, nil
	}

	// A row already exists. Re-admit atomically only if the previous
	// attempt failed.
	retry := `
		UPDATE webhook_events
		SET
			processing_status = :retrying,
			retry_count = retry_count + 1,
			error_message = NULL,
			updated_at = :updated_at
		WHERE
			external_event_id = :external_event_id AND
			processing_status = :failed
	`

	res, err = r.db.NamedExecContext(ctx, retry, map[string]interface{}{
		"retrying":          types.ProcessingStatusRetrying,
		"failed":            types.ProcessingStatusFailed,
		"external_event_id": event.ExternalEventID,
		"updated_at":        time.Now().UTC(),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to re-admit failed webhook event").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 1 {
		return webhookevent.AdmissionAdmitted, nil
	}

	existing, err := r.GetByExternalEventID(ctx, event.ExternalEventID)
	if err != nil {
		return "", err
	}

	if existing.ProcessingStatus == types.ProcessingStatusCompleted {
		return webhookevent.AdmissionAlreadyProcessed, nil
	}
	return webhookevent.AdmissionInFlight, nil
}

func (r *webhookEventRepository) MarkCompleted(ctx context.Context, externalEventID string) error {
	query := `
		UPDATE webhook_events
		SET
			processing_status = :completed,
			processed_at = :processed_at,
			updated_at = :updated_at
		WHERE external_event_id = :external_event_id
	`

	now := time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"completed":         types.ProcessingStatusCompleted,
		"processed_at":      now,
		"updated_at":        now,
		"external_event_id": externalEventID,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark webhook event completed").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) MarkFailed(ctx context.Context, externalEventID string, reason string) error {
	query := `
		UPDATE webhook_events
		SET
			processing_status = :failed,
			error_message = :error_message,
			updated_at = :updated_at
		WHERE external_event_id = :external_event_id
	`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"failed":            types.ProcessingStatusFailed,
		"error_message":     reason,
		"updated_at":        time.Now().UTC(),
		"external_event_id": externalEventID,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark webhook event failed").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) GetByExternalEventID(ctx context.Context, externalEventID string) (*webhookevent.WebhookEvent, error) {
	query := `SELECT * FROM webhook_events WHERE external_event_id = $1`

	var event webhookevent.WebhookEvent
	err := r.db.GetQuerier(ctx).GetContext(ctx, &event, query, externalEventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("webhook event not found").
				WithHintf("No ledger row for event %s", externalEventID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get webhook event").
			Mark(ierr.ErrDatabase)
	}

	return &event, nil
}
