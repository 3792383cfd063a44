package webhookevent

import (
	"encoding/json"
	"time"

	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
)

// WebhookEvent is one row of the idempotency ledger: a durable record of a
// processing attempt for a single provider-assigned event id. Rows are never
// deleted; at most one row exists per external event id.
type WebhookEvent struct {
	// Unique identifier for this ledger row
	ID string `db:"id" json:"id"`
	// The provider-assigned event identifier used for duplicate suppression
	ExternalEventID string `db:"external_event_id" json:"external_event_id"`
	// The event type tag as reported by the provider
	EventType string `db:"event_type" json:"event_type"`
	// The raw event payload as received (opaque, kept for audit/replay)
	RawPayload json.RawMessage `db:"raw_payload" json:"raw_payload"`
	// Current processing status (pending, completed, failed, retrying)
	ProcessingStatus types.ProcessingStatus `db:"processing_status" json:"processing_status"`
	// Number of admitted redeliveries after a failure
	RetryCount int `db:"retry_count" json:"retry_count"`
	// When processing completed successfully (optional)
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	// Why the last attempt failed (optional)
	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`

	types.BaseModel
}

// New builds a pending ledger row for a first-seen event
func New(externalEventID, eventType string, payload json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		ID:               types.GenerateUUIDWithPrefix(types.UUIDPrefixWebhookEvent),
		ExternalEventID:  externalEventID,
		EventType:        eventType,
		RawPayload:       payload,
		ProcessingStatus: types.ProcessingStatusPending,
		BaseModel:        types.GetDefaultBaseModel(),
	}
}

func (e *WebhookEvent) Validate() error {
	if e.ExternalEventID == "" {
		return ierr.NewError("invalid external event id").
			WithHint("External event id is required").
			Mark(ierr.ErrValidation)
	}
	if e.EventType == "" {
		return ierr.NewError("invalid event type").
			WithHint("Event type is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the webhook event ledger
func (e *WebhookEvent) TableName() string {
	return "webhook_events"
}
