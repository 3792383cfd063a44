package webhookevent

import (
	"context"
)

// AdmissionOutcome is the result of attempting to admit an event id for
// processing. Admission is decided atomically in the durable store so that
// concurrent deliveries of the same id across process instances are
// serialized.
type AdmissionOutcome string

const (
	// AdmissionAdmitted means the caller owns this delivery attempt
	AdmissionAdmitted AdmissionOutcome = "admitted"
	// AdmissionAlreadyProcessed means a completed row exists; skip silently
	AdmissionAlreadyProcessed AdmissionOutcome = "already_processed"
	// AdmissionInFlight means another delivery of the same id is being
	// processed right now; the provider should redeliver later
	AdmissionInFlight AdmissionOutcome = "in_flight"
)

// Repository defines the persistence interface for the idempotency ledger
type Repository interface {
	// BeginProcessing admits the event for processing or reports why it
	// cannot be admitted. First sight inserts a pending row; a failed row is
	// atomically moved to retrying with its retry count incremented.
	BeginProcessing(ctx context.Context, event *WebhookEvent) (AdmissionOutcome, error)
	// MarkCompleted transitions the row to completed and stamps processed_at
	MarkCompleted(ctx context.Context, externalEventID string) error
	// MarkFailed transitions the row to failed and records the reason
	MarkFailed(ctx context.Context, externalEventID string, reason string) error
	// GetByExternalEventID fetches a ledger row for inspection
	GetByExternalEventID(ctx context.Context, externalEventID string) (*WebhookEvent, error)
}
