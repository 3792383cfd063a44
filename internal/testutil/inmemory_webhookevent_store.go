package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/paysync/paysync/internal/domain/webhookevent"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/samber/lo"
)

// InMemoryWebhookEventStore implements webhookevent.Repository with the same
// admission semantics as the Postgres ledger: one row per external event id,
// completed rows suppress redeliveries, failed rows are re-admitted as
// retrying, pending/retrying rows report in flight.
type InMemoryWebhookEventStore struct {
	mu    sync.Mutex
	byExt map[string]*webhookevent.WebhookEvent
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event ledger
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		byExt: make(map[string]*webhookevent.WebhookEvent),
	}
}

// Clear resets all stored data
func (m *InMemoryWebhookEventStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byExt = make(map[string]*webhookevent.WebhookEvent)
}

func (m *InMemoryWebhookEventStore) BeginProcessing(ctx context.Context, event *webhookevent.WebhookEvent) (webhookevent.AdmissionOutcome, error) {
	if event == nil {
		return "", ierr.NewError("webhook event cannot be nil").
			WithHint("Webhook event cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byExt[event.ExternalEventID]
	if !ok {
		m.byExt[event.ExternalEventID] = event
		return webhookevent.AdmissionAdmitted, nil
	}

	switch existing.ProcessingStatus {
	case types.ProcessingStatusCompleted:
		return webhookevent.AdmissionAlreadyProcessed, nil
	case types.ProcessingStatusFailed:
		existing.ProcessingStatus = types.ProcessingStatusRetrying
		existing.RetryCount++
		existing.ErrorMessage = nil
		existing.UpdatedAt = time.Now().UTC()
		return webhookevent.AdmissionAdmitted, nil
	default:
		return webhookevent.AdmissionInFlight, nil
	}
}

func (m *InMemoryWebhookEventStore) MarkCompleted(ctx context.Context, externalEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byExt[externalEventID]
	if !ok {
		return ierr.NewError("webhook event not found").
			WithHintf("No ledger row for event %s", externalEventID).
			Mark(ierr.ErrNotFound)
	}

	now := time.Now().UTC()
	existing.ProcessingStatus = types.ProcessingStatusCompleted
	existing.ProcessedAt = &now
	existing.ErrorMessage = nil
	existing.UpdatedAt = now
	return nil
}

func (m *InMemoryWebhookEventStore) MarkFailed(ctx context.Context, externalEventID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byExt[externalEventID]
	if !ok {
		return ierr.NewError("webhook event not found").
			WithHintf("No ledger row for event %s", externalEventID).
			Mark(ierr.ErrNotFound)
	}

	existing.ProcessingStatus = types.ProcessingStatusFailed
	existing.ErrorMessage = lo.ToPtr(reason)
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *InMemoryWebhookEventStore) GetByExternalEventID(ctx context.Context, externalEventID string) (*webhookevent.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byExt[externalEventID]
	if !ok {
		return nil, ierr.NewError("webhook event not found").
			WithHintf("No ledger row for event %s", externalEventID).
			Mark(ierr.ErrNotFound)
	}
	return existing, nil
}
