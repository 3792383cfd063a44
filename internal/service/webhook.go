package service

import (
	"context"

	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/domain/webhookevent"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/sentry"
	"github.com/stripe/stripe-go/v82"
)

// EventHandler routes one verified event to its domain handler. Handle
// reports false when the event type is outside the supported set; that is an
// acknowledgement, not an error.
type EventHandler interface {
	Handle(ctx context.Context, event *stripe.Event) (bool, error)
}

// WebhookService drives the processing of one webhook delivery attempt:
// ledger admission, routing, and exactly one terminal ledger transition.
type WebhookService interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

// eventLedger is the dispatcher's view of the idempotency ledger. The
// durable implementation writes webhook_events rows; the no-op one admits
// everything, for deployments that run without the ledger.
type eventLedger interface {
	Begin(ctx context.Context, event *stripe.Event) (webhookevent.AdmissionOutcome, error)
	Complete(ctx context.Context, externalEventID string) error
	Fail(ctx context.Context, externalEventID string, reason string) error
}

type durableLedger struct {
	repo webhookevent.Repository
}

func (l *durableLedger) Begin(ctx context.Context, event *stripe.Event) (webhookevent.AdmissionOutcome, error) {
	row := webhookevent.New(event.ID, string(event.Type), event.Data.Raw)
	if err := row.Validate(); err != nil {
		return "", err
	}
	return l.repo.BeginProcessing(ctx, row)
}

func (l *durableLedger) Complete(ctx context.Context, externalEventID string) error {
	return l.repo.MarkCompleted(ctx, externalEventID)
}

func (l *durableLedger) Fail(ctx context.Context, externalEventID string, reason string) error {
	return l.repo.MarkFailed(ctx, externalEventID, reason)
}

type noopLedger struct{}

func (noopLedger) Begin(ctx context.Context, event *stripe.Event) (webhookevent.AdmissionOutcome, error) {
	return webhookevent.AdmissionAdmitted, nil
}

func (noopLedger) Complete(ctx context.Context, externalEventID string) error { return nil }

func (noopLedger) Fail(ctx context.Context, externalEventID string, reason string) error { return nil }

type webhookService struct {
	ledger  eventLedger
	handler EventHandler
	sentry  *sentry.Service
	logger  *logger.Logger
}

// NewWebhookService creates the webhook processing service. The ledger
// strategy is fixed at construction from configuration, so no handler code
// ever branches on the ledger flag.
func NewWebhookService(
	cfg *config.Configuration,
	eventRepo webhookevent.Repository,
	handler EventHandler,
	sentrySvc *sentry.Service,
	logger *logger.Logger,
) WebhookService {
	var l eventLedger = noopLedger{}
	if cfg.Webhook.LedgerEnabled {
		l = &durableLedger{repo: eventRepo}
	} else {
		logger.Warnw("webhook event ledger is disabled, duplicate deliveries will not be suppressed")
	}

	return &webhookService{
		ledger:  l,
		handler: handler,
		sentry:  sentrySvc,
		logger:  logger,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	outcome, err := s.ledger.Begin(ctx, event)
	if err != nil {
		return err
	}

	switch outcome {
	case webhookevent.AdmissionAlreadyProcessed:
		s.logger.Infow("skipping already processed event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	case webhookevent.AdmissionInFlight:
		return ierr.NewError("event delivery already in flight").
			WithHintf("Event %s is being processed by another delivery", event.ID).
			Mark(ierr.ErrAlreadyExists)
	}

	handled, err := s.handler.Handle(ctx, event)
	if err != nil {
		s.sentry.CaptureException(err)
		if failErr := s.ledger.Fail(ctx, event.ID, err.Error()); failErr != nil {
			s.logger.Errorw("failed to mark event failed in ledger",
				"error", failErr,
				"event_id", event.ID)
		}
		return err
	}

	if !handled {
		s.logger.Infow("acknowledged unsupported event type",
			"event_id", event.ID,
			"event_type", event.Type)
	}

	return s.ledger.Complete(ctx, event.ID)
}
