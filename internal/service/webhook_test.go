package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/paysync/paysync/internal/domain/webhookevent"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/sentry"
	"github.com/paysync/paysync/internal/testutil"
	"github.com/paysync/paysync/internal/types"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
)

// recordingHandler counts invocations and returns a scripted result
type recordingHandler struct {
	calls   int
	handled bool
	err     error
}

func (h *recordingHandler) Handle(ctx context.Context, event *stripe.Event) (bool, error) {
	h.calls++
	return h.handled, h.err
}

type WebhookServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	handler *recordingHandler
	service WebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}

func (s *WebhookServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.handler = &recordingHandler{handled: true}
	s.service = NewWebhookService(
		s.GetConfig(),
		s.GetStores().WebhookEventRepo,
		s.handler,
		sentry.NewSentryService(s.GetConfig(), s.GetLogger()),
		s.GetLogger(),
	)
}

func (s *WebhookServiceTestSuite) newEvent(id string) *stripe.Event {
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(types.WebhookEventTypePaymentIntentSucceeded),
		Data: &stripe.EventData{
			Raw: json.RawMessage(`{"id":"pi_1","object":"payment_intent"}`),
		},
	}
}

func (s *WebhookServiceTestSuite) TestFirstDeliveryIsProcessedAndCompleted() {
	err := s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1"))
	s.NoError(err)
	s.Equal(1, s.handler.calls)

	row, err := s.GetStores().WebhookEventRepo.GetByExternalEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.ProcessingStatusCompleted, row.ProcessingStatus)
	s.NotNil(row.ProcessedAt)
}

func (s *WebhookServiceTestSuite) TestDuplicateDeliveryIsSuppressed() {
	s.NoError(s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))
	s.NoError(s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))

	// The handler ran exactly once; the duplicate was acknowledged silently.
	s.Equal(1, s.handler.calls)
}

func (s *WebhookServiceTestSuite) TestInFlightDeliveryIsRejected() {
	row := webhookevent.New("evt_1", "payment_intent.succeeded", json.RawMessage(`{}`))
	outcome, err := s.GetStores().WebhookEventRepo.BeginProcessing(s.GetContext(), row)
	s.NoError(err)
	s.Equal(webhookevent.AdmissionAdmitted, outcome)

	err = s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1"))
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal(0, s.handler.calls)
}

func (s *WebhookServiceTestSuite) TestHandlerFailureMarksLedgerFailed() {
	s.handler.err = ierr.NewError("boom").
		WithHint("Something went wrong").
		Mark(ierr.ErrSystem)

	err := s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1"))
	s.Error(err)

	row, err := s.GetStores().WebhookEventRepo.GetByExternalEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.ProcessingStatusFailed, row.ProcessingStatus)
	s.NotNil(row.ErrorMessage)
}

func (s *WebhookServiceTestSuite) TestRedeliveryAfterFailureIsAdmittedAsRetry() {
	s.handler.err = ierr.NewError("boom").Mark(ierr.ErrSystem)
	s.Error(s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))

	s.handler.err = nil
	s.NoError(s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))
	s.Equal(2, s.handler.calls)

	row, err := s.GetStores().WebhookEventRepo.GetByExternalEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.ProcessingStatusCompleted, row.ProcessingStatus)
	s.Equal(1, row.RetryCount)
}

func (s *WebhookServiceTestSuite) TestUnsupportedEventTypeIsAcknowledged() {
	s.handler.handled = false

	err := s.service.ProcessEvent(s.GetContext(), s.newEvent("evt_1"))
	s.NoError(err)

	row, err := s.GetStores().WebhookEventRepo.GetByExternalEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.ProcessingStatusCompleted, row.ProcessingStatus)
}

func (s *WebhookServiceTestSuite) TestLedgerDisabledProcessesEveryDelivery() {
	cfg := *s.GetConfig()
	cfg.Webhook.LedgerEnabled = false

	svc := NewWebhookService(
		&cfg,
		s.GetStores().WebhookEventRepo,
		s.handler,
		sentry.NewSentryService(&cfg, s.GetLogger()),
		s.GetLogger(),
	)

	s.NoError(svc.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))
	s.NoError(svc.ProcessEvent(s.GetContext(), s.newEvent("evt_1")))

	// Without the ledger every delivery reaches the handler.
	s.Equal(2, s.handler.calls)

	_, err := s.GetStores().WebhookEventRepo.GetByExternalEventID(s.GetContext(), "evt_1")
	s.True(ierr.IsNotFound(err))
}
