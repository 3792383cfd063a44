package webhook

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paysync/paysync/internal/domain/subscription"
	"github.com/paysync/paysync/internal/domain/user"
	stripeclient "github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/service"
	"github.com/paysync/paysync/internal/testutil"
	"github.com/paysync/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	stripeapi "github.com/stripe/stripe-go/v82"
)

const (
	periodStartEpoch = int64(1735689600) // 2025-01-01
	periodEndEpoch   = int64(1738368000) // 2025-02-01
)

type StripeWebhookHandlerTestSuite struct {
	testutil.BaseServiceTestSuite
	handler  *Handler
	recorder service.TransactionRecorder
	eventSeq int
}

func TestStripeWebhookHandler(t *testing.T) {
	suite.Run(t, new(StripeWebhookHandlerTestSuite))
}

func (s *StripeWebhookHandlerTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := s.GetConfig()
	cfg.Stripe.PriceIDs = map[string]string{"pro": "price_pro"}

	client := stripeclient.NewClient(cfg, s.GetLogger())
	customerSvc := stripeclient.NewCustomerService(client, s.GetStores().UserRepo, s.GetCache(), s.GetLogger())
	s.recorder = service.NewTransactionRecorder(s.GetStores().TransactionRepo, s.GetLogger())

	s.handler = NewHandler(client, customerSvc, s.recorder, s.GetStores().SubscriptionRepo, cfg, s.GetLogger())

	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), &user.User{
		ID:                 "user_1",
		Email:              "ada@example.com",
		Name:               "Ada",
		ExternalCustomerID: lo.ToPtr("cus_1"),
		BaseModel:          types.GetDefaultBaseModel(),
	}))
}

func (s *StripeWebhookHandlerTestSuite) newEvent(eventType types.WebhookEventType, payload string) *stripeapi.Event {
	s.eventSeq++
	return &stripeapi.Event{
		ID:      fmt.Sprintf("evt_%d", s.eventSeq),
		Type:    stripeapi.EventType(eventType),
		Created: time.Now().Unix(),
		Data:    &stripeapi.EventData{Raw: json.RawMessage(payload)},
	}
}

func subscriptionPayload(id, customer, status string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "subscription",
		"status": %q,
		"customer": %q,
		"created": 1735603200,
		"billing_cycle_anchor": %d,
		"items": {"object": "list", "data": [{
			"id": "si_1",
			"object": "subscription_item",
			"current_period_start": %d,
			"current_period_end": %d,
			"price": {
				"id": "price_pro",
				"object": "price",
				"unit_amount": 2999,
				"currency": "usd",
				"nickname": "Pro Monthly",
				"recurring": {"interval": "month", "interval_count": 1}
			}
		}]}
	}`, id, status, customer, periodStartEpoch, periodStartEpoch, periodEndEpoch)
}

func invoicePayload(id, customer, subID string, amountDue, amountPaid int64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "invoice",
		"customer": %q,
		"subscription": %q,
		"amount_due": %d,
		"amount_paid": %d,
		"currency": "usd"
	}`, id, customer, subID, amountDue, amountPaid)
}

func (s *StripeWebhookHandlerTestSuite) seedSubscription(status types.SubscriptionStatus, failedCount int) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
		UserID:                 "user_1",
		ExternalSubscriptionID: "sub_1",
		SubscriptionStatus:     status,
		PlanID:                 "price_pro",
		PlanName:               "pro",
		Amount:                 decimal.NewFromFloat(29.99),
		Currency:               "USD",
		Interval:               "month",
		IntervalCount:          1,
		FailedPaymentCount:     failedCount,
		BaseModel:              types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *StripeWebhookHandlerTestSuite) TestUnsupportedEventTypeIsNotHandled() {
	handled, err := s.handler.Handle(s.GetContext(), &stripeapi.Event{
		ID:   "evt_x",
		Type: stripeapi.EventType("customer.updated"),
		Data: &stripeapi.EventData{Raw: json.RawMessage(`{}`)},
	})
	s.NoError(err)
	s.False(handled)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionCreated() {
	event := s.newEvent(types.WebhookEventTypeSubscriptionCreated, subscriptionPayload("sub_1", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("user_1", sub.UserID)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal("price_pro", sub.PlanID)
	// The price artifact reverse mapping wins over the nickname.
	s.Equal("pro", sub.PlanName)
	s.True(sub.Amount.Equal(decimal.NewFromFloat(29.99)))
	s.Equal("USD", sub.Currency)
	s.Equal("month", sub.Interval)
	s.Require().NotNil(sub.CurrentPeriodStart)
	s.Require().NotNil(sub.CurrentPeriodEnd)
	s.Equal(time.Unix(periodStartEpoch, 0).UTC(), *sub.CurrentPeriodStart)
	s.Equal(time.Unix(periodEndEpoch, 0).UTC(), *sub.CurrentPeriodEnd)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionCreatedUnknownCustomerIsNoOp() {
	event := s.newEvent(types.WebhookEventTypeSubscriptionCreated, subscriptionPayload("sub_1", "cus_unknown", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	_, err = s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.Error(err)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionCreatedRedeliveryKeepsExisting() {
	existing := s.seedSubscription(types.SubscriptionStatusPastDue, 2)

	event := s.newEvent(types.WebhookEventTypeSubscriptionCreated, subscriptionPayload("sub_1", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(existing.ID, sub.ID)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionUpdatedRecoveryResetsFailureCount() {
	s.seedSubscription(types.SubscriptionStatusPastDue, 3)

	event := s.newEvent(types.WebhookEventTypeSubscriptionUpdated, subscriptionPayload("sub_1", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal(0, sub.FailedPaymentCount)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionUpdatedUnknownSubscriptionIsNoOp() {
	event := s.newEvent(types.WebhookEventTypeSubscriptionUpdated, subscriptionPayload("sub_unknown", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionUpdatedAfterCancellationIsIgnored() {
	sub := s.seedSubscription(types.SubscriptionStatusCanceled, 0)

	event := s.newEvent(types.WebhookEventTypeSubscriptionUpdated, subscriptionPayload("sub_1", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	got, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, got.SubscriptionStatus)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionDeletedIsTerminal() {
	s.seedSubscription(types.SubscriptionStatusActive, 0)

	// The deletion payload may still report an arbitrary status; locally the
	// subscription is forced to canceled regardless.
	event := s.newEvent(types.WebhookEventTypeSubscriptionDeleted, subscriptionPayload("sub_1", "cus_1", "active"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.SubscriptionStatus)
	s.NotNil(sub.CanceledAt)
	s.NotNil(sub.EndedAt)
}

func (s *StripeWebhookHandlerTestSuite) TestSubscriptionUnknownStatusMapsToActive() {
	event := s.newEvent(types.WebhookEventTypeSubscriptionCreated, subscriptionPayload("sub_1", "cus_1", "paused"))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentFailedRecordsAndMarksPastDue() {
	s.seedSubscription(types.SubscriptionStatusActive, 0)

	event := s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload("in_1", "cus_1", "sub_1", 5000, 0))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	txn, err := s.recorder.GetByReference(s.GetContext(), "in_1")
	s.NoError(err)
	s.Require().NotNil(txn)
	s.Equal(types.TransactionTypeSubscription, txn.Type)
	s.Equal(types.TransactionStatusFailed, txn.TransactionStatus)
	s.True(txn.Amount.Equal(decimal.NewFromInt(50)))
	s.Equal("USD", txn.Currency)
	s.NotNil(txn.FailureReason)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	s.Equal(1, sub.FailedPaymentCount)
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentFailedAccumulates() {
	s.seedSubscription(types.SubscriptionStatusActive, 0)

	for i, invoiceID := range []string{"in_1", "in_2"} {
		event := s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload(invoiceID, "cus_1", "sub_1", 5000, 0))
		_, err := s.handler.Handle(s.GetContext(), event)
		s.NoError(err)

		sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
		s.NoError(err)
		s.Equal(i+1, sub.FailedPaymentCount)
		s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	}
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentFailedConcurrentDeliveriesCountBoth() {
	s.seedSubscription(types.SubscriptionStatusActive, 0)

	events := []*stripeapi.Event{
		s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload("in_1", "cus_1", "sub_1", 5000, 0)),
		s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload("in_2", "cus_1", "sub_1", 5000, 0)),
	}

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(e *stripeapi.Event) {
			defer wg.Done()
			_, err := s.handler.Handle(s.GetContext(), e)
			s.NoError(err)
		}(event)
	}
	wg.Wait()

	// The keyed increment is atomic in the store, so neither delivery can
	// overwrite the other's count.
	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(2, sub.FailedPaymentCount)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentFailedForCanceledSubscriptionIsIgnored() {
	s.seedSubscription(types.SubscriptionStatusCanceled, 0)

	event := s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload("in_1", "cus_1", "sub_1", 5000, 0))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.SubscriptionStatus)
	s.Equal(0, sub.FailedPaymentCount)
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentSucceededLeavesSubscriptionAlone() {
	s.seedSubscription(types.SubscriptionStatusPastDue, 2)

	event := s.newEvent(types.WebhookEventTypeInvoicePaymentSucceeded, invoicePayload("in_1", "cus_1", "sub_1", 5000, 5000))
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	txn, err := s.recorder.GetByReference(s.GetContext(), "in_1")
	s.NoError(err)
	s.Require().NotNil(txn)
	s.Equal(types.TransactionStatusCompleted, txn.TransactionStatus)
	s.True(txn.Amount.Equal(decimal.NewFromInt(50)))
	// No settlement detail on the payload means the fallback applies.
	s.True(txn.StripeFee.IsZero())
	s.True(txn.NetAmount.Equal(txn.Amount))

	// A paid invoice records the transaction only. Recovery from past_due
	// waits for customer.subscription.updated; an out-of-order paid invoice
	// must not clear the failure streak.
	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	s.Equal(2, sub.FailedPaymentCount)
}

func (s *StripeWebhookHandlerTestSuite) TestInvoicePaymentSucceededAfterFailureCorrectsRecord() {
	s.seedSubscription(types.SubscriptionStatusActive, 0)

	failEvent := s.newEvent(types.WebhookEventTypeInvoicePaymentFailed, invoicePayload("in_1", "cus_1", "sub_1", 5000, 0))
	_, err := s.handler.Handle(s.GetContext(), failEvent)
	s.NoError(err)

	payEvent := s.newEvent(types.WebhookEventTypeInvoicePaymentSucceeded, invoicePayload("in_1", "cus_1", "sub_1", 5000, 5000))
	_, err = s.handler.Handle(s.GetContext(), payEvent)
	s.NoError(err)

	// The retry corrected the failed record in place instead of duplicating.
	count, err := s.GetStores().TransactionRepo.Count(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(1, count)

	txn, err := s.recorder.GetByReference(s.GetContext(), "in_1")
	s.NoError(err)
	s.Equal(types.TransactionStatusCompleted, txn.TransactionStatus)

	// The failure streak survives the retry; only a subscription update
	// from the provider resets it.
	sub, err := s.GetStores().SubscriptionRepo.GetByExternalSubscriptionID(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	s.Equal(1, sub.FailedPaymentCount)
}

func (s *StripeWebhookHandlerTestSuite) TestCheckoutSessionCompletedRecordsPayment() {
	payload := `{
		"id": "cs_1",
		"object": "checkout.session",
		"customer": "cus_1",
		"payment_intent": "pi_co_1",
		"amount_total": 999,
		"currency": "usd",
		"metadata": {"plan": "pro"}
	}`
	event := s.newEvent(types.WebhookEventTypeCheckoutSessionCompleted, payload)
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	txn, err := s.recorder.GetByReference(s.GetContext(), "pi_co_1")
	s.NoError(err)
	s.Require().NotNil(txn)
	s.Equal(types.TransactionTypePayment, txn.Type)
	s.True(txn.Amount.Equal(decimal.NewFromFloat(9.99)))
	s.Equal("pro", txn.Metadata["plan"])
}

func (s *StripeWebhookHandlerTestSuite) TestChargeRefundedRecordsRefundAndCorrectsPayment() {
	_, err := s.recorder.Record(s.GetContext(), service.RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "pi_1",
		Type:                types.TransactionTypePayment,
		Amount:              decimal.NewFromInt(20),
		Currency:            "usd",
		Status:              types.TransactionStatusCompleted,
	})
	s.NoError(err)

	payload := `{
		"id": "ch_1",
		"object": "charge",
		"customer": "cus_1",
		"payment_intent": "pi_1",
		"amount_refunded": 2000,
		"currency": "usd"
	}`
	event := s.newEvent(types.WebhookEventTypeChargeRefunded, payload)
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	refund, err := s.recorder.GetByReference(s.GetContext(), "ch_1")
	s.NoError(err)
	s.Require().NotNil(refund)
	s.Equal(types.TransactionTypeRefund, refund.Type)
	s.Equal(types.TransactionStatusRefunded, refund.TransactionStatus)
	s.True(refund.Amount.Equal(decimal.NewFromInt(20)))

	payment, err := s.recorder.GetByReference(s.GetContext(), "pi_1")
	s.NoError(err)
	s.Equal(types.TransactionStatusRefunded, payment.TransactionStatus)
}

func (s *StripeWebhookHandlerTestSuite) TestPaymentIntentFailedRecordsFailure() {
	payload := `{
		"id": "pi_2",
		"object": "payment_intent",
		"customer": "cus_1",
		"amount": 1500,
		"currency": "usd",
		"last_payment_error": {"message": "Your card was declined."}
	}`
	event := s.newEvent(types.WebhookEventTypePaymentIntentFailed, payload)
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	txn, err := s.recorder.GetByReference(s.GetContext(), "pi_2")
	s.NoError(err)
	s.Require().NotNil(txn)
	s.Equal(types.TransactionStatusFailed, txn.TransactionStatus)
	s.True(txn.Amount.Equal(decimal.NewFromInt(15)))
	s.Require().NotNil(txn.FailureReason)
	s.Equal("Your card was declined.", *txn.FailureReason)
}

func (s *StripeWebhookHandlerTestSuite) TestPaymentIntentCanceledCorrectsExistingRecord() {
	_, err := s.recorder.Record(s.GetContext(), service.RecordTransactionParams{
		UserID:              "user_1",
		ExternalReferenceID: "pi_3",
		Type:                types.TransactionTypePayment,
		Amount:              decimal.NewFromInt(10),
		Currency:            "usd",
		Status:              types.TransactionStatusCompleted,
	})
	s.NoError(err)

	payload := `{
		"id": "pi_3",
		"object": "payment_intent",
		"cancellation_reason": "requested_by_customer"
	}`
	event := s.newEvent(types.WebhookEventTypePaymentIntentCanceled, payload)
	handled, err := s.handler.Handle(s.GetContext(), event)
	s.NoError(err)
	s.True(handled)

	txn, err := s.recorder.GetByReference(s.GetContext(), "pi_3")
	s.NoError(err)
	s.Equal(types.TransactionStatusCancelled, txn.TransactionStatus)
}
