package types

// WebhookEventType is the type tag of an inbound Stripe webhook event.
// The dispatcher only routes the closed set below; any other type is
// acknowledged without a handler.
type WebhookEventType string

const (
	WebhookEventTypeCheckoutSessionCompleted WebhookEventType = "checkout.session.completed"
	WebhookEventTypeInvoicePaymentSucceeded  WebhookEventType = "invoice.payment_succeeded"
	WebhookEventTypeInvoicePaymentFailed     WebhookEventType = "invoice.payment_failed"
	WebhookEventTypeInvoiceUpcoming          WebhookEventType = "invoice.upcoming"
	WebhookEventTypePaymentMethodAttached    WebhookEventType = "payment_method.attached"
	WebhookEventTypeSubscriptionCreated      WebhookEventType = "customer.subscription.created"
	WebhookEventTypeSubscriptionUpdated      WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeSubscriptionDeleted      WebhookEventType = "customer.subscription.deleted"
	WebhookEventTypeSubscriptionTrialWillEnd WebhookEventType = "customer.subscription.trial_will_end"
	WebhookEventTypePaymentIntentSucceeded   WebhookEventType = "payment_intent.succeeded"
	WebhookEventTypePaymentIntentCreated     WebhookEventType = "payment_intent.created"
	WebhookEventTypePaymentIntentFailed      WebhookEventType = "payment_intent.payment_failed"
	WebhookEventTypePaymentIntentCanceled    WebhookEventType = "payment_intent.canceled"
	WebhookEventTypeChargeRefunded           WebhookEventType = "charge.refunded"
)

func (t WebhookEventType) String() string {
	return string(t)
}

// ProcessingStatus tracks the lifecycle of a webhook event in the ledger
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusCompleted ProcessingStatus = "completed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
	ProcessingStatusRetrying  ProcessingStatus = "retrying"
)

func (s ProcessingStatus) String() string {
	return string(s)
}
