package transaction

import (
	"time"

	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable financial record derived from a provider
// event: a payment, a subscription charge or a refund. Rows are append-only;
// the only mutation allowed after creation is a status correction keyed by
// the external reference id.
type Transaction struct {
	// Unique identifier for this transaction
	ID string `db:"id" json:"id"`
	// The local user this transaction belongs to
	UserID string `db:"user_id" json:"user_id"`
	// The provider-side reference (payment intent, charge, session or
	// invoice id) used for correlation. Not guaranteed globally unique
	// across event types.
	ExternalReferenceID string `db:"external_reference_id" json:"external_reference_id"`
	// What kind of money movement this records (payment, subscription, refund)
	Type types.TransactionType `db:"type" json:"type"`
	// The amount in the major currency unit. Conversion from minor units
	// happens in the webhook handlers, never here.
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// Three-letter ISO currency code, normalized upper-case
	Currency string `db:"currency" json:"currency"`
	// Settlement status (completed, failed, cancelled, refunded)
	TransactionStatus types.TransactionStatus `db:"transaction_status" json:"transaction_status"`
	// Human-readable description of the transaction
	Description string `db:"description" json:"description"`
	// Additional custom key-value pairs (optional)
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`
	// Processor fee charged for this transaction, derived from the
	// settlement object when available, zero otherwise
	StripeFee decimal.Decimal `db:"stripe_fee" json:"stripe_fee"`
	// Net amount after fees; defaults to the gross amount when no
	// settlement detail was available
	NetAmount decimal.Decimal `db:"net_amount" json:"net_amount"`
	// Why the transaction failed (optional)
	FailureReason *string `db:"failure_reason" json:"failure_reason,omitempty"`
	// When the provider processed the money movement (optional)
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`

	types.BaseModel
}

func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return ierr.NewError("invalid user id").
			WithHint("User id is required").
			Mark(ierr.ErrValidation)
	}
	if t.ExternalReferenceID == "" {
		return ierr.NewError("invalid external reference id").
			WithHint("External reference id is required").
			Mark(ierr.ErrValidation)
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.TransactionStatus.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the transaction
func (t *Transaction) TableName() string {
	return "transactions"
}
