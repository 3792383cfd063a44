package dto

import (
	"time"

	"github.com/paysync/paysync/internal/domain/transaction"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// ListTransactionsRequest represents the query parameters for listing
// transactions of a user
type ListTransactionsRequest struct {
	UserID string `form:"user_id" binding:"required"`
	Type   string `form:"type"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (r *ListTransactionsRequest) Validate() error {
	if r.Type != "" {
		if err := types.TransactionType(r.Type).Validate(); err != nil {
			return err
		}
	}
	if r.Limit < 0 || r.Offset < 0 {
		return ierr.NewError("invalid pagination").
			WithHint("Limit and offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToFilter converts the request into a repository filter with defaults applied
func (r *ListTransactionsRequest) ToFilter() *transaction.Filter {
	limit := r.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return &transaction.Filter{
		UserID: r.UserID,
		Type:   types.TransactionType(r.Type),
		Limit:  limit,
		Offset: r.Offset,
	}
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                  string                  `json:"id"`
	UserID              string                  `json:"user_id"`
	ExternalReferenceID string                  `json:"external_reference_id"`
	Type                types.TransactionType   `json:"type"`
	Amount              decimal.Decimal         `json:"amount"`
	Currency            string                  `json:"currency"`
	TransactionStatus   types.TransactionStatus `json:"transaction_status"`
	Description         string                  `json:"description"`
	Metadata            types.Metadata          `json:"metadata,omitempty"`
	StripeFee           decimal.Decimal         `json:"stripe_fee"`
	NetAmount           decimal.Decimal         `json:"net_amount"`
	FailureReason       *string                 `json:"failure_reason,omitempty"`
	ProcessedAt         *time.Time              `json:"processed_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// ListTransactionsResponse represents a paginated transaction listing
type ListTransactionsResponse struct {
	Items      []*TransactionResponse   `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// NewTransactionResponse creates a new transaction response from a transaction
func NewTransactionResponse(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                  t.ID,
		UserID:              t.UserID,
		ExternalReferenceID: t.ExternalReferenceID,
		Type:                t.Type,
		Amount:              t.Amount,
		Currency:            t.Currency,
		TransactionStatus:   t.TransactionStatus,
		Description:         t.Description,
		Metadata:            t.Metadata,
		StripeFee:           t.StripeFee,
		NetAmount:           t.NetAmount,
		FailureReason:       t.FailureReason,
		ProcessedAt:         t.ProcessedAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}
