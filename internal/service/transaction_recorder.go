package service

import (
	"context"
	"strings"
	"time"

	"github.com/paysync/paysync/internal/domain/transaction"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// RecordTransactionParams carries everything needed to persist one financial
// record. Amounts are in the major currency unit; conversion from provider
// minor units is the caller's job.
type RecordTransactionParams struct {
	UserID              string
	ExternalReferenceID string
	Type                types.TransactionType
	Amount              decimal.Decimal
	Currency            string
	Status              types.TransactionStatus
	Description         string
	Metadata            types.Metadata
	// Fee and Net come from the provider's settlement detail. When either is
	// absent the recorder falls back to fee zero and net equal to the gross
	// amount.
	Fee           *decimal.Decimal
	Net           *decimal.Decimal
	FailureReason *string
	ProcessedAt   *time.Time
}

// TransactionRecorder persists financial records derived from webhook events
type TransactionRecorder interface {
	Record(ctx context.Context, params RecordTransactionParams) (*transaction.Transaction, error)
	// GetByReference returns the most recent transaction for an external
	// reference, or nil when none exists.
	GetByReference(ctx context.Context, externalRef string) (*transaction.Transaction, error)
	// UpdateStatusByReference applies a keyed status correction. A missing
	// record is logged and tolerated, never an error.
	UpdateStatusByReference(ctx context.Context, externalRef string, status types.TransactionStatus, failureReason *string) error
}

type transactionRecorder struct {
	txnRepo transaction.Repository
	logger  *logger.Logger
}

// NewTransactionRecorder creates a new transaction recorder
func NewTransactionRecorder(txnRepo transaction.Repository, logger *logger.Logger) TransactionRecorder {
	return &transactionRecorder{
		txnRepo: txnRepo,
		logger:  logger,
	}
}

func (s *transactionRecorder) Record(ctx context.Context, params RecordTransactionParams) (*transaction.Transaction, error) {
	fee := decimal.Zero
	net := params.Amount
	if params.Fee != nil && params.Net != nil {
		fee = *params.Fee
		net = *params.Net
	}

	txn := &transaction.Transaction{
		ID:                  types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
		UserID:              params.UserID,
		ExternalReferenceID: params.ExternalReferenceID,
		Type:                params.Type,
		Amount:              params.Amount,
		Currency:            strings.ToUpper(params.Currency),
		TransactionStatus:   params.Status,
		Description:         params.Description,
		Metadata:            params.Metadata,
		StripeFee:           fee,
		NetAmount:           net,
		FailureReason:       params.FailureReason,
		ProcessedAt:         params.ProcessedAt,
		BaseModel:           types.GetDefaultBaseModel(),
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.logger.Infow("recorded transaction",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"external_reference_id", txn.ExternalReferenceID,
		"type", txn.Type,
		"amount", txn.Amount.String(),
		"currency", txn.Currency,
		"status", txn.TransactionStatus)

	return txn, nil
}

func (s *transactionRecorder) GetByReference(ctx context.Context, externalRef string) (*transaction.Transaction, error) {
	txn, err := s.txnRepo.GetByExternalReferenceID(ctx, externalRef)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

func (s *transactionRecorder) UpdateStatusByReference(ctx context.Context, externalRef string, status types.TransactionStatus, failureReason *string) error {
	if err := status.Validate(); err != nil {
		return err
	}

	rows, err := s.txnRepo.UpdateStatusByReference(ctx, externalRef, status, failureReason)
	if err != nil {
		return err
	}

	if rows == 0 {
		s.logger.Warnw("status correction matched no transaction",
			"external_reference_id", externalRef,
			"status", status)
	}
	return nil
}
