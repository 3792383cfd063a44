package types

import (
	ierr "github.com/paysync/paysync/internal/errors"
)

// TransactionType classifies what kind of money movement a transaction records
type TransactionType string

const (
	TransactionTypePayment      TransactionType = "payment"
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeRefund       TransactionType = "refund"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypePayment,
		TransactionTypeSubscription,
		TransactionTypeRefund,
	}
	for _, a := range allowed {
		if t == a {
			return nil
		}
	}
	return ierr.NewError("invalid transaction type").
		WithHintf("Transaction type %s is not allowed", t).
		Mark(ierr.ErrValidation)
}

// TransactionStatus represents the settlement status of a transaction
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) Validate() error {
	allowed := []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
		TransactionStatusRefunded,
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return ierr.NewError("invalid transaction status").
		WithHintf("Transaction status %s is not allowed", s).
		Mark(ierr.ErrValidation)
}
