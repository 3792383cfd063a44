package service

import (
	"context"

	"github.com/paysync/paysync/internal/api/dto"
	"github.com/paysync/paysync/internal/domain/transaction"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/types"
)

// TransactionService exposes read access to the transaction history
type TransactionService interface {
	GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error)
}

type transactionService struct {
	txnRepo transaction.Repository
	logger  *logger.Logger
}

func NewTransactionService(txnRepo transaction.Repository, logger *logger.Logger) TransactionService {
	return &transactionService{
		txnRepo: txnRepo,
		logger:  logger,
	}
}

func (s *transactionService) GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invalid transaction id").
			WithHint("Transaction id is required").
			Mark(ierr.ErrValidation)
	}

	txn, err := s.txnRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return dto.NewTransactionResponse(txn), nil
}

func (s *transactionService) ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	filter := req.ToFilter()

	txns, err := s.txnRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.txnRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, dto.NewTransactionResponse(txn))
	}

	return &dto.ListTransactionsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(total, filter.Limit, filter.Offset),
	}, nil
}
