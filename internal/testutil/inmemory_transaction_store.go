package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/paysync/paysync/internal/domain/transaction"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
)

// InMemoryTransactionStore implements transaction.Repository
type InMemoryTransactionStore struct {
	*InMemoryStore[*transaction.Transaction]
	mu             sync.Mutex
	createdInOrder []*transaction.Transaction
}

// NewInMemoryTransactionStore creates a new in-memory transaction repository
func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{
		InMemoryStore:  NewInMemoryStore[*transaction.Transaction](),
		createdInOrder: make([]*transaction.Transaction, 0),
	}
}

// Clear resets all stored data
func (m *InMemoryTransactionStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.createdInOrder = make([]*transaction.Transaction, 0)
}

func (m *InMemoryTransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	if txn == nil {
		return ierr.NewError("transaction cannot be nil").
			WithHint("Transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if err := m.InMemoryStore.Create(ctx, txn.ID, txn); err != nil {
		return err
	}

	m.mu.Lock()
	m.createdInOrder = append(m.createdInOrder, txn)
	m.mu.Unlock()
	return nil
}

func (m *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	return m.InMemoryStore.Get(ctx, id)
}

// GetByExternalReferenceID returns the most recently created record carrying
// the reference, matching the ORDER BY created_at DESC LIMIT 1 of the
// Postgres implementation.
func (m *InMemoryTransactionStore) GetByExternalReferenceID(ctx context.Context, externalRef string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.createdInOrder) - 1; i >= 0; i-- {
		if m.createdInOrder[i].ExternalReferenceID == externalRef {
			return m.createdInOrder[i], nil
		}
	}

	return nil, ierr.NewError("transaction not found").
		WithHintf("No transaction with reference %s", externalRef).
		Mark(ierr.ErrNotFound)
}

func (m *InMemoryTransactionStore) List(ctx context.Context, filter *transaction.Filter) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*transaction.Transaction
	for i := len(m.createdInOrder) - 1; i >= 0; i-- {
		if transactionMatchesFilter(m.createdInOrder[i], filter) {
			result = append(result, m.createdInOrder[i])
		}
	}

	if filter == nil {
		return result, nil
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (m *InMemoryTransactionStore) Count(ctx context.Context, filter *transaction.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, txn := range m.createdInOrder {
		if transactionMatchesFilter(txn, filter) {
			count++
		}
	}
	return count, nil
}

func (m *InMemoryTransactionStore) UpdateStatusByReference(ctx context.Context, externalRef string, status types.TransactionStatus, failureReason *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var updated int64
	for _, txn := range m.createdInOrder {
		if txn.ExternalReferenceID != externalRef {
			continue
		}
		txn.TransactionStatus = status
		if failureReason != nil {
			txn.FailureReason = failureReason
		}
		txn.UpdatedAt = time.Now().UTC()
		updated++
	}
	return updated, nil
}

func transactionMatchesFilter(txn *transaction.Transaction, filter *transaction.Filter) bool {
	if filter == nil {
		return true
	}
	if filter.UserID != "" && txn.UserID != filter.UserID {
		return false
	}
	if filter.Type != "" && txn.Type != filter.Type {
		return false
	}
	return true
}
