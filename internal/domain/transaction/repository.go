package transaction

import (
	"context"

	"github.com/paysync/paysync/internal/types"
)

// Filter narrows transaction listings
type Filter struct {
	UserID string
	Type   types.TransactionType
	Limit  int
	Offset int
}

// Repository defines the interface for transaction persistence
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByExternalReferenceID(ctx context.Context, externalRef string) (*Transaction, error)
	List(ctx context.Context, filter *Filter) ([]*Transaction, error)
	Count(ctx context.Context, filter *Filter) (int, error)
	// UpdateStatusByReference applies a keyed status correction. It returns
	// the number of rows updated so callers can warn on a no-op instead of
	// failing when no matching record exists.
	UpdateStatusByReference(ctx context.Context, externalRef string, status types.TransactionStatus, failureReason *string) (int64, error)
}
