package user

import (
	"context"
)

// Repository defines the interface for user lookup and the single mutation
// the reconciliation core performs on users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalCustomerID(ctx context.Context, externalCustomerID string) (*User, error)
	// SetExternalCustomerID attaches the provider customer id if and only if
	// none is set yet. It reports whether the write happened, so a losing
	// racer can re-read and use the winner's id.
	SetExternalCustomerID(ctx context.Context, userID, externalCustomerID string) (bool, error)
}
