package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/paysync/paysync/internal/domain/user"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryUserStore implements user.Repository. The write-once customer link
// is serialized under a single mutex, same as the conditional update in the
// Postgres implementation.
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
	mu sync.Mutex
}

// NewInMemoryUserStore creates a new in-memory user repository
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func (m *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return ierr.NewError("user cannot be nil").
			WithHint("User cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, u.ID, u)
}

func (m *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findOne(ctx, func(u *user.User) bool {
		return u.Email == email
	}, "No user with email "+email)
}

func (m *InMemoryUserStore) GetByExternalCustomerID(ctx context.Context, externalCustomerID string) (*user.User, error) {
	return m.findOne(ctx, func(u *user.User) bool {
		return u.ExternalCustomerID != nil && *u.ExternalCustomerID == externalCustomerID
	}, "No user with external customer id "+externalCustomerID)
}

func (m *InMemoryUserStore) SetExternalCustomerID(ctx context.Context, userID, externalCustomerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.InMemoryStore.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	if u.ExternalCustomerID != nil {
		return false, nil
	}

	u.ExternalCustomerID = lo.ToPtr(externalCustomerID)
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *InMemoryUserStore) findOne(ctx context.Context, match func(*user.User) bool, hint string) (*user.User, error) {
	users, err := m.InMemoryStore.List(ctx, nil, func(_ context.Context, u *user.User, _ interface{}) bool {
		return match(u)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ierr.NewError("user not found").
			WithHint(hint).
			Mark(ierr.ErrNotFound)
	}
	return users[0], nil
}
