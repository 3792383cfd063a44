package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/paysync/paysync/internal/domain/subscription"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. The
// failed-payment increment is serialized under a mutex, same as the single
// atomic UPDATE in the Postgres implementation.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	mu sync.Mutex
}

// NewInMemorySubscriptionStore creates a new in-memory subscription repository
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (m *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemorySubscriptionStore) GetByExternalSubscriptionID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	subs, err := m.InMemoryStore.List(ctx, nil, func(_ context.Context, s *subscription.Subscription, _ interface{}) bool {
		return s.ExternalSubscriptionID == externalID
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHintf("No subscription with external id %s", externalID).
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}

func (m *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	sub.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) MarkPastDueOnFailedPayment(ctx context.Context, externalID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.GetByExternalSubscriptionID(ctx, externalID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusCanceled {
		return 0, nil
	}

	sub.FailedPaymentCount++
	sub.SubscriptionStatus = types.SubscriptionStatusPastDue
	sub.UpdatedAt = time.Now().UTC()
	return sub.FailedPaymentCount, nil
}

func (m *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	subs, err := m.InMemoryStore.List(ctx, filter, subscriptionFilterFn, func(i, j *subscription.Subscription) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return subs, nil
	}
	return paginate(subs, filter.Limit, filter.Offset), nil
}

func (m *InMemorySubscriptionStore) Count(ctx context.Context, filter *subscription.Filter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, subscriptionFilterFn)
}

func subscriptionFilterFn(_ context.Context, sub *subscription.Subscription, filter interface{}) bool {
	f, ok := filter.(*subscription.Filter)
	if !ok || f == nil {
		return true
	}
	if f.UserID != "" && sub.UserID != f.UserID {
		return false
	}
	if f.Status != "" && sub.SubscriptionStatus != f.Status {
		return false
	}
	return true
}
