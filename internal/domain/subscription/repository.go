package subscription

import (
	"context"

	"github.com/paysync/paysync/internal/types"
)

// Filter narrows subscription listings
type Filter struct {
	UserID string
	Status types.SubscriptionStatus
	Limit  int
	Offset int
}

// Repository defines the interface for subscription persistence. Mutations
// are keyed by the external subscription id; implementations must make the
// keyed updates atomic (row-level) so concurrent handler invocations across
// process instances cannot interleave on the same subscription.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByExternalSubscriptionID(ctx context.Context, externalID string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	// MarkPastDueOnFailedPayment increments the failed payment count and
	// forces past_due in one atomic keyed write. It returns the new count,
	// or 0 when no non-canceled row matched the external id.
	MarkPastDueOnFailedPayment(ctx context.Context, externalID string) (int, error)
	List(ctx context.Context, filter *Filter) ([]*Subscription, error)
	Count(ctx context.Context, filter *Filter) (int, error)
}
