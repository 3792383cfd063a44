package stripe

import (
	"context"

	"github.com/paysync/paysync/internal/cache"
	"github.com/paysync/paysync/internal/domain/user"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// CustomerService owns the correlation between local users and Stripe
// customers. A user is linked to at most one Stripe customer and the link is
// written exactly once.
type CustomerService struct {
	client   *Client
	userRepo user.Repository
	cache    cache.Cache
	logger   *logger.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(
	client *Client,
	userRepo user.Repository,
	cache cache.Cache,
	logger *logger.Logger,
) *CustomerService {
	return &CustomerService{
		client:   client,
		userRepo: userRepo,
		cache:    cache,
		logger:   logger,
	}
}

// EnsureCustomer returns the Stripe customer id linked to the user, creating
// the Stripe customer on first use. The link is persisted with a conditional
// update; a caller that loses the race re-reads and returns the winner's id,
// so every caller observes the same customer id.
func (s *CustomerService) EnsureCustomer(ctx context.Context, userID string) (string, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if u.ExternalCustomerID != nil && *u.ExternalCustomerID != "" {
		return *u.ExternalCustomerID, nil
	}

	params := &stripe.CustomerCreateParams{
		Email: stripe.String(u.Email),
		Name:  stripe.String(u.Name),
		Metadata: map[string]string{
			"paysync_user_id": u.ID,
		},
	}

	stripeCustomer, err := s.client.API().V1Customers.Create(ctx, params)
	if err != nil {
		s.logger.Errorw("failed to create customer in Stripe",
			"error", err,
			"user_id", u.ID)
		return "", ierr.NewError("failed to create customer in Stripe").
			WithHint("Stripe API error").
			Mark(ierr.ErrHTTPClient)
	}

	written, err := s.userRepo.SetExternalCustomerID(ctx, u.ID, stripeCustomer.ID)
	if err != nil {
		return "", err
	}

	if !written {
		// Another request linked this user first; their customer id wins.
		current, err := s.userRepo.Get(ctx, u.ID)
		if err != nil {
			return "", err
		}
		if current.ExternalCustomerID == nil || *current.ExternalCustomerID == "" {
			return "", ierr.NewError("customer link missing after lost race").
				WithHintf("User %s has no external customer id", u.ID).
				Mark(ierr.ErrSystem)
		}
		s.logger.Warnw("lost customer link race, using existing Stripe customer",
			"user_id", u.ID,
			"created_customer_id", stripeCustomer.ID,
			"existing_customer_id", *current.ExternalCustomerID)
		return *current.ExternalCustomerID, nil
	}

	s.logger.Infow("linked user to Stripe customer",
		"user_id", u.ID,
		"stripe_customer_id", stripeCustomer.ID)

	return stripeCustomer.ID, nil
}

// ResolveUser looks up the local user linked to a Stripe customer id, with a
// read-through cache. A missing correlation returns (nil, nil); callers warn
// and skip rather than failing the event.
func (s *CustomerService) ResolveUser(ctx context.Context, stripeCustomerID string) (*user.User, error) {
	if stripeCustomerID == "" {
		return nil, nil
	}

	cacheKey := cache.GenerateKey(cache.PrefixCustomer, stripeCustomerID)
	if cached, found := s.cache.Get(ctx, cacheKey); found {
		if u, ok := cached.(*user.User); ok {
			return u, nil
		}
	}

	u, err := s.userRepo.GetByExternalCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	s.cache.Set(ctx, cacheKey, u, cache.DefaultExpiration)
	return u, nil
}
