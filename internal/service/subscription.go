package service

import (
	"context"

	"github.com/paysync/paysync/internal/api/dto"
	"github.com/paysync/paysync/internal/domain/subscription"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/types"
)

// SubscriptionService exposes read access to the local subscription records
type SubscriptionService interface {
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, req *dto.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error)
}

type subscriptionService struct {
	subRepo subscription.Repository
	logger  *logger.Logger
}

func NewSubscriptionService(subRepo subscription.Repository, logger *logger.Logger) SubscriptionService {
	return &subscriptionService{
		subRepo: subRepo,
		logger:  logger,
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invalid subscription id").
			WithHint("Subscription id is required").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, req *dto.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	filter := req.ToFilter()

	subs, err := s.subRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.subRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, dto.NewSubscriptionResponse(sub))
	}

	return &dto.ListSubscriptionsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(total, filter.Limit, filter.Offset),
	}, nil
}
