package stripe

import (
	"context"
	"testing"

	"github.com/paysync/paysync/internal/cache"
	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/domain/user"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/testutil"
	"github.com/paysync/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type CustomerServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	userRepo *testutil.InMemoryUserStore
	cache    cache.Cache
	service  *CustomerService
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceTestSuite))
}

func (s *CustomerServiceTestSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true

	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.userRepo = testutil.NewInMemoryUserStore()
	s.cache = cache.NewInMemoryCache(cfg)
	s.service = NewCustomerService(NewClient(cfg, log), s.userRepo, s.cache, log)
}

func (s *CustomerServiceTestSuite) seedUser(externalCustomerID *string) *user.User {
	u := &user.User{
		ID:                 "user_1",
		Email:              "ada@example.com",
		Name:               "Ada",
		ExternalCustomerID: externalCustomerID,
		BaseModel:          types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.userRepo.Create(s.ctx, u))
	return u
}

func (s *CustomerServiceTestSuite) TestEnsureCustomerReturnsExistingLink() {
	s.seedUser(lo.ToPtr("cus_existing"))

	// An already-linked user never reaches the Stripe API.
	customerID, err := s.service.EnsureCustomer(s.ctx, "user_1")
	s.NoError(err)
	s.Equal("cus_existing", customerID)
}

func (s *CustomerServiceTestSuite) TestEnsureCustomerUnknownUser() {
	_, err := s.service.EnsureCustomer(s.ctx, "user_missing")
	s.Error(err)
}

func (s *CustomerServiceTestSuite) TestResolveUserEmptyIDIsNil() {
	u, err := s.service.ResolveUser(s.ctx, "")
	s.NoError(err)
	s.Nil(u)
}

func (s *CustomerServiceTestSuite) TestResolveUserUnknownCustomerIsNil() {
	u, err := s.service.ResolveUser(s.ctx, "cus_unknown")
	s.NoError(err)
	s.Nil(u)
}

func (s *CustomerServiceTestSuite) TestResolveUserKnownCustomer() {
	seeded := s.seedUser(lo.ToPtr("cus_1"))

	u, err := s.service.ResolveUser(s.ctx, "cus_1")
	s.NoError(err)
	s.Require().NotNil(u)
	s.Equal(seeded.ID, u.ID)
}

func (s *CustomerServiceTestSuite) TestResolveUserReadsThroughCache() {
	s.seedUser(lo.ToPtr("cus_1"))

	u, err := s.service.ResolveUser(s.ctx, "cus_1")
	s.NoError(err)
	s.Require().NotNil(u)

	// A second lookup is served from the cache even after the backing row
	// disappears.
	s.userRepo.Clear()
	u, err = s.service.ResolveUser(s.ctx, "cus_1")
	s.NoError(err)
	s.Require().NotNil(u)
	s.Equal("user_1", u.ID)
}

func (s *CustomerServiceTestSuite) TestCustomerLinkIsWriteOnce() {
	s.seedUser(nil)

	written, err := s.userRepo.SetExternalCustomerID(s.ctx, "user_1", "cus_first")
	s.NoError(err)
	s.True(written)

	written, err = s.userRepo.SetExternalCustomerID(s.ctx, "user_1", "cus_second")
	s.NoError(err)
	s.False(written)

	u, err := s.userRepo.Get(s.ctx, "user_1")
	s.NoError(err)
	s.Require().NotNil(u.ExternalCustomerID)
	s.Equal("cus_first", *u.ExternalCustomerID)
}
