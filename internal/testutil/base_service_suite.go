package testutil

import (
	"context"
	"time"

	"github.com/paysync/paysync/internal/cache"
	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/domain/subscription"
	"github.com/paysync/paysync/internal/domain/transaction"
	"github.com/paysync/paysync/internal/domain/user"
	"github.com/paysync/paysync/internal/domain/webhookevent"
	"github.com/paysync/paysync/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	WebhookEventRepo webhookevent.Repository
	TransactionRepo  transaction.Repository
	SubscriptionRepo subscription.Repository
	UserRepo         user.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.stores = Stores{
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
		TransactionRepo:  NewInMemoryTransactionStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		UserRepo:         NewInMemoryUserStore(),
	}
	s.cache = cache.NewInMemoryCache(s.config)
	s.now = time.Now().UTC()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the test start time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
