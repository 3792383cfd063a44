package repository

import (
	"github.com/paysync/paysync/internal/domain/subscription"
	"github.com/paysync/paysync/internal/domain/transaction"
	"github.com/paysync/paysync/internal/domain/user"
	"github.com/paysync/paysync/internal/domain/webhookevent"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	postgresRepo "github.com/paysync/paysync/internal/repository/postgres"
)

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return postgresRepo.NewTransactionRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}
