package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/domain/user"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/internal/repository"
	"github.com/paysync/paysync/internal/types"
)

// SeedUser inserts a local user for development. The Stripe customer link is
// left empty; it is written on first checkout.
func SeedUser() error {
	email := os.Getenv("USER_EMAIL")
	if email == "" {
		return fmt.Errorf("USER_EMAIL is required")
	}
	name := os.Getenv("USER_NAME")
	if name == "" {
		name = email
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, log)

	u := &user.User{
		ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixUser),
		Email:     email,
		Name:      name,
		BaseModel: types.GetDefaultBaseModel(),
	}

	if err := userRepo.Create(context.Background(), u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", u.ID, u.Email)
	return nil
}
