package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paysync/paysync/internal/domain/user"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
)

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id,
			email,
			name,
			external_customer_id,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:email,
			:name,
			:external_customer_id,
			:status,
			:created_at,
			:updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create user").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var u user.User
	err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("user not found").
				WithHintf("No user with id %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get user").
			Mark(ierr.ErrDatabase)
	}

	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var u user.User
	err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("user not found").
				WithHintf("No user with email %s", email).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get user by email").
			Mark(ierr.ErrDatabase)
	}

	return &u, nil
}

func (r *userRepository) GetByExternalCustomerID(ctx context.Context, externalCustomerID string) (*user.User, error) {
	query := `SELECT * FROM users WHERE external_customer_id = $1`

	var u user.User
	err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, externalCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("user not found").
				WithHintf("No user linked to customer %s", externalCustomerID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get user by external customer id").
			Mark(ierr.ErrDatabase)
	}

	return &u, nil
}

// SetExternalCustomerID performs the write-once link as a conditional
// update; the WHERE clause is the per-user serialization point.
func (r *userRepository) SetExternalCustomerID(ctx context.Context, userID, externalCustomerID string) (bool, error) {
	query := `
		UPDATE users
		SET
			external_customer_id = :external_customer_id,
			updated_at = :updated_at
		WHERE
			id = :id AND
			external_customer_id IS NULL
	`

	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"external_customer_id": externalCustomerID,
		"updated_at":           time.Now().UTC(),
		"id":                   userID,
	})
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to set external customer id").
			Mark(ierr.ErrDatabase)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}

	return rows == 1, nil
}
