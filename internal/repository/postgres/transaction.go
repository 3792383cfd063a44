package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paysync/paysync/internal/domain/transaction"
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/internal/types"
)

type transactionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id,
			user_id,
			external_reference_id,
			type,
			amount,
			currency,
			transaction_status,
			description,
			metadata,
			stripe_fee,
			net_amount,
			failure_reason,
			processed_at,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:external_reference_id,
			:type,
			:amount,
			:currency,
			:transaction_status,
			:description,
			:metadata,
			:stripe_fee,
			:net_amount,
			:failure_reason,
			:processed_at,
			:status,
			:created_at,
			:updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, txn)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT * FROM transactions WHERE id = $1`

	var txn transaction.Transaction
	err := r.db.GetQuerier(ctx).GetContext(ctx, &txn, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("transaction not found").
				WithHintf("No transaction with id %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction").
			Mark(ierr.ErrDatabase)
	}

	return &txn, nil
}

func (r *transactionRepository) GetByExternalReferenceID(ctx context.Context, externalRef string) (*transaction.Transaction, error) {
	query := `
		SELECT * FROM transactions
		WHERE external_reference_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var txn transaction.Transaction
	err := r.db.GetQuerier(ctx).GetContext(ctx, &txn, query, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("transaction not found").
				WithHintf("No transaction with reference %s", externalRef).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction by reference").
			Mark(ierr.ErrDatabase)
	}

	return &txn, nil
}

func (r *transactionRepository) List(ctx context.Context, filter *transaction.Filter) ([]*transaction.Transaction, error) {
	query := `SELECT * FROM transactions WHERE 1=1`
	params := map[string]interface{}{
		"limit":  50,
		"offset": 0,
	}

	if filter != nil {
		if filter.UserID != "" {
			query += " AND user_id = :user_id"
			params["user_id"] = filter.UserID
		}
		if filter.Type != "" {
			query += " AND type = :type"
			params["type"] = filter.Type
		}
		if filter.Limit > 0 {
			params["limit"] = filter.Limit
		}
		if filter.Offset > 0 {
			params["offset"] = filter.Offset
		}
	}

	query += " ORDER BY created_at DESC LIMIT :limit OFFSET :offset"

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var txn transaction.Transaction
		if err := rows.StructScan(&txn); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan transaction").
				Mark(ierr.ErrDatabase)
		}
		transactions = append(transactions, &txn)
	}

	return transactions, nil
}

func (r *transactionRepository) Count(ctx context.Context, filter *transaction.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE 1=1`
	params := map[string]interface{}{}

	if filter != nil {
		if filter.UserID != "" {
			query += " AND user_id = :user_id"
			params["user_id"] = filter.UserID
		}
		if filter.Type != "" {
			query += " AND type = :type"
			params["type"] = filter.Type
		}
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	count := 0
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to scan transaction count").
				Mark(ierr.ErrDatabase)
		}
	}

	return count, nil
}

func (r *transactionRepository) UpdateStatusByReference(ctx context.Context, externalRef string, status types.TransactionStatus, failureReason *string) (int64, error) {
	query := `
		UPDATE transactions
		SET
			transaction_status = :transaction_status,
			failure_reason = COALESCE(:failure_reason, failure_reason),
			updated_at = :updated_at
		WHERE external_reference_id = :external_reference_id
	`

	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"transaction_status":    status,
		"failure_reason":        failureReason,
		"updated_at":            time.Now().UTC(),
		"external_reference_id": externalRef,
	})
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to update transaction status").
			Mark(ierr.ErrDatabase)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}

	return rows, nil
}
