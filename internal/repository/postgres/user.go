package postgres

import (
	"context"

	"github.com/settlehq/settle/internal/domain/user"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
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
			id, email, name, wallet_address, smart_account_address,
			total_earned, total_invoices, total_paid_invoices,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :email, :name, :wallet_address, :smart_account_address,
			:total_earned, :total_invoices, :total_paid_invoices,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return wrapDBError(err, "Failed to create user", map[string]any{"email": u.Email})
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT * FROM users WHERE id = $1 AND status = $2`

	var u user.User
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, id, types.StatusPublished); err != nil {
		return nil, wrapDBError(err, "User not found", map[string]any{"user_id": id})
	}
	return &u, nil
}

func (r *userRepository) GetByWalletAddress(ctx context.Context, address string) (*user.User, error) {
	query := `SELECT * FROM users WHERE (wallet_address = $1 OR smart_account_address = $1) AND status = $2 LIMIT 1`

	var u user.User
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, address, types.StatusPublished); err != nil {
		return nil, wrapDBError(err, "User not found", map[string]any{"wallet_address": address})
	}
	return &u, nil
}

func (r *userRepository) IncrementInvoiceCount(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET total_invoices = total_invoices + 1,
			updated_at = NOW()
		WHERE id = :id`

	return r.execOne(ctx, query, map[string]interface{}{"id": id}, "Failed to update invoice count")
}

func (r *userRepository) RecordPayment(ctx context.Context, id string, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET total_earned = total_earned + :amount,
			total_paid_invoices = total_paid_invoices + 1,
			updated_at = NOW()
		WHERE id = :id`

	r.logger.Debugw("recording payment on owner totals",
		"user_id", id,
		"amount", amount,
	)

	return r.execOne(ctx, query, map[string]interface{}{
		"id":     id,
		"amount": amount,
	}, "Failed to update owner earnings")
}

func (r *userRepository) execOne(ctx context.Context, query string, params map[string]interface{}, hint string) error {
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return wrapDBError(err, hint, map[string]any{"user_id": params["id"]})
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, hint, map[string]any{"user_id": params["id"]})
	}
	if rows == 0 {
		return ierr.NewError("user not found").
			WithHint(hint).
			WithReportableDetails(map[string]any{"user_id": params["id"]}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
