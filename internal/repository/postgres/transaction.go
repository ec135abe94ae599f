package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

type transactionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewTransactionRepository creates a new instance of transaction repository
func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, tx_hash, transaction_type, transaction_status, amount, from_address, to_address,
			block_number, gas_used, gas_price, is_sponsored, invoice_id, user_id, metadata, confirmed_at,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :tx_hash, :transaction_type, :transaction_status, :amount, :from_address, :to_address,
			:block_number, :gas_used, :gas_price, :is_sponsored, :invoice_id, :user_id, :metadata, :confirmed_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("recording transaction",
		"transaction_id", txn.ID,
		"tx_hash", txn.TxHash,
		"type", txn.TransactionType,
	)

	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A transaction with this hash is already tracked").
				WithReportableDetails(map[string]any{
					"tx_hash": txn.TxHash,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapDBError(err, "Failed to record transaction", map[string]any{"tx_hash": txn.TxHash})
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	return r.getOne(ctx, "id = :key", id)
}

func (r *transactionRepository) GetByHash(ctx context.Context, txHash string) (*transaction.Transaction, error) {
	return r.getOne(ctx, "tx_hash = :key", txHash)
}

func (r *transactionRepository) FindByCorrelation(ctx context.Context, opHash string) (*transaction.Transaction, error) {
	return r.getOne(ctx,
		"(metadata->>'user_op_hash' = :key OR metadata->>'submitted_hash' = :key OR tx_hash = :key)",
		opHash)
}

func (r *transactionRepository) getOne(ctx context.Context, predicate string, key string) (*transaction.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT * FROM transactions
		WHERE %s
		AND status = :status
		ORDER BY created_at DESC
		LIMIT 1`, predicate)

	params := map[string]interface{}{
		"key":    key,
		"status": types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to get transaction", map[string]any{"key": key})
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapDBError(err, "Failed to get transaction", map[string]any{"key": key})
		}
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction %s was not found", key).
			WithReportableDetails(map[string]any{"key": key}).
			Mark(ierr.ErrNotFound)
	}

	var txn transaction.Transaction
	if err := rows.StructScan(&txn); err != nil {
		return nil, wrapDBError(err, "Failed to scan transaction", map[string]any{"key": key})
	}
	return &txn, nil
}

func (r *transactionRepository) buildFilter(filter *types.TransactionFilter) (string, map[string]interface{}) {
	conditions := []string{"status = :status"}
	params := map[string]interface{}{
		"status": types.StatusPublished,
	}
	if filter == nil {
		return strings.Join(conditions, " AND "), params
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = :user_id")
		params["user_id"] = filter.UserID
	}
	if filter.InvoiceID != "" {
		conditions = append(conditions, "invoice_id = :invoice_id")
		params["invoice_id"] = filter.InvoiceID
	}
	if len(filter.TransactionType) > 0 {
		conditions = append(conditions, "transaction_type = ANY(:transaction_types)")
		params["transaction_types"] = pq.Array(lo.Map(filter.TransactionType, func(t types.TransactionType, _ int) string {
			return string(t)
		}))
	}
	if len(filter.TransactionStatus) > 0 {
		conditions = append(conditions, "transaction_status = ANY(:transaction_statuses)")
		params["transaction_statuses"] = pq.Array(lo.Map(filter.TransactionStatus, func(s types.TransactionStatus, _ int) string {
			return string(s)
		}))
	}
	if filter.Sponsored != nil {
		conditions = append(conditions, "is_sponsored = :is_sponsored")
		params["is_sponsored"] = *filter.Sponsored
	}
	return strings.Join(conditions, " AND "), params
}

func (r *transactionRepository) List(ctx context.Context, filter *types.TransactionFilter) ([]*transaction.Transaction, error) {
	where, params := r.buildFilter(filter)
	query := "SELECT * FROM transactions WHERE " + where

	order := types.FILTER_DEFAULT_ORDER
	if filter != nil && filter.QueryFilter != nil {
		order = filter.GetOrder()
	}
	query += fmt.Sprintf(" ORDER BY created_at %s, id %s", order, order)

	if filter != nil && filter.QueryFilter != nil && !filter.IsUnlimited() {
		query += " LIMIT :limit OFFSET :offset"
		params["limit"] = filter.GetLimit()
		params["offset"] = filter.GetOffset()
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list transactions", nil)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		var txn transaction.Transaction
		if err := rows.StructScan(&txn); err != nil {
			return nil, wrapDBError(err, "Failed to scan transaction", nil)
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "Error iterating transaction rows", nil)
	}
	return txns, nil
}

func (r *transactionRepository) Count(ctx context.Context, filter *types.TransactionFilter) (int, error) {
	where, params := r.buildFilter(filter)
	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, params)
	if err != nil {
		return 0, wrapDBError(err, "Failed to count transactions", nil)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, wrapDBError(err, "Failed to scan transaction count", nil)
		}
	}
	return count, rows.Err()
}

func (r *transactionRepository) Settle(ctx context.Context, id string, s *transaction.Settlement) (bool, error) {
	query := `
		UPDATE transactions
		SET
			transaction_status = :transaction_status,
			block_number = COALESCE(:block_number, block_number),
			gas_used = COALESCE(:gas_used, gas_used),
			gas_price = COALESCE(:gas_price, gas_price),
			confirmed_at = CASE WHEN :transaction_status = 'confirmed' THEN :settled_at ELSE confirmed_at END,
			metadata = :metadata,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND transaction_status = 'pending'`

	params := map[string]interface{}{
		"id":                 id,
		"transaction_status": s.Status,
		"block_number":       s.BlockNumber,
		"gas_used":           s.GasUsed,
		"gas_price":          s.GasPrice,
		"settled_at":         s.SettledAt,
		"metadata":           s.Metadata,
		"updated_by":         types.GetUserID(ctx),
	}

	r.logger.Debugw("settling transaction",
		"transaction_id", id,
		"transaction_status", s.Status,
	)

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ierr.WithError(err).
				WithHint("The invoice already has a confirmed payment").
				WithReportableDetails(map[string]any{
					"transaction_id": id,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return false, wrapDBError(err, "Failed to settle transaction", map[string]any{"transaction_id": id})
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError(err, "Failed to settle transaction", map[string]any{"transaction_id": id})
	}
	return rows > 0, nil
}

func (r *transactionRepository) UpdateMetadata(ctx context.Context, id string, metadata types.TransactionMetadata) error {
	query := `
		UPDATE transactions
		SET
			metadata = :metadata,
			updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":       id,
		"metadata": metadata,
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return wrapDBError(err, "Failed to update transaction metadata", map[string]any{"transaction_id": id})
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "Failed to update transaction metadata", map[string]any{"transaction_id": id})
	}
	if rows == 0 {
		return ierr.NewError("transaction not found").
			WithHintf("Transaction %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *transactionRepository) SumSponsoredGas(ctx context.Context, userID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(gas_used), 0)
		FROM transactions
		WHERE user_id = $1
		AND is_sponsored = TRUE
		AND status = $2`

	var total decimal.Decimal
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &total, query, userID, types.StatusPublished); err != nil {
		return decimal.Zero, wrapDBError(err, "Failed to sum sponsored gas", map[string]any{"user_id": userID})
	}
	return total, nil
}
