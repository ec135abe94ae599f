package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/invoice"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewInvoiceRepository creates a new instance of invoice repository
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, invoice_number, owner_id, client_name, client_email, client_wallet,
			title, description, amount, currency, due_date, invoice_status,
			contract_invoice_id, tx_hash, payment_tx_hash, is_on_chain, gas_sponsored,
			payment_link_id, metadata, sent_at, paid_at,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_number, :owner_id, :client_name, :client_email, :client_wallet,
			:title, :description, :amount, :currency, :due_date, :invoice_status,
			:contract_invoice_id, :tx_hash, :payment_tx_hash, :is_on_chain, :gas_sponsored,
			:payment_link_id, :metadata, :sent_at, :paid_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"owner_id", inv.OwnerID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return wrapDBError(err, "Failed to create invoice", map[string]any{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
		})
	}

	if len(inv.Items) == 0 {
		return nil
	}

	itemQuery := `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, total, created_at)
		VALUES (:id, :invoice_id, :description, :quantity, :unit_price, :total, :created_at)`

	for _, item := range inv.Items {
		item.InvoiceID = inv.ID
		if _, err := r.db.NamedExecContext(ctx, itemQuery, item); err != nil {
			return wrapDBError(err, "Failed to create invoice item", map[string]any{
				"invoice_id": inv.ID,
				"item_id":    item.ID,
			})
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, "id = :key", id)
}

func (r *invoiceRepository) GetByPaymentLinkID(ctx context.Context, linkID string) (*invoice.Invoice, error) {
	return r.getOne(ctx, "payment_link_id = :key", linkID)
}

func (r *invoiceRepository) getOne(ctx context.Context, predicate string, key string) (*invoice.Invoice, error) {
	query := fmt.Sprintf(`
		SELECT * FROM invoices
		WHERE %s
		AND status = :status`, predicate)

	params := map[string]interface{}{
		"key":    key,
		"status": types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to get invoice", map[string]any{"key": key})
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapDBError(err, "Failed to get invoice", map[string]any{"key": key})
		}
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s was not found", key).
			WithReportableDetails(map[string]any{"key": key}).
			Mark(ierr.ErrNotFound)
	}

	var inv invoice.Invoice
	if err := rows.StructScan(&inv); err != nil {
		return nil, wrapDBError(err, "Failed to scan invoice", map[string]any{"key": key})
	}
	rows.Close()

	items, err := r.getItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (r *invoiceRepository) getItems(ctx context.Context, invoiceID string) ([]*invoice.LineItem, error) {
	var items []*invoice.LineItem
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &items,
		`SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, wrapDBError(err, "Failed to get invoice items", map[string]any{"invoice_id": invoiceID})
	}
	return items, nil
}

// buildFilter renders the WHERE clause shared by List and Count
func (r *invoiceRepository) buildFilter(filter *types.InvoiceFilter) (string, map[string]interface{}) {
	conditions := []string{"status = :status"}
	params := map[string]interface{}{
		"status": types.StatusPublished,
	}
	if filter == nil {
		return strings.Join(conditions, " AND "), params
	}
	if filter.QueryFilter != nil {
		params["status"] = filter.GetStatus()
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = :owner_id")
		params["owner_id"] = filter.OwnerID
	}
	if len(filter.InvoiceStatus) > 0 {
		conditions = append(conditions, "invoice_status = ANY(:invoice_statuses)")
		params["invoice_statuses"] = pq.Array(lo.Map(filter.InvoiceStatus, func(s types.InvoiceStatus, _ int) string {
			return string(s)
		}))
	}
	if filter.Client != "" {
		conditions = append(conditions, "(client_email ILIKE :client OR client_wallet ILIKE :client OR client_name ILIKE :client)")
		params["client"] = "%" + filter.Client + "%"
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_date < :due_before")
		params["due_before"] = *filter.DueBefore
	}
	return strings.Join(conditions, " AND "), params
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	where, params := r.buildFilter(filter)
	query := "SELECT * FROM invoices WHERE " + where

	sort, order := types.FILTER_DEFAULT_SORT, types.FILTER_DEFAULT_ORDER
	if filter != nil && filter.QueryFilter != nil {
		sort, order = filter.GetSort(), filter.GetOrder()
		if !lo.Contains(invoiceSortColumns, sort) {
			sort = types.FILTER_DEFAULT_SORT
		}
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", sort, order, order)

	if filter != nil && filter.QueryFilter != nil && !filter.IsUnlimited() {
		query += " LIMIT :limit OFFSET :offset"
		params["limit"] = filter.GetLimit()
		params["offset"] = filter.GetOffset()
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list invoices", nil)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.StructScan(&inv); err != nil {
			return nil, wrapDBError(err, "Failed to scan invoice", nil)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "Error iterating invoice rows", nil)
	}
	return invoices, nil
}

var invoiceSortColumns = []string{"created_at", "updated_at", "due_date", "amount", "invoice_number"}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	where, params := r.buildFilter(filter)
	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM invoices WHERE "+where, params)
	if err != nil {
		return 0, wrapDBError(err, "Failed to count invoices", nil)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, wrapDBError(err, "Failed to scan invoice count", nil)
		}
	}
	return count, rows.Err()
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET
			title = :title,
			description = :description,
			due_date = :due_date,
			metadata = :metadata,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND invoice_status IN ('draft', 'sent')`

	params := map[string]interface{}{
		"id":          inv.ID,
		"title":       inv.Title,
		"description": inv.Description,
		"due_date":    inv.DueDate,
		"metadata":    inv.Metadata,
		"updated_by":  types.GetUserID(ctx),
		"status":      types.StatusPublished,
	}

	r.logger.Debugw("updating invoice", "invoice_id", inv.ID)

	return r.execOne(ctx, query, params, "Failed to update invoice", inv.ID)
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE invoices
		SET
			status = :deleted,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND invoice_status <> 'paid'`

	params := map[string]interface{}{
		"id":         id,
		"deleted":    types.StatusDeleted,
		"updated_by": types.GetUserID(ctx),
		"status":     types.StatusPublished,
	}

	r.logger.Debugw("deleting invoice", "invoice_id", id)

	return r.execOne(ctx, query, params, "Failed to delete invoice", id)
}

// execOne runs a statement that must touch exactly one row
func (r *invoiceRepository) execOne(ctx context.Context, query string, params map[string]interface{}, hint string, id string) error {
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return wrapDBError(err, hint, map[string]any{"invoice_id": id})
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, hint, map[string]any{"invoice_id": id})
	}
	if rows == 0 {
		return ierr.NewError("invoice not found or not editable").
			WithHint(hint).
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// execCAS runs a conditional update and reports whether it matched
func (r *invoiceRepository) execCAS(ctx context.Context, query string, params map[string]interface{}, hint string) (bool, error) {
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return false, wrapDBError(err, hint, map[string]any{"invoice_id": params["id"]})
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError(err, hint, map[string]any{"invoice_id": params["id"]})
	}
	return rows > 0, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id string, from []types.InvoiceStatus, to types.InvoiceStatus) (bool, error) {
	query := `
		UPDATE invoices
		SET
			invoice_status = :to,
			sent_at = CASE WHEN :to = 'sent' AND sent_at IS NULL THEN NOW() ELSE sent_at END,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND invoice_status = ANY(:from)`

	params := map[string]interface{}{
		"id": id,
		"to": to,
		"from": pq.Array(lo.Map(from, func(s types.InvoiceStatus, _ int) string {
			return string(s)
		})),
		"updated_by": types.GetUserID(ctx),
		"status":     types.StatusPublished,
	}

	r.logger.Debugw("updating invoice status",
		"invoice_id", id,
		"from", from,
		"to", to,
	)

	return r.execCAS(ctx, query, params, "Failed to update invoice status")
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id string, paymentTxHash string, paidAt time.Time, from []types.InvoiceStatus) (bool, error) {
	query := `
		UPDATE invoices
		SET
			invoice_status = 'paid',
			paid_at = :paid_at,
			payment_tx_hash = :payment_tx_hash,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND invoice_status = ANY(:from)`

	params := map[string]interface{}{
		"id":              id,
		"paid_at":         paidAt,
		"payment_tx_hash": paymentTxHash,
		"from": pq.Array(lo.Map(from, func(s types.InvoiceStatus, _ int) string {
			return string(s)
		})),
		"updated_by":      types.GetUserID(ctx),
		"status":          types.StatusPublished,
	}

	return r.execCAS(ctx, query, params, "Failed to mark invoice paid")
}

func (r *invoiceRepository) MarkOnChain(ctx context.Context, id string, txHash string) (bool, error) {
	query := `
		UPDATE invoices
		SET
			is_on_chain = TRUE,
			gas_sponsored = TRUE,
			tx_hash = :tx_hash,
			invoice_status = CASE WHEN invoice_status = 'draft' THEN 'sent' ELSE invoice_status END,
			sent_at = COALESCE(sent_at, NOW()),
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND is_on_chain = FALSE
		AND invoice_status IN ('draft', 'sent')`

	params := map[string]interface{}{
		"id":         id,
		"tx_hash":    txHash,
		"updated_by": types.GetUserID(ctx),
		"status":     types.StatusPublished,
	}

	return r.execCAS(ctx, query, params, "Failed to mark invoice on chain")
}

func (r *invoiceRepository) MarkPaymentSubmitted(ctx context.Context, id string, gasSponsored bool) (bool, error) {
	query := `
		UPDATE invoices
		SET
			invoice_status = 'pending',
			gas_sponsored = gas_sponsored OR :gas_sponsored,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND status = :status
		AND invoice_status IN ('sent', 'pending')`

	params := map[string]interface{}{
		"id":            id,
		"gas_sponsored": gasSponsored,
		"updated_by":    types.GetUserID(ctx),
		"status":        types.StatusPublished,
	}

	return r.execCAS(ctx, query, params, "Failed to mark invoice payment submitted")
}

func (r *invoiceRepository) SetContractInvoiceID(ctx context.Context, id string, contractInvoiceID int64) error {
	query := `
		UPDATE invoices
		SET
			contract_invoice_id = :contract_invoice_id,
			updated_at = NOW()
		WHERE id = :id
		AND contract_invoice_id IS NULL`

	params := map[string]interface{}{
		"id":                  id,
		"contract_invoice_id": contractInvoiceID,
	}

	_, err := r.execCAS(ctx, query, params, "Failed to set contract invoice id")
	return err
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE invoices
		SET
			invoice_status = 'overdue',
			updated_at = NOW()
		WHERE status = :status
		AND invoice_status IN ('sent', 'pending')
		AND due_date < :now
		RETURNING id`

	params := map[string]interface{}{
		"now":    now,
		"status": types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to mark invoices overdue", nil)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError(err, "Failed to scan overdue invoice id", nil)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context, year int) (string, error) {
	query := `
		INSERT INTO invoice_sequences (year, last_value)
		VALUES (:year, 1)
		ON CONFLICT (year) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1,
			updated_at = NOW()
		RETURNING last_value`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"year": year})
	if err != nil {
		return "", wrapDBError(err, "Failed to allocate invoice number", map[string]any{"year": year})
	}
	defer rows.Close()

	var seq int64
	if !rows.Next() {
		return "", ierr.NewError("invoice sequence returned no value").
			WithHint("Failed to allocate invoice number").
			Mark(ierr.ErrDatabase)
	}
	if err := rows.Scan(&seq); err != nil {
		return "", wrapDBError(err, "Failed to scan invoice sequence", map[string]any{"year": year})
	}

	return invoice.FormatInvoiceNumber(year, seq), nil
}

func (r *invoiceRepository) GetOwnerStats(ctx context.Context, ownerID string) (*invoice.OwnerStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_invoices,
			COUNT(*) FILTER (WHERE invoice_status = 'paid') AS paid_invoices,
			COUNT(*) FILTER (WHERE invoice_status = 'overdue') AS overdue_count,
			COALESCE(SUM(amount) FILTER (WHERE invoice_status = 'paid'), 0) AS total_paid,
			COALESCE(SUM(amount) FILTER (WHERE invoice_status IN ('sent', 'pending')), 0) AS total_pending,
			COALESCE(ROUND(CAST(AVG(EXTRACT(EPOCH FROM (paid_at - created_at)) / 3600)
				FILTER (WHERE invoice_status = 'paid' AND paid_at IS NOT NULL) AS NUMERIC), 1), 0) AS avg_payment_hours
		FROM invoices
		WHERE owner_id = $1
		AND status = $2`

	var stats invoice.OwnerStats
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &stats, query, ownerID, types.StatusPublished); err != nil {
		return nil, wrapDBError(err, "Failed to compute invoice stats", map[string]any{"owner_id": ownerID})
	}
	return &stats, nil
}
