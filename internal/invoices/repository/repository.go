package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Repository ────────────────────────────────────────────────────────────────

const (
	invoiceNotFoundMsg    = "invoice not found"
	duplicateNumberMsg    = "invoice number already in use"
	pgUniqueViolationCode = "23505"
)

const invoiceColumns = `id, tenant_id, client_id, invoice_number, is_quote, quote_id, invoice_status_id,
	invoice_date, due_date, discount, is_amount_discount, terms, invoice_footer, public_notes,
	po_number, invoice_design_id, custom_value1, custom_value2, custom_taxes1, custom_taxes2,
	partial, tax_name1, tax_rate1, tax_name2, tax_rate2, amount, balance,
	archived_at, deleted_at, created_at, updated_at`

const itemColumns = `id, invoice_id, tenant_id, product_key, notes, cost, qty,
	tax_name1, tax_rate1, tax_name2, tax_rate2, sort_order`

const invitationColumns = `id, tenant_id, invoice_id, contact_id, invitation_key, sent_at, viewed_at, created_at`

// Repository provides database operations for invoices and quotes.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new invoices repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an invoice with its items and one invitation per client contact
// in a single transaction. A blank InvoiceNumber is assigned from the tenant's counter.
func (r *Repository) Create(ctx context.Context, inv *Invoice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if inv.InvoiceNumber == "" {
		number, err := nextNumber(ctx, tx, inv.TenantID, inv.IsQuote)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
	}

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`

	if _, err := tx.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.ClientID, inv.InvoiceNumber, inv.IsQuote, inv.QuoteID, int(inv.Status),
		inv.InvoiceDate, inv.DueDate, inv.Discount, inv.IsAmountDiscount, inv.Terms, inv.InvoiceFooter, inv.PublicNotes,
		inv.PONumber, inv.InvoiceDesignID, inv.CustomValue1, inv.CustomValue2, inv.CustomTaxes1, inv.CustomTaxes2,
		inv.Partial, inv.TaxName1, inv.TaxRate1, inv.TaxName2, inv.TaxRate2, inv.Amount, inv.Balance,
		inv.ArchivedAt, inv.DeletedAt, inv.CreatedAt, inv.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(duplicateNumberMsg)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	if err := insertItems(ctx, tx, inv.Items); err != nil {
		return err
	}
	if err := ensureInvitations(ctx, tx, inv); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update writes the invoice header, replaces its items and adds invitations for
// contacts that do not have one yet, in a single transaction.
func (r *Repository) Update(ctx context.Context, inv *Invoice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var stored storedTotals
	var storedStatus int
	err = tx.QueryRow(ctx,
		`SELECT amount, balance, invoice_status_id FROM invoices WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		inv.ID, inv.TenantID,
	).Scan(&stored.Amount, &stored.Balance, &storedStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(invoiceNotFoundMsg)
		}
		return fmt.Errorf("failed to lock invoice: %w", err)
	}
	stored.Status = Status(storedStatus)
	reconcilePayments(inv, stored)

	query := `
		UPDATE invoices SET
			client_id = $3, invoice_number = $4, invoice_status_id = $5, invoice_date = $6, due_date = $7,
			discount = $8, is_amount_discount = $9, terms = $10, invoice_footer = $11, public_notes = $12,
			po_number = $13, invoice_design_id = $14, custom_value1 = $15, custom_value2 = $16,
			custom_taxes1 = $17, custom_taxes2 = $18, partial = $19,
			tax_name1 = $20, tax_rate1 = $21, tax_name2 = $22, tax_rate2 = $23,
			amount = $24, balance = $25, updated_at = $26
		WHERE id = $1 AND tenant_id = $2`

	result, err := tx.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.ClientID, inv.InvoiceNumber, int(inv.Status), inv.InvoiceDate, inv.DueDate,
		inv.Discount, inv.IsAmountDiscount, inv.Terms, inv.InvoiceFooter, inv.PublicNotes,
		inv.PONumber, inv.InvoiceDesignID, inv.CustomValue1, inv.CustomValue2,
		inv.CustomTaxes1, inv.CustomTaxes2, inv.Partial,
		inv.TaxName1, inv.TaxRate1, inv.TaxName2, inv.TaxRate2,
		inv.Amount, inv.Balance, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(duplicateNumberMsg)
		}
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1 AND tenant_id = $2`, inv.ID, inv.TenantID); err != nil {
		return fmt.Errorf("failed to delete old invoice items: %w", err)
	}
	if err := insertItems(ctx, tx, inv.Items); err != nil {
		return err
	}
	if err := ensureInvitations(ctx, tx, inv); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an invoice with its items and invitations. Soft-deleted
// invoices are returned too.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND tenant_id = $2`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(invoiceNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.itemsFor(ctx, tenantID, []uuid.UUID{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]

	if inv.Invitations, err = r.GetInvitations(ctx, inv.ID, tenantID); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvitations returns the invitations of an invoice.
func (r *Repository) GetInvitations(ctx context.Context, invoiceID, tenantID uuid.UUID) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE invoice_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`,
		invoiceID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]Invitation, 0, 1)
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(
			&inv.ID, &inv.TenantID, &inv.InvoiceID, &inv.ContactID, &inv.InvitationKey,
			&inv.SentAt, &inv.ViewedAt, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

// List retrieves invoices newest first, including soft-deleted ones, each with its items.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var clientParam interface{}
	if params.ClientID != nil {
		clientParam = *params.ClientID
	}
	var quoteParam interface{}
	if params.IsQuote != nil {
		quoteParam = *params.IsQuote
	}
	var numberParam interface{}
	if params.InvoiceNumber != "" {
		numberParam = "%" + params.InvoiceNumber + "%"
	}

	baseQuery := `
		FROM invoices
		WHERE tenant_id = $1
			AND ($2::uuid IS NULL OR client_id = $2)
			AND ($3::boolean IS NULL OR is_quote = $3)
			AND ($4::text IS NULL OR invoice_number ILIKE $4)
	`
	args := []interface{}{params.TenantID, clientParam, quoteParam, numberParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + invoiceColumns + baseQuery + `
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		items = append(items, *inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	lineItems, err := r.itemsFor(ctx, params.TenantID, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Items = lineItems[items[i].ID]
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// SoftDelete marks an invoice deleted.
func (r *Repository) SoftDelete(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error {
	return r.execOne(ctx, "soft delete invoice",
		`UPDATE invoices SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, at)
}

// Archive hides an invoice from active views without deleting it.
func (r *Repository) Archive(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error {
	return r.execOne(ctx, "archive invoice",
		`UPDATE invoices SET archived_at = $3, updated_at = $3 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, at)
}

// Restore clears both the archived and deleted markers.
func (r *Repository) Restore(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error {
	return r.execOne(ctx, "restore invoice",
		`UPDATE invoices SET archived_at = NULL, deleted_at = NULL, updated_at = $3 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, at)
}

// MarkSent stamps all unsent invitations and moves a draft invoice to sent.
func (r *Repository) MarkSent(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_status_id = CASE WHEN invoice_status_id = $3 THEN $4 ELSE invoice_status_id END,
			updated_at = $5
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, int(StatusDraft), int(StatusSent), at)
	if err != nil {
		return fmt.Errorf("failed to mark invoice sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE invitations SET sent_at = $3 WHERE invoice_id = $1 AND tenant_id = $2 AND sent_at IS NULL`,
		id, tenantID, at); err != nil {
		return fmt.Errorf("failed to mark invitations sent: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}
	return nil
}

func (r *Repository) itemsFor(ctx context.Context, tenantID uuid.UUID, invoiceIDs []uuid.UUID) (map[uuid.UUID][]LineItem, error) {
	result := make(map[uuid.UUID][]LineItem, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM invoice_items WHERE tenant_id = $1 AND invoice_id = ANY($2)
		 ORDER BY invoice_id, sort_order ASC`,
		tenantID, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.TenantID, &it.ProductKey, &it.Notes, &it.Cost, &it.Qty,
			&it.TaxName1, &it.TaxRate1, &it.TaxName2, &it.TaxRate2, &it.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		result[it.InvoiceID] = append(result[it.InvoiceID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return result, nil
}

// nextNumber atomically generates the next invoice or quote number for a tenant.
// rowQuerier is the part of pgx.Tx the numbering needs.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nextNumber bumps the tenant's counter until it yields a number no invoice
// holds yet, so manually numbered invoices never block the sequence.
func nextNumber(ctx context.Context, q rowQuerier, tenantID uuid.UUID, isQuote bool) (string, error) {
	kind, prefix := "invoice", "INV"
	if isQuote {
		kind, prefix = "quote", "QUO"
	}

	for {
		var next int
		if err := q.QueryRow(ctx, bumpCounterQuery, tenantID, kind).Scan(&next); err != nil {
			return "", fmt.Errorf("failed to generate invoice number: %w", err)
		}
		number := FormatNumber(prefix, next)

		var taken bool
		if err := q.QueryRow(ctx, numberTakenQuery, tenantID, number).Scan(&taken); err != nil {
			return "", fmt.Errorf("failed to check invoice number: %w", err)
		}
		if !taken {
			return number, nil
		}
	}
}

const bumpCounterQuery = `
	INSERT INTO invoice_counters (tenant_id, kind, last_number)
	VALUES ($1, $2, 1)
	ON CONFLICT (tenant_id, kind) DO UPDATE SET last_number = invoice_counters.last_number + 1
	RETURNING last_number`

const numberTakenQuery = `SELECT EXISTS (SELECT 1 FROM invoices WHERE tenant_id = $1 AND invoice_number = $2)`

// storedTotals is the payment state of a locked invoice row.
type storedTotals struct {
	Amount  decimal.Decimal
	Balance decimal.Decimal
	Status  Status
}

// reconcilePayments rebases inv's balance on the payments already applied to
// the stored row. A payment status set by a payment is not moved back.
func reconcilePayments(inv *Invoice, stored storedTotals) {
	paid := stored.Amount.Sub(stored.Balance)
	inv.Balance = inv.Amount.Sub(paid)
	if inv.Balance.Sign() < 0 {
		inv.Balance = decimal.Zero
	}
	if stored.Status >= StatusPartial && inv.Status < StatusPartial {
		inv.Status = stored.Status
	}
}

// FormatNumber renders a counter value as an invoice number, e.g. INV-0007.
func FormatNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

func insertItems(ctx context.Context, tx pgx.Tx, items []LineItem) error {
	query := `INSERT INTO invoice_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, it := range items {
		if _, err := tx.Exec(ctx, query,
			it.ID, it.InvoiceID, it.TenantID, it.ProductKey, it.Notes, it.Cost, it.Qty,
			it.TaxName1, it.TaxRate1, it.TaxName2, it.TaxRate2, it.SortOrder,
		); err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}

// ensureInvitations creates an invitation for every contact of the invoice's
// client that does not have one yet.
func ensureInvitations(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	query := `
		INSERT INTO invitations (id, tenant_id, invoice_id, contact_id, invitation_key, created_at)
		SELECT gen_random_uuid(), c.tenant_id, $1, c.id, replace(gen_random_uuid()::text, '-', ''), now()
		FROM contacts c
		WHERE c.client_id = $2 AND c.tenant_id = $3
		ON CONFLICT (invoice_id, contact_id) DO NOTHING`

	if _, err := tx.Exec(ctx, query, inv.ID, inv.ClientID, inv.TenantID); err != nil {
		return fmt.Errorf("failed to create invitations: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status int
	if err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.ClientID, &inv.InvoiceNumber, &inv.IsQuote, &inv.QuoteID, &status,
		&inv.InvoiceDate, &inv.DueDate, &inv.Discount, &inv.IsAmountDiscount, &inv.Terms, &inv.InvoiceFooter, &inv.PublicNotes,
		&inv.PONumber, &inv.InvoiceDesignID, &inv.CustomValue1, &inv.CustomValue2, &inv.CustomTaxes1, &inv.CustomTaxes2,
		&inv.Partial, &inv.TaxName1, &inv.TaxRate1, &inv.TaxName2, &inv.TaxRate2, &inv.Amount, &inv.Balance,
		&inv.ArchivedAt, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.Status = Status(status)
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}
