package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Invoice status ids written when a payment settles part or all of the balance.
const (
	statusPartial = 5
	statusPaid    = 6
)

// Payment is money received against an invoice.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"-"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Repository provides database operations for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new payments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save records a payment and reduces the invoice balance in one transaction.
// The invoice moves to paid when the balance reaches zero, partial otherwise.
func (r *Repository) Save(ctx context.Context, p *Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT balance FROM invoices WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		p.InvoiceID, p.TenantID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("invoice not found")
		}
		return fmt.Errorf("failed to lock invoice: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, invoice_id, client_id, amount, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.TenantID, p.InvoiceID, p.ClientID, p.Amount, p.PaymentDate, p.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	remaining, status := ApplyPayment(balance, p.Amount)
	if _, err := tx.Exec(ctx, `
		UPDATE invoices SET balance = $3, invoice_status_id = $4, updated_at = $5
		WHERE id = $1 AND tenant_id = $2`,
		p.InvoiceID, p.TenantID, remaining, status, p.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to update invoice balance: %w", err)
	}

	return tx.Commit(ctx)
}

// ApplyPayment returns the balance left after paying amount and the resulting status id.
// Overpayment leaves a zero balance.
func ApplyPayment(balance, amount decimal.Decimal) (decimal.Decimal, int) {
	remaining := balance.Sub(amount)
	if remaining.Sign() <= 0 {
		return decimal.Zero, statusPaid
	}
	return remaining, statusPartial
}
