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
)

// Settings holds the per-account invoicing preferences.
type Settings struct {
	TenantID        uuid.UUID
	InvoiceDesignID int
	Timezone        string
	CurrencyCode    string
	UpdatedAt       time.Time
}

// Repository provides database operations for account settings.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new account settings repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the settings row for a tenant.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, invoice_design_id, timezone, currency_code, updated_at
		FROM account_settings WHERE tenant_id = $1`, tenantID,
	).Scan(&s.TenantID, &s.InvoiceDesignID, &s.Timezone, &s.CurrencyCode, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, apperr.NotFound("account settings not found")
		}
		return Settings{}, fmt.Errorf("failed to get account settings: %w", err)
	}
	return s, nil
}
