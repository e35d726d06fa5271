package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"invoicing_backend/platform/apperr"
)

const productNotFoundMessage = "product not found"

// Product is a catalog entry keyed by ProductKey within an account.
type Product struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"-"`
	ProductKey string          `json:"product_key"`
	Cost       decimal.Decimal `json:"cost"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ListParams defines filters for listing products.
type ListParams struct {
	TenantID uuid.UUID
	Search   string
	Offset   int
	Limit    int
}

// Repo implements read access to the product catalog.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// FindByKey returns the product with key in the tenant's catalog.
func (r *Repo) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (Product, error) {
	query := `
		SELECT id, tenant_id, product_key, cost, notes, created_at, updated_at
		FROM products
		WHERE tenant_id = $1 AND product_key = $2`

	var p Product
	if err := r.pool.QueryRow(ctx, query, tenantID, key).Scan(
		&p.ID, &p.TenantID, &p.ProductKey, &p.Cost, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("find product by key: %w", err)
	}
	return p, nil
}

// List returns products ordered by key, with the total count for pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	var search interface{}
	if s := strings.TrimSpace(params.Search); s != "" {
		search = "%" + s + "%"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR product_key ILIKE $2 OR notes ILIKE $2)`,
		params.TenantID, search,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, product_key, cost, notes, created_at, updated_at
		FROM products
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR product_key ILIKE $2 OR notes ILIKE $2)
		ORDER BY product_key ASC
		LIMIT $3 OFFSET $4`,
		params.TenantID, search, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.ProductKey, &p.Cost, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return items, total, nil
}
