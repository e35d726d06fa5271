package service

import (
	"context"
	"strings"

	"invoicing_backend/internal/catalog/repository"
	"invoicing_backend/internal/catalog/transport"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Lister lists catalog products.
type Lister interface {
	List(ctx context.Context, params repository.ListParams) ([]repository.Product, int, error)
}

// Finder looks up a product by key within a tenant.
type Finder interface {
	FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (repository.Product, error)
}

var (
	_ Lister = (*repository.Repo)(nil)
	_ Finder = (*repository.Repo)(nil)
)

// Service provides business logic for the product catalog.
type Service struct {
	repo   Lister
	finder Finder
}

// New creates a catalog service. finder may be a cache in front of the repository.
func New(repo Lister, finder Finder) *Service {
	return &Service{repo: repo, finder: finder}
}

// FindByKey resolves a product key for invoice line items.
func (s *Service) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (repository.Product, error) {
	return s.finder.FindByKey(ctx, tenantID, strings.TrimSpace(key))
}

// ListProducts returns a page of the tenant's products.
func (s *Service) ListProducts(ctx context.Context, tenantID uuid.UUID, req transport.ListProductsRequest) (transport.ProductListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		TenantID: tenantID,
		Search:   strings.TrimSpace(req.Search),
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return transport.ProductListResponse{}, err
	}

	return toProductListResponse(items, total, page, pageSize), nil
}

func toProductListResponse(items []repository.Product, total, page, pageSize int) transport.ProductListResponse {
	out := make([]transport.ProductResponse, 0, len(items))
	for _, p := range items {
		out = append(out, transport.ProductResponse{
			ID:         p.ID,
			ProductKey: p.ProductKey,
			Cost:       p.Cost,
			Notes:      p.Notes,
			UpdatedAt:  p.UpdatedAt,
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return transport.ProductListResponse{
		Items:      out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
