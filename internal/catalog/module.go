// Package catalog provides the catalog bounded context module.
package catalog

import (
	"invoicing_backend/internal/catalog/handler"
	"invoicing_backend/internal/catalog/repository"
	"invoicing_backend/internal/catalog/service"
	apphttp "invoicing_backend/internal/http"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/logger"
	"invoicing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	cache   *CachedFinder
}

// NewModule creates and initializes the catalog module. Product lookups go
// through redis when rdb is non-nil.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, cfg config.CatalogCacheConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	m := &Module{}
	var finder service.Finder = repo
	if rdb != nil {
		m.cache = NewCachedFinder(repo, rdb, cfg.GetCatalogCacheTTL(), log)
		finder = m.cache
	}

	m.service = service.New(repo, finder)
	m.handler = handler.New(m.service, val)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer; it satisfies the invoices ProductCatalog port.
func (m *Module) Service() *service.Service {
	return m.service
}

// Cache returns the product cache, or nil when redis is not configured.
func (m *Module) Cache() *CachedFinder {
	return m.cache
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/products", m.handler.ListProducts)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
