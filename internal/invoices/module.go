// Package invoices provides the invoices and quotes domain module.
package invoices

import (
	accountrepo "invoicing_backend/internal/accounts/repository"
	accountservice "invoicing_backend/internal/accounts/service"
	clientrepo "invoicing_backend/internal/clients/repository"
	clientservice "invoicing_backend/internal/clients/service"
	"invoicing_backend/internal/events"
	apphttp "invoicing_backend/internal/http"
	"invoicing_backend/internal/invoices/handler"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/service"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/logger"
	"invoicing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the configuration the invoices module reads.
type Config interface {
	config.AccountDefaultsConfig
	config.PortalConfig
}

// Module represents the invoices domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new invoices module with all dependencies wired.
// Products are looked up through catalog, which may be a cached finder.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Publisher,
	catalog service.ProductCatalog,
	val *validator.Validator,
	cfg Config,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	clients := clientrepo.New(pool)
	resolver := clientservice.NewResolver(clients, val, cfg.GetPhoneRegion())
	accounts := accountservice.New(accountrepo.New(pool), cfg)

	svc := service.New(repo, clients, resolver, accounts, catalog, log)
	svc.SetPaymentStore(paymentrepo.New(pool))
	svc.SetEventBus(eventBus)

	h := handler.New(svc, val)
	h.SetPortalBaseURL(cfg.GetAppBaseURL())

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "invoices"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the invoice store for adapters that load invoices directly.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetNotifier wires invoice and payment email delivery.
func (m *Module) SetNotifier(n service.Notifier) {
	m.service.SetNotifier(n)
}

// SetPDFSource wires PDF rendering for downloads.
func (m *Module) SetPDFSource(src handler.PDFSource) {
	m.handler.SetPDFSource(src)
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	invoices := ctx.Protected.Group("/invoices")
	m.handler.RegisterRoutes(invoices)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
