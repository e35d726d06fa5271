package service

import (
	"context"
	"time"

	accountservice "invoicing_backend/internal/accounts/service"
	catalogrepo "invoicing_backend/internal/catalog/repository"
	clientrepo "invoicing_backend/internal/clients/repository"
	clientservice "invoicing_backend/internal/clients/service"
	"invoicing_backend/internal/invoices/repository"
	paymentrepo "invoicing_backend/internal/payments/repository"

	"github.com/google/uuid"
)

// ClientResolver finds or creates the client that owns a new invoice.
type ClientResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, req clientservice.ResolveRequest) (*clientrepo.Client, error)
}

// ClientStore reads clients to hydrate invoices.
type ClientStore interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*clientrepo.Client, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID, tenantID uuid.UUID) (map[uuid.UUID]*clientrepo.Client, error)
}

// ProductCatalog looks up a product by key within a tenant.
type ProductCatalog interface {
	FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (catalogrepo.Product, error)
}

// InvoiceStore persists invoices. Implemented by repository.Repository.
type InvoiceStore interface {
	Create(ctx context.Context, inv *repository.Invoice) error
	Update(ctx context.Context, inv *repository.Invoice) error
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*repository.Invoice, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	SoftDelete(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error
	Archive(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error
	Restore(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error
	MarkSent(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error
}

// PaymentStore records payments. Implemented by the payments repository.
type PaymentStore interface {
	Save(ctx context.Context, p *paymentrepo.Payment) error
}

// Notifier delivers invoice emails to the client's contacts.
type Notifier interface {
	SendInvoice(ctx context.Context, inv *repository.Invoice) error
	SendPaymentConfirmation(ctx context.Context, inv *repository.Invoice, payment *paymentrepo.Payment) error
}

// AccountSettings supplies the per-account defaults used by normalization.
type AccountSettings interface {
	Localize(ctx context.Context, tenantID uuid.UUID, client *clientrepo.Client) (accountservice.AccountContext, error)
}

var (
	_ InvoiceStore    = (*repository.Repository)(nil)
	_ PaymentStore    = (*paymentrepo.Repository)(nil)
	_ ClientStore     = (*clientrepo.Repository)(nil)
	_ ClientResolver  = (*clientservice.Resolver)(nil)
	_ AccountSettings = (*accountservice.Service)(nil)
)
