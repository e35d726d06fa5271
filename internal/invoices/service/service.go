// Package service assembles invoices from loosely structured payloads: it
// resolves the client, normalizes fields and line items, persists the invoice
// and runs the payment and notification side effects.
package service

import (
	"context"
	"time"

	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
)

// AssemblyResult is a saved invoice with the outcome of its side effects.
// Warnings describe side effects that failed after the invoice was committed.
type AssemblyResult struct {
	Invoice  *repository.Invoice
	Payment  *paymentrepo.Payment
	Warnings []string
}

func (r *AssemblyResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Service provides business logic for invoices and quotes.
type Service struct {
	invoices   InvoiceStore
	clients    ClientStore
	resolver   ClientResolver
	accounts   AccountSettings
	normalizer *Normalizer
	payments   PaymentStore     // optional, nil disables payments at creation
	notifier   Notifier         // optional, nil disables email notifications
	eventBus   events.Publisher // optional
	actions    ActionHandler
	log        *logger.Logger
	now        func() time.Time
}

// New creates a new invoices service
func New(
	invoices InvoiceStore,
	clients ClientStore,
	resolver ClientResolver,
	accounts AccountSettings,
	catalog ProductCatalog,
	log *logger.Logger,
) *Service {
	s := &Service{
		invoices:   invoices,
		clients:    clients,
		resolver:   resolver,
		accounts:   accounts,
		normalizer: NewNormalizer(catalog),
		log:        log,
		now:        time.Now,
	}
	s.actions = &baseActions{svc: s}
	return s
}

// SetPaymentStore injects the payment store.
func (s *Service) SetPaymentStore(ps PaymentStore) {
	s.payments = ps
}

// SetNotifier injects the notifier used for invoice and payment emails.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetEventBus injects the domain event publisher.
func (s *Service) SetEventBus(bus events.Publisher) {
	s.eventBus = bus
}

// SetActionHandler replaces the handler for named update actions.
func (s *Service) SetActionHandler(h ActionHandler) {
	s.actions = h
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, event)
}

// hydrate loads an invoice with its client, items and invitations.
func (s *Service) hydrate(ctx context.Context, id, tenantID uuid.UUID) (*repository.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load invoice", err)
	}

	client, err := s.clients.GetByID(ctx, inv.ClientID, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load invoice client", err)
	}
	inv.Client = client
	return inv, nil
}

// refetch replaces result.Invoice with the hydrated stored invoice. On failure
// the in-memory invoice is kept and a warning is recorded.
func (s *Service) refetch(ctx context.Context, result *AssemblyResult) {
	hydrated, err := s.hydrate(ctx, result.Invoice.ID, result.Invoice.TenantID)
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("refetch", result.Invoice.ID.String(), err)
		result.warn("invoice was saved but could not be reloaded")
		return
	}
	result.Invoice = hydrated
}

func assignItemIDs(inv *repository.Invoice) {
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New()
		inv.Items[i].InvoiceID = inv.ID
		inv.Items[i].TenantID = inv.TenantID
		inv.Items[i].SortOrder = i
	}
}
