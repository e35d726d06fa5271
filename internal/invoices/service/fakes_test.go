package service

import (
	"context"
	"errors"
	"strings"
	"time"

	accountservice "invoicing_backend/internal/accounts/service"
	catalogrepo "invoicing_backend/internal/catalog/repository"
	clientrepo "invoicing_backend/internal/clients/repository"
	clientservice "invoicing_backend/internal/clients/service"
	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"
	"invoicing_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)

// callLog records the order in which collaborators are invoked.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) {
	l.calls = append(l.calls, name)
}

// ── clients ───────────────────────────────────────────────────────────────────

type fakeClients struct {
	byID    map[uuid.UUID]*clientrepo.Client
	created []*clientrepo.Client
}

func newFakeClients() *fakeClients {
	return &fakeClients{byID: map[uuid.UUID]*clientrepo.Client{}}
}

func (f *fakeClients) add(c *clientrepo.Client) *clientrepo.Client {
	f.byID[c.ID] = c
	return c
}

func (f *fakeClients) FindByContactEmail(_ context.Context, _ uuid.UUID, email string) (*clientrepo.Client, error) {
	for _, c := range f.byID {
		for _, ct := range c.Contacts {
			if strings.EqualFold(ct.Email, email) {
				return c, nil
			}
		}
	}
	return nil, apperr.NotFound("client not found")
}

func (f *fakeClients) GetByID(_ context.Context, id, _ uuid.UUID) (*clientrepo.Client, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("client not found")
}

func (f *fakeClients) GetByIDs(_ context.Context, ids []uuid.UUID, _ uuid.UUID) (map[uuid.UUID]*clientrepo.Client, error) {
	out := map[uuid.UUID]*clientrepo.Client{}
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeClients) Create(_ context.Context, c *clientrepo.Client) error {
	f.created = append(f.created, c)
	f.byID[c.ID] = c
	return nil
}

// ── catalog ───────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	products map[string]catalogrepo.Product
	lookups  int
	err      error
}

func (f *fakeCatalog) FindByKey(_ context.Context, _ uuid.UUID, key string) (catalogrepo.Product, error) {
	f.lookups++
	if f.err != nil {
		return catalogrepo.Product{}, f.err
	}
	p, ok := f.products[key]
	if !ok {
		return catalogrepo.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func widgetCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]catalogrepo.Product{
		"WIDGET": {ProductKey: "WIDGET", Cost: decimal.RequireFromString("9.99"), Notes: "Blue widget"},
	}}
}

// ── accounts ──────────────────────────────────────────────────────────────────

type fakeAccounts struct{}

func (fakeAccounts) Localize(_ context.Context, tenantID uuid.UUID, _ *clientrepo.Client) (accountservice.AccountContext, error) {
	return accountservice.AccountContext{
		TenantID:        tenantID,
		DefaultDesignID: 3,
		Location:        time.UTC,
		CurrencyCode:    "EUR",
	}, nil
}

// ── invoices ──────────────────────────────────────────────────────────────────

type fakeInvoices struct {
	log       *callLog
	stored    map[uuid.UUID]*repository.Invoice
	createErr error
	getErr    error
	sent      []uuid.UUID
	deleted   []uuid.UUID
	archived  []uuid.UUID
}

func newFakeInvoices(log *callLog) *fakeInvoices {
	return &fakeInvoices{log: log, stored: map[uuid.UUID]*repository.Invoice{}}
}

func copyInvoice(inv *repository.Invoice) *repository.Invoice {
	c := *inv
	c.Items = append([]repository.LineItem(nil), inv.Items...)
	c.Invitations = append([]repository.Invitation(nil), inv.Invitations...)
	c.Client = nil
	return &c
}

func (f *fakeInvoices) put(inv *repository.Invoice) {
	f.stored[inv.ID] = copyInvoice(inv)
}

func (f *fakeInvoices) Create(_ context.Context, inv *repository.Invoice) error {
	f.log.add("invoice.create")
	if f.createErr != nil {
		return f.createErr
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = repository.FormatNumber("INV", len(f.stored)+1)
	}
	stored := copyInvoice(inv)
	stored.Invitations = []repository.Invitation{{ID: uuid.New(), InvoiceID: inv.ID, InvitationKey: "key"}}
	f.stored[inv.ID] = stored
	return nil
}

func (f *fakeInvoices) Update(_ context.Context, inv *repository.Invoice) error {
	f.log.add("invoice.update")
	if _, ok := f.stored[inv.ID]; !ok {
		return apperr.NotFound("invoice not found")
	}
	f.stored[inv.ID] = copyInvoice(inv)
	return nil
}

func (f *fakeInvoices) GetByID(_ context.Context, id, _ uuid.UUID) (*repository.Invoice, error) {
	f.log.add("invoice.get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	inv, ok := f.stored[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	return copyInvoice(inv), nil
}

func (f *fakeInvoices) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	items := make([]repository.Invoice, 0, len(f.stored))
	for _, inv := range f.stored {
		items = append(items, *copyInvoice(inv))
	}
	return &repository.ListResult{Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1}, nil
}

func (f *fakeInvoices) SoftDelete(_ context.Context, id, _ uuid.UUID, at time.Time) error {
	inv, ok := f.stored[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	inv.DeletedAt = &at
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeInvoices) Archive(_ context.Context, id, _ uuid.UUID, at time.Time) error {
	inv, ok := f.stored[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	inv.ArchivedAt = &at
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeInvoices) Restore(_ context.Context, id, _ uuid.UUID, _ time.Time) error {
	inv, ok := f.stored[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	inv.ArchivedAt, inv.DeletedAt = nil, nil
	return nil
}

func (f *fakeInvoices) MarkSent(_ context.Context, id, _ uuid.UUID, _ time.Time) error {
	f.log.add("invoice.mark_sent")
	inv, ok := f.stored[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	if inv.Status == repository.StatusDraft {
		inv.Status = repository.StatusSent
	}
	f.sent = append(f.sent, id)
	return nil
}

// ── payments & notifications ──────────────────────────────────────────────────

type fakePayments struct {
	log   *callLog
	saved []*paymentrepo.Payment
	err   error
}

func (f *fakePayments) Save(_ context.Context, p *paymentrepo.Payment) error {
	f.log.add("payment.save")
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

type fakeNotifier struct {
	log           *callLog
	invoices      int
	confirmations int
	err           error
}

func (f *fakeNotifier) SendInvoice(_ context.Context, _ *repository.Invoice) error {
	f.log.add("notify.invoice")
	if f.err != nil {
		return f.err
	}
	f.invoices++
	return nil
}

func (f *fakeNotifier) SendPaymentConfirmation(_ context.Context, _ *repository.Invoice, _ *paymentrepo.Payment) error {
	f.log.add("notify.payment")
	if f.err != nil {
		return f.err
	}
	f.confirmations++
	return nil
}

type recordingBus struct {
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.events = append(b.events, event)
}

func (b *recordingBus) names() []string {
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

// ── harness ───────────────────────────────────────────────────────────────────

type harness struct {
	svc      *Service
	log      *callLog
	clients  *fakeClients
	catalog  *fakeCatalog
	invoices *fakeInvoices
	payments *fakePayments
	notifier *fakeNotifier
	bus      *recordingBus
	tenantID uuid.UUID
}

func newHarness() *harness {
	log := &callLog{}
	h := &harness{
		log:      log,
		clients:  newFakeClients(),
		catalog:  widgetCatalog(),
		invoices: newFakeInvoices(log),
		payments: &fakePayments{log: log},
		notifier: &fakeNotifier{log: log},
		bus:      &recordingBus{},
		tenantID: uuid.New(),
	}

	resolver := clientservice.NewResolver(h.clients, validator.New(), "NL")
	h.svc = New(h.invoices, h.clients, resolver, fakeAccounts{}, h.catalog, logger.Nop())
	h.svc.SetPaymentStore(h.payments)
	h.svc.SetNotifier(h.notifier)
	h.svc.SetEventBus(h.bus)
	h.svc.now = func() time.Time { return fixedNow }
	h.svc.normalizer.now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) existingClient(email string) *clientrepo.Client {
	id := uuid.New()
	return h.clients.add(&clientrepo.Client{
		ID:       id,
		TenantID: h.tenantID,
		Name:     "Existing",
		Contacts: []clientrepo.Contact{{ID: uuid.New(), ClientID: id, Email: email, IsPrimary: true}},
	})
}

var errBoom = errors.New("boom")
