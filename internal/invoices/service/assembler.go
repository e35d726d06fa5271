package service

import (
	"context"
	"strings"

	clientservice "invoicing_backend/internal/clients/service"
	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	msgNegativePaid   = "paid must not be negative"
	msgClientNotFound = "client not found"

	warnPaymentFailed      = "invoice was saved but the payment could not be recorded"
	warnPaymentsDisabled   = "invoice was saved but payments are not configured"
	warnNotificationFailed = "invoice was saved but the email could not be sent"
	warnNotifierDisabled   = "invoice was saved but email delivery is not configured"
)

// Create assembles and saves a new invoice. Steps run in a fixed order:
// resolve client, normalize, persist, record payment, notify, reload. Only a
// failure up to and including persistence aborts; later failures become warnings.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, p *transport.InvoicePayload) (*AssemblyResult, error) {
	if p.Paid.Set && p.Paid.Value.Sign() < 0 {
		return nil, apperr.Validation(msgNegativePaid)
	}

	client, err := s.resolver.Resolve(ctx, tenantID, resolveRequestFrom(p))
	if err != nil {
		return nil, err
	}

	ac, err := s.accounts.Localize(ctx, tenantID, client)
	if err != nil {
		return nil, err
	}

	inv, err := s.normalizer.Normalize(ctx, ac, p)
	if err != nil {
		return nil, err
	}
	if len(inv.Items) == 0 {
		return nil, apperr.Validation(msgNoLineItems)
	}

	now := s.now().UTC()
	inv.ID = uuid.New()
	inv.TenantID = tenantID
	inv.ClientID = client.ID
	inv.CreatedAt = now
	inv.UpdatedAt = now
	assignItemIDs(inv)
	applyTotals(inv)

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, apperr.Persistence("failed to save invoice", err)
	}
	inv.Client = client
	s.publish(ctx, events.InvoiceSaved{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: inv.ID,
		TenantID:  tenantID,
		IsQuote:   inv.IsQuote,
		Created:   true,
	})

	result := &AssemblyResult{Invoice: inv}

	if p.Paid.Set && !p.Paid.Value.IsZero() {
		s.recordPayment(ctx, result, p.Paid.Value)
	}

	if p.EmailInvoice.Set && bool(p.EmailInvoice.Value) {
		s.notify(ctx, result)
	}

	s.refetch(ctx, result)
	return result, nil
}

// Update applies the fields present in p onto the stored invoice, persists it
// and returns the reloaded invoice.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, p *transport.InvoicePayload) (*AssemblyResult, error) {
	inv, err := s.invoices.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load invoice", err)
	}

	if clientID := strings.TrimSpace(p.ClientID); clientID != "" {
		parsed, err := uuid.Parse(clientID)
		if err != nil {
			return nil, apperr.NotFound(msgClientNotFound)
		}
		client, err := s.clients.GetByID(ctx, parsed, tenantID)
		if err != nil {
			return nil, apperr.Persistence("failed to load client", err)
		}
		inv.ClientID = client.ID
	}

	if err := s.normalizer.ApplyUpdate(ctx, inv, p); err != nil {
		return nil, err
	}
	if len(inv.Items) == 0 {
		return nil, apperr.Validation(msgNoLineItems)
	}

	inv.ID = id
	inv.UpdatedAt = s.now().UTC()
	assignItemIDs(inv)
	applyTotals(inv)

	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, apperr.Persistence("failed to save invoice", err)
	}
	s.publish(ctx, events.InvoiceSaved{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: inv.ID,
		TenantID:  tenantID,
		IsQuote:   inv.IsQuote,
	})

	result := &AssemblyResult{Invoice: inv}
	s.refetch(ctx, result)
	return result, nil
}

func (s *Service) recordPayment(ctx context.Context, result *AssemblyResult, amount decimal.Decimal) {
	inv := result.Invoice
	if s.payments == nil {
		result.warn(warnPaymentsDisabled)
		return
	}

	now := s.now().UTC()
	payment := &paymentrepo.Payment{
		ID:          uuid.New(),
		TenantID:    inv.TenantID,
		InvoiceID:   inv.ID,
		ClientID:    inv.ClientID,
		Amount:      amount,
		PaymentDate: inv.InvoiceDate,
		CreatedAt:   now,
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("payment", inv.ID.String(), err)
		result.warn(warnPaymentFailed)
		return
	}

	result.Payment = payment
	balance, status := paymentrepo.ApplyPayment(inv.Balance, amount)
	inv.Balance = balance
	inv.Status = repository.Status(status)
	s.publish(ctx, events.PaymentRecorded{
		BaseEvent: events.NewBaseEvent(),
		PaymentID: payment.ID,
		InvoiceID: inv.ID,
		TenantID:  inv.TenantID,
		Amount:    amount,
	})
}

// notify sends exactly one email: a payment confirmation when a payment was
// recorded, the invoice otherwise.
func (s *Service) notify(ctx context.Context, result *AssemblyResult) {
	inv := result.Invoice
	if s.notifier == nil {
		result.warn(warnNotifierDisabled)
		return
	}

	if result.Payment != nil {
		if err := s.notifier.SendPaymentConfirmation(ctx, inv, result.Payment); err != nil {
			s.log.WithContext(ctx).SideEffectFailed("payment_confirmation", inv.ID.String(), err)
			result.warn(warnNotificationFailed)
		}
		return
	}

	if err := s.sendInvoice(ctx, inv); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("invoice_email", inv.ID.String(), err)
		result.warn(warnNotificationFailed)
	}
}

// sendInvoice emails the invoice and marks it sent.
func (s *Service) sendInvoice(ctx context.Context, inv *repository.Invoice) error {
	if err := s.notifier.SendInvoice(ctx, inv); err != nil {
		return err
	}
	return s.invoices.MarkSent(ctx, inv.ID, inv.TenantID, s.now().UTC())
}

func resolveRequestFrom(p *transport.InvoicePayload) clientservice.ResolveRequest {
	return clientservice.ResolveRequest{
		Email:    p.Email,
		ClientID: p.ClientID,
		Client: clientservice.ClientFields{
			Name:         p.Name,
			Address1:     p.Address1,
			Address2:     p.Address2,
			City:         p.City,
			State:        p.State,
			PostalCode:   p.PostalCode,
			PrivateNotes: p.PrivateNotes,
			CurrencyCode: p.CurrencyCode,
		},
		Contact: clientservice.ContactFields{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Phone:     p.Phone,
		},
	}
}
