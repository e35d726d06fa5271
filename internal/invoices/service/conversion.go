package service

import (
	"context"
	"strings"

	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
)

const msgNotAQuote = "only quotes can be converted to invoices"

// Apply handles an update request: "convert" clones a quote into an invoice,
// any other action goes to the action handler, and no action is a plain update.
func (s *Service) Apply(ctx context.Context, tenantID, id uuid.UUID, p *transport.UpdatePayload) (*AssemblyResult, error) {
	action := strings.ToLower(strings.TrimSpace(p.Action))
	switch action {
	case "":
		return s.Update(ctx, tenantID, id, &p.InvoicePayload)
	case transport.ActionConvert:
		return s.Convert(ctx, tenantID, id)
	default:
		inv, err := s.actions.Handle(ctx, tenantID, id, action)
		if err != nil {
			return nil, err
		}
		return &AssemblyResult{Invoice: inv}, nil
	}
}

// Convert clones a quote into a new draft invoice. The quote is left unchanged.
func (s *Service) Convert(ctx context.Context, tenantID, quoteID uuid.UUID) (*AssemblyResult, error) {
	quote, err := s.invoices.GetByID(ctx, quoteID, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load quote", err)
	}
	if !quote.IsQuote {
		return nil, apperr.Validation(msgNotAQuote)
	}

	ac, err := s.accounts.Localize(ctx, tenantID, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := cloneQuote(quote)
	inv.ID = uuid.New()
	inv.InvoiceDate = ac.Today(now)
	inv.CreatedAt = now
	inv.UpdatedAt = now
	assignItemIDs(inv)

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, apperr.Persistence("failed to save converted invoice", err)
	}

	s.publish(ctx, events.QuoteConverted{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   quote.ID,
		InvoiceID: inv.ID,
		TenantID:  tenantID,
	})
	s.publish(ctx, events.InvoiceSaved{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: inv.ID,
		TenantID:  tenantID,
		Created:   true,
	})

	result := &AssemblyResult{Invoice: inv}
	s.refetch(ctx, result)
	return result, nil
}

// cloneQuote copies a quote into an unsaved invoice. Identity, numbering,
// status and lifecycle markers are reset; items are copied so the quote's
// slice is never shared.
func cloneQuote(quote *repository.Invoice) *repository.Invoice {
	inv := *quote
	quoteID := quote.ID

	inv.InvoiceNumber = ""
	inv.IsQuote = false
	inv.QuoteID = &quoteID
	inv.Status = repository.StatusDraft
	inv.Balance = inv.Amount
	inv.ArchivedAt = nil
	inv.DeletedAt = nil
	inv.Client = nil
	inv.Invitations = nil

	inv.Items = make([]repository.LineItem, len(quote.Items))
	copy(inv.Items, quote.Items)
	if quote.DueDate != nil {
		due := *quote.DueDate
		inv.DueDate = &due
	}
	return &inv
}
