package service

import (
	"context"
	"strings"

	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Get returns one invoice with its client, items and invitations.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*repository.Invoice, error) {
	return s.hydrate(ctx, id, tenantID)
}

// List returns invoices newest first, including soft-deleted ones, each with
// its client and items.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListInvoicesRequest) (*repository.ListResult, error) {
	params := repository.ListParams{
		TenantID:      tenantID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.BadRequest("client_id must be a valid UUID")
		}
		params.ClientID = &clientID
	}
	switch req.IsQuote {
	case "true", "1":
		isQuote := true
		params.IsQuote = &isQuote
	case "false", "0":
		isQuote := false
		params.IsQuote = &isQuote
	}

	result, err := s.invoices.List(ctx, params)
	if err != nil {
		return nil, apperr.Persistence("failed to list invoices", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Items))
	seen := make(map[uuid.UUID]bool, len(result.Items))
	for _, inv := range result.Items {
		if !seen[inv.ClientID] {
			seen[inv.ClientID] = true
			ids = append(ids, inv.ClientID)
		}
	}

	clients, err := s.clients.GetByIDs(ctx, ids, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load invoice clients", err)
	}
	for i := range result.Items {
		result.Items[i].Client = clients[result.Items[i].ClientID]
	}
	return result, nil
}
