package service

import (
	"context"

	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
)

// Named update actions handled by the base action handler.
const (
	ActionArchive  = "archive"
	ActionRestore  = "restore"
	ActionDelete   = "delete"
	ActionMarkSent = "mark_sent"
	ActionEmail    = "email"
)

const (
	msgUnsupportedAction   = "unsupported action"
	msgNotifierUnavailable = "email delivery is not configured"
)

// ActionHandler runs a named action against an invoice and returns it reloaded.
type ActionHandler interface {
	Handle(ctx context.Context, tenantID, id uuid.UUID, action string) (*repository.Invoice, error)
}

type baseActions struct {
	svc *Service
}

func (a *baseActions) Handle(ctx context.Context, tenantID, id uuid.UUID, action string) (*repository.Invoice, error) {
	s := a.svc
	now := s.now().UTC()

	var err error
	switch action {
	case ActionArchive:
		err = s.invoices.Archive(ctx, id, tenantID, now)
	case ActionRestore:
		err = s.invoices.Restore(ctx, id, tenantID, now)
	case ActionDelete:
		_, err = s.Delete(ctx, tenantID, id)
	case ActionMarkSent:
		err = s.invoices.MarkSent(ctx, id, tenantID, now)
	case ActionEmail:
		err = s.SendEmail(ctx, tenantID, id)
	default:
		return nil, apperr.BadRequest(msgUnsupportedAction)
	}
	if err != nil {
		return nil, apperr.Persistence("failed to apply action "+action, err)
	}

	return s.hydrate(ctx, id, tenantID)
}

// SendEmail emails the invoice to the client's contacts and marks it sent.
func (s *Service) SendEmail(ctx context.Context, tenantID, id uuid.UUID) error {
	if s.notifier == nil {
		return apperr.Unavailable(msgNotifierUnavailable)
	}

	inv, err := s.hydrate(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if err := s.sendInvoice(ctx, inv); err != nil {
		return apperr.Persistence("failed to send invoice", err)
	}

	s.log.WithContext(ctx).NotificationSent("invoice", inv.ID.String(), len(inv.Invitations))
	return nil
}

// Delete soft-deletes an invoice and returns it as marked.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) (*repository.Invoice, error) {
	inv, err := s.hydrate(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.invoices.SoftDelete(ctx, id, tenantID, now); err != nil {
		return nil, apperr.Persistence("failed to delete invoice", err)
	}
	inv.DeletedAt = &now
	inv.UpdatedAt = now

	s.publish(ctx, events.InvoiceDeleted{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: id,
		TenantID:  tenantID,
	})
	return inv, nil
}
