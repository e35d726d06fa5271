// Package service resolves the client that owns an invoice.
package service

import (
	"context"
	"strings"
	"time"

	"invoicing_backend/internal/clients/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/phone"
	"invoicing_backend/platform/sanitize"
	"invoicing_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	msgInvalidEmail      = "email must be a valid email address"
	msgInvalidCurrency   = "currency_code must be a valid ISO 4217 code"
	msgMissingIdentifier = "either email or client_id is required"
	msgClientNotFound    = "client not found"
)

// Store is the persistence the resolver needs. Implemented by repository.Repository.
type Store interface {
	FindByContactEmail(ctx context.Context, tenantID uuid.UUID, email string) (*repository.Client, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*repository.Client, error)
	Create(ctx context.Context, client *repository.Client) error
}

var _ Store = (*repository.Repository)(nil)

// ClientFields are the only payload fields copied onto a newly created client.
type ClientFields struct {
	Name         string
	Address1     string
	Address2     string
	City         string
	State        string
	PostalCode   string
	PrivateNotes string
	CurrencyCode string
}

// ContactFields are the only payload fields copied onto a newly created contact.
// The contact email is always the resolve email.
type ContactFields struct {
	FirstName string
	LastName  string
	Phone     string
}

// ResolveRequest identifies the owning client by email or by id.
type ResolveRequest struct {
	Email    string
	ClientID string
	Client   ClientFields
	Contact  ContactFields
}

// Resolver finds or creates the client an invoice belongs to.
type Resolver struct {
	store       Store
	val         *validator.Validator
	phoneRegion string
	now         func() time.Time
}

// NewResolver creates a resolver. phoneRegion is the ISO region used to parse
// contact phone numbers written without a country prefix.
func NewResolver(store Store, val *validator.Validator, phoneRegion string) *Resolver {
	if phoneRegion == "" {
		phoneRegion = phone.DefaultRegion
	}
	return &Resolver{store: store, val: val, phoneRegion: phoneRegion, now: time.Now}
}

// Resolve returns the existing client matching req.Email, a newly created one
// when the email is unknown, or the client named by req.ClientID.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID, req ResolveRequest) (*repository.Client, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" {
		return r.resolveByEmail(ctx, tenantID, email, req)
	}

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, apperr.MissingIdentifier(msgMissingIdentifier)
	}

	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, apperr.NotFound(msgClientNotFound)
	}
	client, err := r.store.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, apperr.Persistence("failed to load client", err)
	}
	return client, nil
}

func (r *Resolver) resolveByEmail(ctx context.Context, tenantID uuid.UUID, email string, req ResolveRequest) (*repository.Client, error) {
	existing, err := r.findByEmail(ctx, tenantID, email)
	if err != nil || existing != nil {
		return existing, err
	}

	if !r.val.IsEmail(email) {
		return nil, apperr.Validation(msgInvalidEmail)
	}

	client, err := r.build(tenantID, email, req)
	if err != nil {
		return nil, err
	}

	if err := r.store.Create(ctx, client); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// Another request created a contact with this email first.
			winner, findErr := r.findByEmail(ctx, tenantID, email)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, apperr.Persistence("failed to create client", err)
	}
	return client, nil
}

// findByEmail returns nil without error when no contact has the email.
func (r *Resolver) findByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*repository.Client, error) {
	client, err := r.store.FindByContactEmail(ctx, tenantID, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistence("failed to look up client by email", err)
	}
	return client, nil
}

func (r *Resolver) build(tenantID uuid.UUID, email string, req ResolveRequest) (*repository.Client, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Client.CurrencyCode))
	if currency != "" && !r.val.IsCurrencyCode(currency) {
		return nil, apperr.Validation(msgInvalidCurrency)
	}

	now := r.now().UTC()
	client := &repository.Client{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         sanitize.Line(req.Client.Name),
		Address1:     sanitize.Line(req.Client.Address1),
		Address2:     sanitize.Line(req.Client.Address2),
		City:         sanitize.Line(req.Client.City),
		State:        sanitize.Line(req.Client.State),
		PostalCode:   sanitize.Line(req.Client.PostalCode),
		PrivateNotes: sanitize.Text(req.Client.PrivateNotes),
		CurrencyCode: currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	client.Contacts = []repository.Contact{{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ClientID:  client.ID,
		FirstName: sanitize.Line(req.Contact.FirstName),
		LastName:  sanitize.Line(req.Contact.LastName),
		Email:     email,
		Phone:     phone.NormalizeE164(req.Contact.Phone, r.phoneRegion),
		IsPrimary: true,
		CreatedAt: now,
	}}
	return client, nil
}
