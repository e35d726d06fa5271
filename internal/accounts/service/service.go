// Package service resolves the account-level defaults applied while assembling invoices.
package service

import (
	"context"
	"strings"
	"time"

	"invoicing_backend/internal/accounts/repository"
	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/config"

	"github.com/google/uuid"
)

// AccountContext carries the account defaults and localization for one request.
type AccountContext struct {
	TenantID        uuid.UUID
	DefaultDesignID int
	Location        *time.Location
	CurrencyCode    string
}

// Today returns the current date at midnight in the account's timezone.
func (a AccountContext) Today(now time.Time) time.Time {
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SettingsStore reads stored account settings. Implemented by repository.Repository.
type SettingsStore interface {
	Get(ctx context.Context, tenantID uuid.UUID) (repository.Settings, error)
}

var _ SettingsStore = (*repository.Repository)(nil)

// Service builds AccountContext values from stored settings with config fallbacks.
type Service struct {
	store    SettingsStore
	defaults config.AccountDefaultsConfig
}

// New creates a new accounts service
func New(store SettingsStore, defaults config.AccountDefaultsConfig) *Service {
	return &Service{store: store, defaults: defaults}
}

// Localize returns the AccountContext for an invoice billed to client. Its
// DefaultDesignID is the account's invoice design, or the configured default
// when none is stored. A client currency overrides the account currency.
func (s *Service) Localize(ctx context.Context, tenantID uuid.UUID, client *clientrepo.Client) (AccountContext, error) {
	settings, err := s.settings(ctx, tenantID)
	if err != nil {
		return AccountContext{}, err
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc, err = time.LoadLocation(s.defaults.GetDefaultTimezone())
		if err != nil {
			loc = time.UTC
		}
	}

	currency := settings.CurrencyCode
	if client != nil && strings.TrimSpace(client.CurrencyCode) != "" {
		currency = client.CurrencyCode
	}

	return AccountContext{
		TenantID:        tenantID,
		DefaultDesignID: settings.InvoiceDesignID,
		Location:        loc,
		CurrencyCode:    currency,
	}, nil
}

func (s *Service) settings(ctx context.Context, tenantID uuid.UUID) (repository.Settings, error) {
	fallback := repository.Settings{
		TenantID:        tenantID,
		InvoiceDesignID: s.defaults.GetDefaultInvoiceDesignID(),
		Timezone:        s.defaults.GetDefaultTimezone(),
		CurrencyCode:    s.defaults.GetDefaultCurrency(),
	}

	stored, err := s.store.Get(ctx, tenantID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return fallback, nil
		}
		return repository.Settings{}, apperr.Persistence("failed to load account settings", err)
	}

	if stored.InvoiceDesignID <= 0 {
		stored.InvoiceDesignID = fallback.InvoiceDesignID
	}
	if stored.Timezone == "" {
		stored.Timezone = fallback.Timezone
	}
	if stored.CurrencyCode == "" {
		stored.CurrencyCode = fallback.CurrencyCode
	}
	return stored, nil
}
