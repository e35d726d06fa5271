package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoicing_backend/internal/accounts/repository"
	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
)

type testDefaults struct{}

func (testDefaults) GetDefaultInvoiceDesignID() int { return 1 }
func (testDefaults) GetDefaultTimezone() string     { return "Europe/Amsterdam" }
func (testDefaults) GetDefaultCurrency() string     { return "EUR" }
func (testDefaults) GetPhoneRegion() string         { return "NL" }

type fakeSettings struct {
	settings *repository.Settings
	err      error
}

func (f fakeSettings) Get(_ context.Context, _ uuid.UUID) (repository.Settings, error) {
	if f.err != nil {
		return repository.Settings{}, f.err
	}
	if f.settings == nil {
		return repository.Settings{}, apperr.NotFound("account settings not found")
	}
	return *f.settings, nil
}

func TestLocalize_FallsBackToConfigDefaults(t *testing.T) {
	svc := New(fakeSettings{}, testDefaults{})

	ac, err := svc.Localize(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.DefaultDesignID != 1 || ac.CurrencyCode != "EUR" || ac.Location.String() != "Europe/Amsterdam" {
		t.Fatalf("unexpected context: %+v", ac)
	}
}

func TestLocalize_UsesStoredSettingsAndClientCurrency(t *testing.T) {
	svc := New(fakeSettings{settings: &repository.Settings{
		InvoiceDesignID: 4,
		Timezone:        "America/New_York",
		CurrencyCode:    "USD",
	}}, testDefaults{})

	ac, err := svc.Localize(context.Background(), uuid.New(), &clientrepo.Client{CurrencyCode: "GBP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.DefaultDesignID != 4 || ac.CurrencyCode != "GBP" || ac.Location.String() != "America/New_York" {
		t.Fatalf("unexpected context: %+v", ac)
	}
}

func TestLocalize_StoreErrorIsPersistence(t *testing.T) {
	svc := New(fakeSettings{err: errors.New("boom")}, testDefaults{})

	_, err := svc.Localize(context.Background(), uuid.New(), nil)
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestToday_UsesAccountTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skip("timezone database unavailable")
	}
	ac := AccountContext{Location: loc}
	// 2026-03-01 20:00 UTC is already 2 March in Auckland.
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	today := ac.Today(now)
	if today.Day() != 2 || today.Month() != time.March {
		t.Fatalf("expected 2 March, got %v", today)
	}
}
