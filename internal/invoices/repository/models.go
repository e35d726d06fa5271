package repository

import (
	"time"

	clientrepo "invoicing_backend/internal/clients/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Status is the invoice_status_id of an invoice.
type Status int

const (
	StatusDraft    Status = 1
	StatusSent     Status = 2
	StatusViewed   Status = 3
	StatusApproved Status = 4
	StatusPartial  Status = 5
	StatusPaid     Status = 6
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s >= StatusDraft && s <= StatusPaid
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSent:
		return "sent"
	case StatusViewed:
		return "viewed"
	case StatusApproved:
		return "approved"
	case StatusPartial:
		return "partial"
	case StatusPaid:
		return "paid"
	default:
		return "unknown"
	}
}

// Invoice is an invoice or quote with its relations. Client, Items and
// Invitations are populated by hydrated reads.
type Invoice struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	ClientID         uuid.UUID
	InvoiceNumber    string
	IsQuote          bool
	QuoteID          *uuid.UUID
	Status           Status
	InvoiceDate      time.Time
	DueDate          *time.Time
	Discount         decimal.Decimal
	IsAmountDiscount bool
	Terms            string
	InvoiceFooter    string
	PublicNotes      string
	PONumber         string
	InvoiceDesignID  int
	CustomValue1     decimal.Decimal
	CustomValue2     decimal.Decimal
	CustomTaxes1     bool
	CustomTaxes2     bool
	Partial          decimal.Decimal
	TaxName1         string
	TaxRate1         decimal.Decimal
	TaxName2         string
	TaxRate2         decimal.Decimal
	Amount           decimal.Decimal
	Balance          decimal.Decimal
	ArchivedAt       *time.Time
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Client      *clientrepo.Client
	Items       []LineItem
	Invitations []Invitation
}

// IsDeleted reports whether the invoice is soft-deleted.
func (i *Invoice) IsDeleted() bool {
	return i.DeletedAt != nil
}

// LineItem is one line of an invoice.
type LineItem struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	TenantID   uuid.UUID
	ProductKey string
	Notes      string
	Cost       decimal.Decimal
	Qty        decimal.Decimal
	TaxName1   string
	TaxRate1   decimal.Decimal
	TaxName2   string
	TaxRate2   decimal.Decimal
	SortOrder  int
}

// Invitation links an invoice to one client contact for the client portal.
type Invitation struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	InvoiceID     uuid.UUID
	ContactID     uuid.UUID
	InvitationKey string
	SentAt        *time.Time
	ViewedAt      *time.Time
	CreatedAt     time.Time
}

// ListParams contains parameters for listing invoices.
type ListParams struct {
	TenantID      uuid.UUID
	ClientID      *uuid.UUID
	IsQuote       *bool
	InvoiceNumber string
	Page          int
	PageSize      int
}

// ListResult contains the paginated result of listing invoices.
type ListResult struct {
	Items      []Invoice
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
