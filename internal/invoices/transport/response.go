package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Responses ─────────────────────────────────────────────────────────────────

// ContactResponse is a client contact.
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsPrimary bool      `json:"is_primary"`
}

// ClientResponse is the client an invoice is billed to.
type ClientResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Address1     string            `json:"address1"`
	Address2     string            `json:"address2"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postal_code"`
	CurrencyCode string            `json:"currency_code"`
	Contacts     []ContactResponse `json:"contacts"`
}

// LineItemResponse is one invoice line.
type LineItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductKey string          `json:"product_key"`
	Notes      string          `json:"notes"`
	Cost       decimal.Decimal `json:"cost"`
	Qty        decimal.Decimal `json:"qty"`
	TaxName1   string          `json:"tax_name1"`
	TaxRate1   decimal.Decimal `json:"tax_rate1"`
	TaxName2   string          `json:"tax_name2"`
	TaxRate2   decimal.Decimal `json:"tax_rate2"`
}

// InvitationResponse is a client portal invitation.
type InvitationResponse struct {
	ID            uuid.UUID  `json:"id"`
	ContactID     uuid.UUID  `json:"contact_id"`
	InvitationKey string     `json:"invitation_key"`
	Link          string     `json:"link,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty"`
}

// InvoiceResponse is a hydrated invoice or quote.
type InvoiceResponse struct {
	ID               uuid.UUID            `json:"id"`
	ClientID         uuid.UUID            `json:"client_id"`
	InvoiceNumber    string               `json:"invoice_number"`
	IsQuote          bool                 `json:"is_quote"`
	QuoteID          *uuid.UUID           `json:"quote_id,omitempty"`
	InvoiceStatusID  int                  `json:"invoice_status_id"`
	Status           string               `json:"status"`
	InvoiceDate      Date                 `json:"invoice_date"`
	DueDate          *Date                `json:"due_date"`
	Discount         decimal.Decimal      `json:"discount"`
	IsAmountDiscount bool                 `json:"is_amount_discount"`
	Terms            string               `json:"terms"`
	InvoiceFooter    string               `json:"invoice_footer"`
	PublicNotes      string               `json:"public_notes"`
	PONumber         string               `json:"po_number"`
	InvoiceDesignID  int                  `json:"invoice_design_id"`
	CustomValue1     decimal.Decimal      `json:"custom_value1"`
	CustomValue2     decimal.Decimal      `json:"custom_value2"`
	CustomTaxes1     bool                 `json:"custom_taxes1"`
	CustomTaxes2     bool                 `json:"custom_taxes2"`
	Partial          decimal.Decimal      `json:"partial"`
	TaxName1         string               `json:"tax_name1"`
	TaxRate1         decimal.Decimal      `json:"tax_rate1"`
	TaxName2         string               `json:"tax_name2"`
	TaxRate2         decimal.Decimal      `json:"tax_rate2"`
	Amount           decimal.Decimal      `json:"amount"`
	Balance          decimal.Decimal      `json:"balance"`
	IsDeleted        bool                 `json:"is_deleted"`
	ArchivedAt       *time.Time           `json:"archived_at,omitempty"`
	DeletedAt        *time.Time           `json:"deleted_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Client           *ClientResponse      `json:"client,omitempty"`
	InvoiceItems     []LineItemResponse   `json:"invoice_items"`
	Invitations      []InvitationResponse `json:"invitations"`
}

// PaymentResponse is a payment recorded at creation time.
type PaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate Date            `json:"payment_date"`
}

// SaveInvoiceResponse is returned by create and update. Warnings list side
// effects that failed after the invoice was saved.
type SaveInvoiceResponse struct {
	Invoice  InvoiceResponse  `json:"invoice"`
	Payment  *PaymentResponse `json:"payment,omitempty"`
	Warnings []string         `json:"warnings"`
}

// InvoiceListResponse is a page of invoices.
type InvoiceListResponse struct {
	Items      []InvoiceResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// ResultResponse is the fixed acknowledgement of fire-and-forget endpoints.
type ResultResponse struct {
	Result string `json:"result"`
}
