package transport

import (
	"github.com/shopspring/decimal"
)

// ActionConvert clones a quote into a new invoice.
const ActionConvert = "convert"

// ── Requests ──────────────────────────────────────────────────────────────────

// ItemPayload is one entry of invoice_items. Every field is optional.
type ItemPayload struct {
	ProductKey Optional[string]          `json:"product_key"`
	Cost       Optional[decimal.Decimal] `json:"cost"`
	Qty        Optional[decimal.Decimal] `json:"qty"`
	Notes      Optional[string]          `json:"notes"`
	TaxName1   Optional[string]          `json:"tax_name1"`
	TaxRate1   Optional[decimal.Decimal] `json:"tax_rate1"`
	TaxName2   Optional[string]          `json:"tax_name2"`
	TaxRate2   Optional[decimal.Decimal] `json:"tax_rate2"`
}

// InvoicePayload is the create body. The client is identified by email or client_id.
type InvoicePayload struct {
	Email    string `json:"email" validate:"max=254"`
	ClientID string `json:"client_id" validate:"max=64"`

	// New client fields.
	Name         string `json:"name" validate:"max=255"`
	Address1     string `json:"address1" validate:"max=255"`
	Address2     string `json:"address2" validate:"max=255"`
	City         string `json:"city" validate:"max=255"`
	State        string `json:"state" validate:"max=255"`
	PostalCode   string `json:"postal_code" validate:"max=32"`
	PrivateNotes string `json:"private_notes" validate:"max=10000"`
	CurrencyCode string `json:"currency_code" validate:"max=3"`

	// New contact fields.
	FirstName string `json:"first_name" validate:"max=255"`
	LastName  string `json:"last_name" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=64"`

	// Invoice fields.
	IsQuote          Optional[Bool]            `json:"is_quote"`
	InvoiceNumber    Optional[string]          `json:"invoice_number"`
	Discount         Optional[decimal.Decimal] `json:"discount"`
	IsAmountDiscount Optional[Bool]            `json:"is_amount_discount"`
	Terms            Optional[string]          `json:"terms"`
	InvoiceFooter    Optional[string]          `json:"invoice_footer"`
	PublicNotes      Optional[string]          `json:"public_notes"`
	PONumber         Optional[string]          `json:"po_number"`
	InvoiceDesignID  Optional[Int]             `json:"invoice_design_id"`
	CustomValue1     Optional[decimal.Decimal] `json:"custom_value1"`
	CustomValue2     Optional[decimal.Decimal] `json:"custom_value2"`
	CustomTaxes1     Optional[Bool]            `json:"custom_taxes1"`
	CustomTaxes2     Optional[Bool]            `json:"custom_taxes2"`
	Partial          Optional[decimal.Decimal] `json:"partial"`
	InvoiceStatusID  Optional[Int]             `json:"invoice_status_id"`
	InvoiceDate      Optional[Date]            `json:"invoice_date"`
	DueDate          Optional[Date]            `json:"due_date"`
	InvoiceItems     Optional[[]ItemPayload]   `json:"invoice_items"`

	// Single implicit line item. The tax pair is the invoice-level tax.
	ProductKey Optional[string]          `json:"product_key"`
	Cost       Optional[decimal.Decimal] `json:"cost"`
	Notes      Optional[string]          `json:"notes"`
	Qty        Optional[decimal.Decimal] `json:"qty"`
	TaxName1   Optional[string]          `json:"tax_name1"`
	TaxRate1   Optional[decimal.Decimal] `json:"tax_rate1"`
	TaxName2   Optional[string]          `json:"tax_name2"`
	TaxRate2   Optional[decimal.Decimal] `json:"tax_rate2"`

	// Side effects.
	Paid         Optional[decimal.Decimal] `json:"paid"`
	EmailInvoice Optional[Bool]            `json:"email_invoice"`
}

// UpdatePayload is the update body. A non-empty Action bypasses field updates.
type UpdatePayload struct {
	InvoicePayload
	Action string `json:"action" validate:"max=32"`
}

// ListInvoicesRequest holds the list query string.
type ListInvoicesRequest struct {
	ClientID      string `form:"client_id" validate:"omitempty,uuid"`
	IsQuote       string `form:"is_quote" validate:"omitempty,oneof=true false 1 0"`
	InvoiceNumber string `form:"invoice_number" validate:"max=64"`
	Page          int    `form:"page" validate:"omitempty,min=1"`
	PageSize      int    `form:"page_size" validate:"omitempty,min=1"`
}
