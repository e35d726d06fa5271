package service

import (
	"context"
	"strings"
	"time"

	accountservice "invoicing_backend/internal/accounts/service"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	msgNoLineItems      = "invoice must have at least one line item"
	msgInvalidStatus    = "invoice_status_id is not a valid status"
	msgNegativeDiscount = "discount must not be negative"
	msgInvalidDesign    = "invoice_design_id must be positive"
)

// itemSource is how a payload supplies its line items. It is decided once by
// classifyItems and never re-inspected.
type itemSource interface {
	isItemSource()
}

// SingleImplicitItem is one line item built from top-level payload fields.
type SingleImplicitItem struct {
	Item transport.ItemPayload
}

// ExplicitItemList is the invoice_items list as supplied.
type ExplicitItemList struct {
	Items []transport.ItemPayload
}

func (SingleImplicitItem) isItemSource() {}
func (ExplicitItemList) isItemSource()   {}

// classifyItems picks the line item source. Any top-level product_key, cost,
// notes or qty selects SingleImplicitItem and discards invoice_items. ok is
// false when the payload carries no line item fields at all.
func classifyItems(p *transport.InvoicePayload) (source itemSource, ok bool) {
	if p.ProductKey.Set || p.Cost.Set || p.Notes.Set || p.Qty.Set {
		return SingleImplicitItem{Item: transport.ItemPayload{
			ProductKey: p.ProductKey,
			Cost:       p.Cost,
			Notes:      p.Notes,
			Qty:        p.Qty,
		}}, true
	}
	if p.InvoiceItems.Set {
		return ExplicitItemList{Items: p.InvoiceItems.Value}, true
	}
	return ExplicitItemList{}, false
}

// Normalizer fills invoice and line item defaults.
type Normalizer struct {
	catalog ProductCatalog
	now     func() time.Time
}

// NewNormalizer creates a normalizer. catalog may be nil, which disables product prefill.
func NewNormalizer(catalog ProductCatalog) *Normalizer {
	return &Normalizer{catalog: catalog, now: time.Now}
}

// NormalizeItem fills a line item's defaults. When a product key is given
// and both cost and notes are absent, the catalog product supplies them.
func (n *Normalizer) NormalizeItem(ctx context.Context, tenantID uuid.UUID, item transport.ItemPayload) (repository.LineItem, error) {
	key := strings.TrimSpace(item.ProductKey.Value)
	if item.ProductKey.Set && key != "" && !item.Cost.Set && !item.Notes.Set && n.catalog != nil {
		product, err := n.catalog.FindByKey(ctx, tenantID, key)
		switch {
		case err == nil:
			item.Cost = transport.Some(product.Cost)
			item.Notes = transport.Some(product.Notes)
		case !apperr.Is(err, apperr.KindNotFound):
			return repository.LineItem{}, apperr.Persistence("failed to look up product", err)
		}
	}

	return repository.LineItem{
		TenantID:   tenantID,
		ProductKey: key,
		Notes:      sanitize.Text(item.Notes.OrElse("")),
		Cost:       item.Cost.OrElse(decimal.Zero),
		Qty:        item.Qty.OrElse(decimal.NewFromInt(1)),
		TaxName1:   sanitize.Line(item.TaxName1.OrElse("")),
		TaxRate1:   item.TaxRate1.OrElse(decimal.Zero),
		TaxName2:   sanitize.Line(item.TaxName2.OrElse("")),
		TaxRate2:   item.TaxRate2.OrElse(decimal.Zero),
	}, nil
}

// normalizeItems turns an item source into line items in order.
func (n *Normalizer) normalizeItems(ctx context.Context, tenantID uuid.UUID, source itemSource) ([]repository.LineItem, error) {
	var payloads []transport.ItemPayload
	implicit := false
	switch s := source.(type) {
	case SingleImplicitItem:
		payloads = []transport.ItemPayload{s.Item}
		implicit = true
	case ExplicitItemList:
		payloads = s.Items
	}

	items := make([]repository.LineItem, 0, len(payloads))
	for i, payload := range payloads {
		item, err := n.NormalizeItem(ctx, tenantID, payload)
		if err != nil {
			return nil, err
		}
		if implicit {
			// The top-level tax fields are the invoice tax.
			item.TaxName1, item.TaxRate1 = "", decimal.Zero
			item.TaxName2, item.TaxRate2 = "", decimal.Zero
		}
		item.SortOrder = i
		items = append(items, item)
	}
	return items, nil
}

// Normalize builds a new invoice from a create payload with every default applied.
func (n *Normalizer) Normalize(ctx context.Context, ac accountservice.AccountContext, p *transport.InvoicePayload) (*repository.Invoice, error) {
	status, err := statusFrom(p.InvoiceStatusID)
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(p); err != nil {
		return nil, err
	}

	inv := &repository.Invoice{
		TenantID:         ac.TenantID,
		IsQuote:          bool(p.IsQuote.OrElse(false)),
		InvoiceNumber:    sanitize.Line(p.InvoiceNumber.OrElse("")),
		Status:           status,
		InvoiceDate:      ac.Today(n.now()),
		Discount:         p.Discount.OrElse(decimal.Zero),
		IsAmountDiscount: bool(p.IsAmountDiscount.OrElse(false)),
		Terms:            sanitize.Text(p.Terms.OrElse("")),
		InvoiceFooter:    sanitize.Text(p.InvoiceFooter.OrElse("")),
		PublicNotes:      sanitize.Text(p.PublicNotes.OrElse("")),
		PONumber:         sanitize.Line(p.PONumber.OrElse("")),
		InvoiceDesignID:  ac.DefaultDesignID,
		CustomValue1:     p.CustomValue1.OrElse(decimal.Zero),
		CustomValue2:     p.CustomValue2.OrElse(decimal.Zero),
		CustomTaxes1:     bool(p.CustomTaxes1.OrElse(false)),
		CustomTaxes2:     bool(p.CustomTaxes2.OrElse(false)),
		Partial:          p.Partial.OrElse(decimal.Zero),
		TaxName1:         sanitize.Line(p.TaxName1.OrElse("")),
		TaxRate1:         p.TaxRate1.OrElse(decimal.Zero),
		TaxName2:         sanitize.Line(p.TaxName2.OrElse("")),
		TaxRate2:         p.TaxRate2.OrElse(decimal.Zero),
	}

	if p.InvoiceDesignID.Set && p.InvoiceDesignID.Value != 0 {
		inv.InvoiceDesignID = int(p.InvoiceDesignID.Value)
	}
	if p.InvoiceDate.Set && !p.InvoiceDate.Value.IsZero() {
		inv.InvoiceDate = p.InvoiceDate.Value.Time
	}
	if p.DueDate.Set && !p.DueDate.Value.IsZero() {
		due := p.DueDate.Value.Time
		inv.DueDate = &due
	}

	source, _ := classifyItems(p)
	if inv.Items, err = n.normalizeItems(ctx, ac.TenantID, source); err != nil {
		return nil, err
	}
	return inv, nil
}

// ApplyUpdate writes the fields present in p onto inv. Absent fields keep
// their stored values and defaults are not re-applied. Items are replaced only
// when p carries line item fields.
func (n *Normalizer) ApplyUpdate(ctx context.Context, inv *repository.Invoice, p *transport.InvoicePayload) error {
	if p.InvoiceStatusID.Set {
		status, err := statusFrom(p.InvoiceStatusID)
		if err != nil {
			return err
		}
		inv.Status = status
	}
	if err := validateAmounts(p); err != nil {
		return err
	}

	if number := sanitize.Line(p.InvoiceNumber.Value); p.InvoiceNumber.Set && number != "" {
		inv.InvoiceNumber = number
	}
	setString(&inv.Terms, p.Terms, sanitize.Text)
	setString(&inv.InvoiceFooter, p.InvoiceFooter, sanitize.Text)
	setString(&inv.PublicNotes, p.PublicNotes, sanitize.Text)
	setString(&inv.PONumber, p.PONumber, sanitize.Line)
	setString(&inv.TaxName1, p.TaxName1, sanitize.Line)
	setString(&inv.TaxName2, p.TaxName2, sanitize.Line)

	setDecimal(&inv.Discount, p.Discount)
	setDecimal(&inv.CustomValue1, p.CustomValue1)
	setDecimal(&inv.CustomValue2, p.CustomValue2)
	setDecimal(&inv.Partial, p.Partial)
	setDecimal(&inv.TaxRate1, p.TaxRate1)
	setDecimal(&inv.TaxRate2, p.TaxRate2)

	setBool(&inv.IsAmountDiscount, p.IsAmountDiscount)
	setBool(&inv.CustomTaxes1, p.CustomTaxes1)
	setBool(&inv.CustomTaxes2, p.CustomTaxes2)

	if p.InvoiceDesignID.Set && p.InvoiceDesignID.Value != 0 {
		inv.InvoiceDesignID = int(p.InvoiceDesignID.Value)
	}
	if p.InvoiceDate.Set && !p.InvoiceDate.Value.IsZero() {
		inv.InvoiceDate = p.InvoiceDate.Value.Time
	}
	if p.DueDate.Set {
		inv.DueDate = nil
		if !p.DueDate.Value.IsZero() {
			due := p.DueDate.Value.Time
			inv.DueDate = &due
		}
	}

	source, ok := classifyItems(p)
	if !ok {
		return nil
	}
	items, err := n.normalizeItems(ctx, inv.TenantID, source)
	if err != nil {
		return err
	}
	inv.Items = items
	return nil
}

// statusFrom maps invoice_status_id, treating absent and 0 as draft.
func statusFrom(o transport.Optional[transport.Int]) (repository.Status, error) {
	if !o.Set || o.Value == 0 {
		return repository.StatusDraft, nil
	}
	status := repository.Status(o.Value)
	if !status.Valid() {
		return 0, apperr.Validation(msgInvalidStatus)
	}
	return status, nil
}

func validateAmounts(p *transport.InvoicePayload) error {
	if p.Discount.Set && p.Discount.Value.Sign() < 0 {
		return apperr.Validation(msgNegativeDiscount)
	}
	if p.InvoiceDesignID.Set && p.InvoiceDesignID.Value < 0 {
		return apperr.Validation(msgInvalidDesign)
	}
	return nil
}

func setString(dst *string, o transport.Optional[string], clean func(string) string) {
	if o.Set {
		*dst = clean(o.Value)
	}
}

func setDecimal(dst *decimal.Decimal, o transport.Optional[decimal.Decimal]) {
	if o.Set {
		*dst = o.Value
	}
}

func setBool(dst *bool, o transport.Optional[transport.Bool]) {
	if o.Set {
		*dst = bool(o.Value)
	}
}
