package pdf

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/service"
	"invoicing_backend/internal/invoices/transport"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	dateLayout = "02-01-2006"
	qrSize     = 160
)

var documentTemplates = template.Must(template.New("invoice.html").ParseFS(templateFS, "templates/*.html"))

// Converter turns an HTML document into PDF bytes.
type Converter interface {
	ConvertHTML(ctx context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error)
}

var _ Converter = (*GotenbergClient)(nil)

type documentItem struct {
	ProductKey string
	Notes      string
	Cost       string
	Qty        string
	Taxes      string
	LineTotal  string
}

type documentTax struct {
	Name   string
	Rate   string
	Amount string
}

type documentData struct {
	Title         string
	Number        string
	PONumber      string
	InvoiceDate   string
	DueDate       string
	Status        string
	ClientName    string
	ClientAddress []string
	ContactName   string
	Items         []documentItem
	Subtotal      string
	Discount      string
	Taxes         []documentTax
	CustomValues  []string
	Amount        string
	Paid          string
	Balance       string
	PublicNotes   string
	Terms         string
	PortalURL     string
	QRCode        template.URL
}

// Renderer produces invoice PDFs from the HTML template.
type Renderer struct {
	conv            Converter
	portalBaseURL   string
	defaultCurrency string
}

// NewRenderer creates a renderer. portalBaseURL is used for the QR code that
// links to the client portal.
func NewRenderer(conv Converter, portalBaseURL, defaultCurrency string) *Renderer {
	return &Renderer{conv: conv, portalBaseURL: portalBaseURL, defaultCurrency: defaultCurrency}
}

// InvoicePDF renders a hydrated invoice or quote.
func (r *Renderer) InvoicePDF(ctx context.Context, inv *repository.Invoice) ([]byte, error) {
	if r.conv == nil {
		return nil, errors.New("pdf converter not configured")
	}

	html, err := r.RenderHTML(inv)
	if err != nil {
		return nil, err
	}

	opts := InvoicePageOpts()
	if footer := strings.TrimSpace(inv.InvoiceFooter); footer != "" {
		opts.FooterHTML, err = renderFooter(footer)
		if err != nil {
			return nil, err
		}
	}

	return r.conv.ConvertHTML(ctx, html, opts)
}

// RenderHTML renders the document HTML without converting it.
func (r *Renderer) RenderHTML(inv *repository.Invoice) ([]byte, error) {
	data, err := r.documentFor(inv)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := documentTemplates.ExecuteTemplate(&buf, "invoice.html", data); err != nil {
		return nil, fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.Bytes(), nil
}

func renderFooter(footer string) ([]byte, error) {
	var buf bytes.Buffer
	if err := documentTemplates.ExecuteTemplate(&buf, "footer.html", footer); err != nil {
		return nil, fmt.Errorf("execute footer template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) documentFor(inv *repository.Invoice) (documentData, error) {
	currency := r.defaultCurrency
	if inv.Client != nil && inv.Client.CurrencyCode != "" {
		currency = inv.Client.CurrencyCode
	}
	money := func(d decimal.Decimal) string { return formatMoney(d, currency) }

	totals := service.CalculateInvoice(inv)

	data := documentData{
		Title:       "Invoice",
		Number:      inv.InvoiceNumber,
		PONumber:    inv.PONumber,
		InvoiceDate: inv.InvoiceDate.Format(dateLayout),
		Status:      inv.Status.String(),
		Subtotal:    money(totals.Subtotal),
		Amount:      money(inv.Amount),
		Paid:        money(inv.Amount.Sub(inv.Balance)),
		Balance:     money(inv.Balance),
		PublicNotes: inv.PublicNotes,
		Terms:       inv.Terms,
	}
	if inv.IsQuote {
		data.Title = "Quote"
	}
	if inv.DueDate != nil {
		data.DueDate = inv.DueDate.Format(dateLayout)
	}
	if totals.DiscountAmount.Sign() > 0 {
		data.Discount = money(totals.DiscountAmount)
	}

	if c := inv.Client; c != nil {
		data.ClientName = c.Name
		data.ClientAddress = nonEmpty(c.Address1, c.Address2, strings.TrimSpace(c.PostalCode+" "+c.City), c.State)
		if contact := c.PrimaryContact(); contact != nil {
			data.ContactName = contact.DisplayName()
		}
	}

	for _, item := range inv.Items {
		data.Items = append(data.Items, documentItem{
			ProductKey: item.ProductKey,
			Notes:      item.Notes,
			Cost:       money(item.Cost),
			Qty:        item.Qty.String(),
			Taxes:      strings.Join(nonEmpty(taxLabel(item.TaxName1, item.TaxRate1), taxLabel(item.TaxName2, item.TaxRate2)), ", "),
			LineTotal:  money(item.Cost.Mul(item.Qty).Round(2)),
		})
	}

	if totals.LineTaxTotal.Sign() > 0 {
		data.Taxes = append(data.Taxes, documentTax{Name: "Line taxes", Amount: money(totals.LineTaxTotal)})
	}
	if totals.InvoiceTax.Sign() > 0 {
		name := strings.Join(nonEmpty(taxLabel(inv.TaxName1, inv.TaxRate1), taxLabel(inv.TaxName2, inv.TaxRate2)), ", ")
		data.Taxes = append(data.Taxes, documentTax{Name: name, Amount: money(totals.InvoiceTax)})
	}
	for _, v := range []decimal.Decimal{inv.CustomValue1, inv.CustomValue2} {
		if !v.IsZero() {
			data.CustomValues = append(data.CustomValues, money(v))
		}
	}

	if len(inv.Invitations) > 0 {
		link := transport.InvitationLink(r.portalBaseURL, inv.Invitations[0].InvitationKey)
		if link != "" {
			png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
			if err != nil {
				return documentData{}, fmt.Errorf("encode portal qr code: %w", err)
			}
			data.PortalURL = link
			data.QRCode = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		}
	}

	return data, nil
}

func taxLabel(name string, rate decimal.Decimal) string {
	if rate.IsZero() {
		return ""
	}
	if name == "" {
		return rate.String() + "%"
	}
	return fmt.Sprintf("%s %s%%", name, rate.String())
}

func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return currency + " " + amount.StringFixed(2)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
