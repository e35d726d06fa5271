package notification

import (
	"context"
	"fmt"
	"strings"

	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/internal/email"
	invoicerepo "invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"

	msgNoRecipients = "client has no contact with an email address"
)

// InvitationSource loads the portal invitations of an invoice.
type InvitationSource interface {
	GetInvitations(ctx context.Context, invoiceID, tenantID uuid.UUID) ([]invoicerepo.Invitation, error)
}

// PDFSource renders an invoice PDF for attachments.
type PDFSource interface {
	InvoicePDF(ctx context.Context, inv *invoicerepo.Invoice) ([]byte, error)
}

// Mailer delivers invoice and payment emails directly through an email.Sender.
type Mailer struct {
	sender          email.Sender
	invitations     InvitationSource
	pdf             PDFSource // optional, nil sends without attachment
	portalBaseURL   string
	defaultCurrency string
	log             *logger.Logger
}

// NewMailer creates a direct mailer.
func NewMailer(sender email.Sender, invitations InvitationSource, portalBaseURL, defaultCurrency string, log *logger.Logger) *Mailer {
	return &Mailer{
		sender:          sender,
		invitations:     invitations,
		portalBaseURL:   portalBaseURL,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// SetPDFSource enables PDF attachments on invoice emails.
func (m *Mailer) SetPDFSource(src PDFSource) {
	m.pdf = src
}

type recipient struct {
	contact clientrepo.Contact
	viewURL string
}

// SendInvoice emails the invoice to every contact with an invitation.
func (m *Mailer) SendInvoice(ctx context.Context, inv *invoicerepo.Invoice) error {
	recipients, err := m.recipients(ctx, inv)
	if err != nil {
		return err
	}

	var attachments []email.Attachment
	if m.pdf != nil {
		pdfBytes, err := m.pdf.InvoicePDF(ctx, inv)
		if err != nil {
			m.log.Warn("invoice pdf attachment skipped", "invoiceId", inv.ID.String(), "error", err)
		} else {
			attachments = append(attachments, email.Attachment{
				Content:  pdfBytes,
				FileName: attachmentName(inv),
				MIMEType: "application/pdf",
			})
		}
	}

	currency := m.currencyFor(inv)
	var dueDate string
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format(dateLayout)
	}

	for _, r := range recipients {
		err := m.sender.SendInvoiceEmail(ctx, email.InvoiceMessage{
			ToEmail:       r.contact.Email,
			ContactName:   r.contact.DisplayName(),
			InvoiceNumber: inv.InvoiceNumber,
			IsQuote:       inv.IsQuote,
			AmountDue:     formatMoney(inv.Balance, currency),
			DueDate:       dueDate,
			ViewURL:       r.viewURL,
			Attachments:   attachments,
		})
		if err != nil {
			return fmt.Errorf("send invoice email to contact %s: %w", r.contact.ID, err)
		}
	}

	m.log.NotificationSent(kindFor(inv), inv.ID.String(), len(recipients))
	return nil
}

// SendPaymentConfirmation emails a payment receipt to every invited contact.
func (m *Mailer) SendPaymentConfirmation(ctx context.Context, inv *invoicerepo.Invoice, payment *paymentrepo.Payment) error {
	recipients, err := m.recipients(ctx, inv)
	if err != nil {
		return err
	}

	currency := m.currencyFor(inv)

	for _, r := range recipients {
		err := m.sender.SendPaymentConfirmationEmail(ctx, email.PaymentConfirmationMessage{
			ToEmail:       r.contact.Email,
			ContactName:   r.contact.DisplayName(),
			InvoiceNumber: inv.InvoiceNumber,
			AmountPaid:    formatMoney(payment.Amount, currency),
			Balance:       formatMoney(inv.Balance, currency),
			PaymentDate:   payment.PaymentDate.Format(dateLayout),
			ViewURL:       r.viewURL,
		})
		if err != nil {
			return fmt.Errorf("send payment confirmation to contact %s: %w", r.contact.ID, err)
		}
	}

	m.log.NotificationSent("payment_confirmation", inv.ID.String(), len(recipients))
	return nil
}

// recipients pairs each invitation with its contact. Invitations are loaded
// when the invoice was not hydrated with them.
func (m *Mailer) recipients(ctx context.Context, inv *invoicerepo.Invoice) ([]recipient, error) {
	if inv.Client == nil {
		return nil, apperr.Validation("invoice has no client loaded")
	}

	invitations := inv.Invitations
	if len(invitations) == 0 && m.invitations != nil {
		loaded, err := m.invitations.GetInvitations(ctx, inv.ID, inv.TenantID)
		if err != nil {
			return nil, err
		}
		invitations = loaded
	}

	contacts := make(map[uuid.UUID]clientrepo.Contact, len(inv.Client.Contacts))
	for _, c := range inv.Client.Contacts {
		contacts[c.ID] = c
	}

	var out []recipient
	for _, invitation := range invitations {
		c, ok := contacts[invitation.ContactID]
		if !ok || strings.TrimSpace(c.Email) == "" {
			continue
		}
		out = append(out, recipient{
			contact: c,
			viewURL: transport.InvitationLink(m.portalBaseURL, invitation.InvitationKey),
		})
	}

	if len(out) == 0 {
		return nil, apperr.Validation(msgNoRecipients)
	}
	return out, nil
}

func (m *Mailer) currencyFor(inv *invoicerepo.Invoice) string {
	if inv.Client != nil && inv.Client.CurrencyCode != "" {
		return inv.Client.CurrencyCode
	}
	return m.defaultCurrency
}

func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return currency + " " + amount.StringFixed(2)
}

func kindFor(inv *invoicerepo.Invoice) string {
	if inv.IsQuote {
		return "quote"
	}
	return "invoice"
}

func attachmentName(inv *invoicerepo.Invoice) string {
	if inv.IsQuote {
		return fmt.Sprintf("Quote-%s.pdf", inv.InvoiceNumber)
	}
	return fmt.Sprintf("Invoice-%s.pdf", inv.InvoiceNumber)
}
