package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"invoicing_backend/platform/config"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (will be base64-encoded for Brevo)
	FileName string // e.g. "Invoice-INV-0042.pdf"
	MIMEType string // e.g. "application/pdf"
}

// InvoiceMessage is an invoice or quote sent to one client contact.
// Amounts and dates arrive formatted for display.
type InvoiceMessage struct {
	ToEmail       string
	ContactName   string
	InvoiceNumber string
	IsQuote       bool
	AmountDue     string
	DueDate       string
	ViewURL       string
	Attachments   []Attachment
}

// PaymentConfirmationMessage confirms a payment to one client contact.
type PaymentConfirmationMessage struct {
	ToEmail       string
	ContactName   string
	InvoiceNumber string
	AmountPaid    string
	Balance       string
	PaymentDate   string
	ViewURL       string
}

type Sender interface {
	SendInvoiceEmail(ctx context.Context, msg InvoiceMessage) error
	SendPaymentConfirmationEmail(ctx context.Context, msg PaymentConfirmationMessage) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

type NoopSender struct{}

func (NoopSender) SendInvoiceEmail(ctx context.Context, msg InvoiceMessage) error {
	return nil
}

func (NoopSender) SendPaymentConfirmationEmail(ctx context.Context, msg PaymentConfirmationMessage) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"` // base64-encoded file content
	Name    string `json:"name"`
}

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// NewSender returns the sender for the configured provider, or a NoopSender
// when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(
			cfg.GetSMTPHost(),
			cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(),
			cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(),
			cfg.GetEmailFromName(),
		), nil
	case "brevo":
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}

// NewBrevoSender creates a sender for the Brevo transactional email API.
func NewBrevoSender(apiKey, fromEmail, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BrevoSender) SendInvoiceEmail(ctx context.Context, msg InvoiceMessage) error {
	subject, content, err := renderInvoiceEmail(msg, b.fromName)
	if err != nil {
		return err
	}
	return b.sendWithAttachments(ctx, msg.ToEmail, subject, content, msg.Attachments...)
}

func (b *BrevoSender) SendPaymentConfirmationEmail(ctx context.Context, msg PaymentConfirmationMessage) error {
	subject, content, err := renderPaymentConfirmationEmail(msg)
	if err != nil {
		return err
	}
	return b.send(ctx, msg.ToEmail, subject, content)
}

func (b *BrevoSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.send(ctx, toEmail, subject, htmlContent)
}

func (b *BrevoSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.sendWithAttachments(ctx, toEmail, subject, htmlContent)
}

func (b *BrevoSender) sendWithAttachments(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	payload := brevoEmailRequest{
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: toEmail}}

	for _, att := range attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
