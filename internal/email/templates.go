package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type invoiceEmailData struct {
	baseEmailData
	ContactName    string
	SenderName     string
	DocumentLabel  string
	InvoiceNumber  string
	AmountDue      string
	DueDate        string
	HasAttachments bool
}

type paymentConfirmationEmailData struct {
	baseEmailData
	ContactName   string
	InvoiceNumber string
	AmountPaid    string
	Balance       string
	PaymentDate   string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderInvoiceEmail(msg InvoiceMessage, senderName string) (subject, content string, err error) {
	label, subjectFmt := "invoice", subjectInvoiceFmt
	if msg.IsQuote {
		label, subjectFmt = "quote", subjectQuoteFmt
	}
	subject = fmt.Sprintf(subjectFmt, msg.InvoiceNumber, senderName)

	content, err = renderEmailTemplate("invoice.html", invoiceEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  fmt.Sprintf("Your %s %s", label, msg.InvoiceNumber),
			CTALabel: "View " + label,
			CTAURL:   msg.ViewURL,
		},
		ContactName:    msg.ContactName,
		SenderName:     senderName,
		DocumentLabel:  label,
		InvoiceNumber:  msg.InvoiceNumber,
		AmountDue:      msg.AmountDue,
		DueDate:        msg.DueDate,
		HasAttachments: len(msg.Attachments) > 0,
	})
	return subject, content, err
}

func renderPaymentConfirmationEmail(msg PaymentConfirmationMessage) (subject, content string, err error) {
	subject = fmt.Sprintf(subjectPaymentConfirmationFmt, msg.InvoiceNumber)
	content, err = renderEmailTemplate("payment_confirmation.html", paymentConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  "Thank you for your payment",
			CTALabel: "View invoice",
			CTAURL:   msg.ViewURL,
		},
		ContactName:   msg.ContactName,
		InvoiceNumber: msg.InvoiceNumber,
		AmountPaid:    msg.AmountPaid,
		Balance:       msg.Balance,
		PaymentDate:   msg.PaymentDate,
	})
	return subject, content, err
}
