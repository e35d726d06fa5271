// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"invoicing_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoiceSaved is published after an invoice or quote is created or updated.
type InvoiceSaved struct {
	BaseEvent
	InvoiceID uuid.UUID `json:"invoiceId"`
	TenantID  uuid.UUID `json:"tenantId"`
	IsQuote   bool      `json:"isQuote"`
	Created   bool      `json:"created"`
}

func (e InvoiceSaved) EventName() string { return "invoices.invoice.saved" }

// InvoiceDeleted is published after an invoice is soft-deleted.
type InvoiceDeleted struct {
	BaseEvent
	InvoiceID uuid.UUID `json:"invoiceId"`
	TenantID  uuid.UUID `json:"tenantId"`
}

func (e InvoiceDeleted) EventName() string { return "invoices.invoice.deleted" }

// QuoteConverted is published when a quote is cloned into a new invoice.
type QuoteConverted struct {
	BaseEvent
	QuoteID   uuid.UUID `json:"quoteId"`
	InvoiceID uuid.UUID `json:"invoiceId"`
	TenantID  uuid.UUID `json:"tenantId"`
}

func (e QuoteConverted) EventName() string { return "invoices.quote.converted" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentRecorded is published after a payment is stored against an invoice.
type PaymentRecorded struct {
	BaseEvent
	PaymentID uuid.UUID       `json:"paymentId"`
	InvoiceID uuid.UUID       `json:"invoiceId"`
	TenantID  uuid.UUID       `json:"tenantId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (e PaymentRecorded) EventName() string { return "payments.payment.recorded" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record is ready to be delivered.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
