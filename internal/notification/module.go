// Package notification delivers invoice and payment emails, either inline or
// through the notification outbox drained by the scheduler.
package notification

import (
	"invoicing_backend/internal/email"
	"invoicing_backend/internal/events"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/logger"
)

// Config is the configuration the notification module reads.
type Config interface {
	config.PortalConfig
	GetDefaultCurrency() string
}

// Module wires email delivery for the invoices domain.
type Module struct {
	mailer    *Mailer
	queue     *OutboxNotifier  // nil sends inline
	processor *OutboxProcessor // nil when the outbox is not configured
	log       *logger.Logger
}

// New creates a notification module that sends through sender.
func New(sender email.Sender, invitations InvitationSource, cfg Config, log *logger.Logger) *Module {
	return &Module{
		mailer: NewMailer(sender, invitations, cfg.GetAppBaseURL(), cfg.GetDefaultCurrency(), log),
		log:    log,
	}
}

// SetOutbox routes notifications through the outbox. Records are delivered by
// the process that registers handlers for NotificationOutboxDue.
func (m *Module) SetOutbox(store OutboxStore, invoices InvoiceLoader) {
	m.queue = NewOutboxNotifier(store)
	m.processor = NewOutboxProcessor(store, invoices, m.mailer, m.log)
}

// SetPDFSource attaches rendered PDFs to invoice emails.
func (m *Module) SetPDFSource(src PDFSource) {
	m.mailer.SetPDFSource(src)
}

// Notifier returns the notifier the invoices service should use.
func (m *Module) Notifier() Delivery {
	if m.queue != nil {
		return m.queue
	}
	return m.mailer
}

// RegisterHandlers subscribes the outbox processor to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	if m.processor == nil {
		m.log.Debug("notification outbox not configured; no handlers registered")
		return
	}
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m.processor)
	m.log.Info("notification module registered event handlers")
}
