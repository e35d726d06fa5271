package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invoicing_backend/internal/events"
	invoicerepo "invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/notification/outbox"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	outboxKindEmail             = "email"
	templateInvoiceEmail        = "invoice_email"
	templatePaymentConfirmation = "payment_confirmation"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// OutboxStore is the notification outbox persistence.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// InvoiceLoader loads a hydrated invoice for delivery.
type InvoiceLoader interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*invoicerepo.Invoice, error)
}

// Delivery sends the emails an outbox record describes.
type Delivery interface {
	SendInvoice(ctx context.Context, inv *invoicerepo.Invoice) error
	SendPaymentConfirmation(ctx context.Context, inv *invoicerepo.Invoice, payment *paymentrepo.Payment) error
}

var _ OutboxStore = (*outbox.Repository)(nil)

type invoiceEmailPayload struct {
	InvoiceID string `json:"invoiceId"`
}

type paymentConfirmationPayload struct {
	InvoiceID   string          `json:"invoiceId"`
	PaymentID   string          `json:"paymentId"`
	ClientID    string          `json:"clientId"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"`
}

// OutboxNotifier queues notifications for the scheduler instead of sending them
// inline. It satisfies the same contract as Mailer.
type OutboxNotifier struct {
	store OutboxStore
	now   func() time.Time
}

// NewOutboxNotifier creates a notifier that writes to the outbox.
func NewOutboxNotifier(store OutboxStore) *OutboxNotifier {
	return &OutboxNotifier{store: store, now: time.Now}
}

// SendInvoice queues an invoice email.
func (n *OutboxNotifier) SendInvoice(ctx context.Context, inv *invoicerepo.Invoice) error {
	_, err := n.store.Insert(ctx, outbox.InsertParams{
		TenantID: inv.TenantID,
		Kind:     outboxKindEmail,
		Template: templateInvoiceEmail,
		Payload:  invoiceEmailPayload{InvoiceID: inv.ID.String()},
		RunAt:    n.now().UTC(),
	})
	return err
}

// SendPaymentConfirmation queues a payment confirmation email.
func (n *OutboxNotifier) SendPaymentConfirmation(ctx context.Context, inv *invoicerepo.Invoice, payment *paymentrepo.Payment) error {
	_, err := n.store.Insert(ctx, outbox.InsertParams{
		TenantID: inv.TenantID,
		Kind:     outboxKindEmail,
		Template: templatePaymentConfirmation,
		Payload: paymentConfirmationPayload{
			InvoiceID:   inv.ID.String(),
			PaymentID:   payment.ID.String(),
			ClientID:    payment.ClientID.String(),
			Amount:      payment.Amount,
			PaymentDate: payment.PaymentDate,
		},
		RunAt: n.now().UTC(),
	})
	return err
}

// OutboxProcessor delivers outbox records when the scheduler reports them due.
type OutboxProcessor struct {
	store    OutboxStore
	invoices InvoiceLoader
	delivery Delivery
	log      *logger.Logger
	now      func() time.Time
}

// NewOutboxProcessor creates the processor for NotificationOutboxDue events.
func NewOutboxProcessor(store OutboxStore, invoices InvoiceLoader, delivery Delivery, log *logger.Logger) *OutboxProcessor {
	return &OutboxProcessor{
		store:    store,
		invoices: invoices,
		delivery: delivery,
		log:      log,
		now:      time.Now,
	}
}

// Handle implements events.Handler.
func (p *OutboxProcessor) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.NotificationOutboxDue)
	if !ok {
		return nil
	}
	return p.process(ctx, e)
}

func (p *OutboxProcessor) process(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, err := p.store.GetByID(ctx, e.OutboxID)
	if err != nil {
		p.log.Error("failed to load outbox record", "outboxId", e.OutboxID, "error", err)
		return err
	}
	if rec.Status == outbox.StatusSucceeded {
		p.log.Debug("outbox record already succeeded; skipping", "outboxId", rec.ID.String())
		return nil
	}
	if err := p.store.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if rec.Kind != outboxKindEmail {
		p.markUnsupported(ctx, rec)
		return nil
	}

	var deliverErr error
	switch rec.Template {
	case templateInvoiceEmail:
		deliverErr = p.deliverInvoice(ctx, rec)
	case templatePaymentConfirmation:
		deliverErr = p.deliverPaymentConfirmation(ctx, rec)
	default:
		p.markUnsupported(ctx, rec)
		return nil
	}

	var invalid invalidPayloadError
	switch {
	case errors.As(deliverErr, &invalid):
		_ = p.store.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+invalid.Error())
		return nil
	case apperr.Is(deliverErr, apperr.KindNotFound), apperr.Is(deliverErr, apperr.KindValidation):
		// Deleted invoices and clients without email are permanent failures.
		_ = p.store.MarkFailed(ctx, rec.ID, deliverErr.Error())
		p.log.Warn("notification outbox record dropped", "outboxId", rec.ID.String(), "error", deliverErr)
		return nil
	case deliverErr != nil:
		p.handleDeliveryError(ctx, rec, deliverErr)
		return deliverErr
	}

	_ = p.store.MarkSucceeded(ctx, rec.ID)
	p.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

type invalidPayloadError struct{ err error }

func (e invalidPayloadError) Error() string { return e.err.Error() }

func (p *OutboxProcessor) deliverInvoice(ctx context.Context, rec outbox.Record) error {
	var payload invoiceEmailPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return invalidPayloadError{err}
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return invalidPayloadError{err}
	}

	inv, err := p.invoices.Get(ctx, rec.TenantID, invoiceID)
	if err != nil {
		return err
	}
	return p.delivery.SendInvoice(ctx, inv)
}

func (p *OutboxProcessor) deliverPaymentConfirmation(ctx context.Context, rec outbox.Record) error {
	var payload paymentConfirmationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return invalidPayloadError{err}
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return invalidPayloadError{err}
	}
	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		return invalidPayloadError{err}
	}
	clientID, _ := uuid.Parse(payload.ClientID)

	inv, err := p.invoices.Get(ctx, rec.TenantID, invoiceID)
	if err != nil {
		return err
	}
	return p.delivery.SendPaymentConfirmation(ctx, inv, &paymentrepo.Payment{
		ID:          paymentID,
		TenantID:    rec.TenantID,
		InvoiceID:   invoiceID,
		ClientID:    clientID,
		Amount:      payload.Amount,
		PaymentDate: payload.PaymentDate,
	})
}

func (p *OutboxProcessor) markUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox record %s/%s", rec.Kind, rec.Template)
	_ = p.store.MarkFailed(ctx, rec.ID, msg)
	p.log.Warn("notification outbox record unsupported", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

func (p *OutboxProcessor) handleDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = p.store.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		p.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := p.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := p.store.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = p.store.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		p.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	p.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}
