package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/internal/email"
	"invoicing_backend/internal/events"
	invoicerepo "invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/notification/outbox"
	paymentrepo "invoicing_backend/internal/payments/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string      { return "https://app.example.com" }
func (testNotificationConfig) GetDefaultCurrency() string { return "EUR" }

type testSender struct {
	invoices []email.InvoiceMessage
	payments []email.PaymentConfirmationMessage
	err      error
}

func (s *testSender) SendInvoiceEmail(_ context.Context, msg email.InvoiceMessage) error {
	s.invoices = append(s.invoices, msg)
	return s.err
}

func (s *testSender) SendPaymentConfirmationEmail(_ context.Context, msg email.PaymentConfirmationMessage) error {
	s.payments = append(s.payments, msg)
	return s.err
}

func (s *testSender) SendCustomEmail(context.Context, string, string, string) error { return s.err }

type testInvitations struct {
	invitations []invoicerepo.Invitation
	calls       int
}

func (t *testInvitations) GetInvitations(context.Context, uuid.UUID, uuid.UUID) ([]invoicerepo.Invitation, error) {
	t.calls++
	return t.invitations, nil
}

type testPDF struct{}

func (testPDF) InvoicePDF(context.Context, *invoicerepo.Invoice) ([]byte, error) {
	return []byte("%PDF"), nil
}

func testInvoice() *invoicerepo.Invoice {
	contactID := uuid.New()
	silentID := uuid.New()
	invoiceID := uuid.New()
	return &invoicerepo.Invoice{
		ID:            invoiceID,
		TenantID:      uuid.New(),
		InvoiceNumber: "INV-0009",
		Amount:        decimal.RequireFromString("121.00"),
		Balance:       decimal.RequireFromString("121.00"),
		Client: &clientrepo.Client{
			Contacts: []clientrepo.Contact{
				{ID: contactID, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IsPrimary: true},
				{ID: silentID, FirstName: "No", LastName: "Mail"},
			},
		},
		Invitations: []invoicerepo.Invitation{
			{ID: uuid.New(), InvoiceID: invoiceID, ContactID: contactID, InvitationKey: "key-ada"},
			{ID: uuid.New(), InvoiceID: invoiceID, ContactID: silentID, InvitationKey: "key-silent"},
		},
	}
}

func TestMailer_SendInvoiceEmailsInvitedContacts(t *testing.T) {
	sender := &testSender{}
	mailer := NewMailer(sender, nil, "https://app.example.com", "EUR", logger.Nop())
	mailer.SetPDFSource(testPDF{})

	if err := mailer.SendInvoice(context.Background(), testInvoice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.invoices) != 1 {
		t.Fatalf("expected one email (contact without address skipped), got %d", len(sender.invoices))
	}
	msg := sender.invoices[0]
	if msg.ToEmail != "ada@example.com" || msg.ContactName != "Ada Lovelace" {
		t.Fatalf("unexpected recipient %+v", msg)
	}
	if msg.AmountDue != "EUR 121.00" {
		t.Fatalf("unexpected amount %q", msg.AmountDue)
	}
	if msg.ViewURL != "https://app.example.com/view/key-ada" {
		t.Fatalf("unexpected view url %q", msg.ViewURL)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].FileName != "Invoice-INV-0009.pdf" {
		t.Fatalf("expected pdf attachment, got %+v", msg.Attachments)
	}
}

func TestMailer_LoadsInvitationsWhenNotHydrated(t *testing.T) {
	inv := testInvoice()
	source := &testInvitations{invitations: inv.Invitations}
	inv.Invitations = nil

	sender := &testSender{}
	mailer := NewMailer(sender, source, "", "EUR", logger.Nop())
	if err := mailer.SendInvoice(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 1 || len(sender.invoices) != 1 {
		t.Fatalf("expected invitations to be loaded once, calls=%d emails=%d", source.calls, len(sender.invoices))
	}
	if sender.invoices[0].ViewURL != "" {
		t.Fatal("expected no link without a portal base url")
	}
}

func TestMailer_NoRecipientsIsValidationError(t *testing.T) {
	inv := testInvoice()
	inv.Invitations = inv.Invitations[1:]

	err := NewMailer(&testSender{}, nil, "", "EUR", logger.Nop()).SendInvoice(context.Background(), inv)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMailer_PaymentConfirmationUsesClientCurrency(t *testing.T) {
	inv := testInvoice()
	inv.Client.CurrencyCode = "USD"
	inv.Balance = decimal.RequireFromString("71.00")

	sender := &testSender{}
	mailer := NewMailer(sender, nil, "", "EUR", logger.Nop())
	payment := &paymentrepo.Payment{Amount: decimal.NewFromInt(50), PaymentDate: time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)}
	if err := mailer.SendPaymentConfirmation(context.Background(), inv, payment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := sender.payments[0]
	if msg.AmountPaid != "USD 50.00" || msg.Balance != "USD 71.00" || msg.PaymentDate != "2026-05-14" {
		t.Fatalf("unexpected confirmation %+v", msg)
	}
}

type memoryOutbox struct {
	records   map[uuid.UUID]*outbox.Record
	failed    map[uuid.UUID]string
	retries   map[uuid.UUID]time.Time
	succeeded map[uuid.UUID]bool
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{
		records:   map[uuid.UUID]*outbox.Record{},
		failed:    map[uuid.UUID]string{},
		retries:   map[uuid.UUID]time.Time{},
		succeeded: map[uuid.UUID]bool{},
	}
}

func (m *memoryOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	data, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	m.records[id] = &outbox.Record{ID: id, TenantID: p.TenantID, Kind: p.Kind, Template: p.Template, Payload: data, RunAt: p.RunAt, Status: outbox.StatusPending}
	return id, nil
}

func (m *memoryOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return outbox.Record{}, apperr.NotFound("outbox record not found")
	}
	return *rec, nil
}

func (m *memoryOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	m.records[id].Status = outbox.StatusProcessing
	m.records[id].Attempts++
	return nil
}

func (m *memoryOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	m.records[id].Status = outbox.StatusSucceeded
	m.succeeded[id] = true
	return nil
}

func (m *memoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	m.records[id].Status = outbox.StatusFailed
	m.failed[id] = lastError
	return nil
}

func (m *memoryOutbox) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, _ string) error {
	m.records[id].Status = outbox.StatusPending
	m.retries[id] = runAt
	return nil
}

type testLoader struct {
	inv *invoicerepo.Invoice
	err error
}

func (l testLoader) Get(context.Context, uuid.UUID, uuid.UUID) (*invoicerepo.Invoice, error) {
	return l.inv, l.err
}

func onlyID(t *testing.T, store *memoryOutbox) uuid.UUID {
	t.Helper()
	if len(store.records) != 1 {
		t.Fatalf("expected one outbox record, got %d", len(store.records))
	}
	for id := range store.records {
		return id
	}
	return uuid.Nil
}

func TestOutbox_QueuedInvoiceIsDeliveredWhenDue(t *testing.T) {
	store := newMemoryOutbox()
	inv := testInvoice()
	sender := &testSender{}

	module := New(sender, nil, testNotificationConfig{}, logger.Nop())
	module.SetOutbox(store, testLoader{inv: inv})

	if err := module.Notifier().SendInvoice(context.Background(), inv); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(sender.invoices) != 0 {
		t.Fatal("queued notifier must not send inline")
	}

	id := onlyID(t, store)
	bus := events.NewInMemoryBus(logger.Nop())
	module.RegisterHandlers(bus)
	err := bus.PublishSync(context.Background(), events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id, TenantID: inv.TenantID})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if !store.succeeded[id] || len(sender.invoices) != 1 {
		t.Fatalf("expected delivery and success mark, succeeded=%v emails=%d", store.succeeded[id], len(sender.invoices))
	}
}

func TestOutbox_TransientFailureSchedulesRetry(t *testing.T) {
	store := newMemoryOutbox()
	inv := testInvoice()
	sender := &testSender{err: errors.New("smtp unavailable")}
	processor := NewOutboxProcessor(store, testLoader{inv: inv}, NewMailer(sender, nil, "", "EUR", logger.Nop()), logger.Nop())
	now := time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)
	processor.now = func() time.Time { return now }

	payment := &paymentrepo.Payment{ID: uuid.New(), ClientID: uuid.New(), Amount: decimal.NewFromInt(10), PaymentDate: now}
	if err := NewOutboxNotifier(store).SendPaymentConfirmation(context.Background(), inv, payment); err != nil {
		t.Fatalf("queue: %v", err)
	}
	id := onlyID(t, store)

	err := processor.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id, TenantID: inv.TenantID})
	if err == nil {
		t.Fatal("expected delivery error to be returned")
	}
	if got := store.retries[id]; !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected retry after 1m on first attempt, got %v", got)
	}
	if sender.payments[0].AmountPaid != "EUR 10.00" {
		t.Fatalf("unexpected amount %q", sender.payments[0].AmountPaid)
	}
}

func TestOutbox_PermanentFailuresAreNotRetried(t *testing.T) {
	store := newMemoryOutbox()
	inv := testInvoice()
	if err := NewOutboxNotifier(store).SendInvoice(context.Background(), inv); err != nil {
		t.Fatalf("queue: %v", err)
	}
	id := onlyID(t, store)

	processor := NewOutboxProcessor(store, testLoader{err: apperr.NotFound("invoice not found")}, NewMailer(&testSender{}, nil, "", "EUR", logger.Nop()), logger.Nop())
	if err := processor.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id}); err != nil {
		t.Fatalf("expected permanent failure to be swallowed, got %v", err)
	}
	if _, ok := store.failed[id]; !ok {
		t.Fatal("expected record marked failed")
	}
	if len(store.retries) != 0 {
		t.Fatal("expected no retry for missing invoice")
	}
}

func TestOutbox_InvalidPayloadAndUnsupportedTemplates(t *testing.T) {
	store := newMemoryOutbox()
	tenantID := uuid.New()
	badID := uuid.New()
	store.records[badID] = &outbox.Record{ID: badID, TenantID: tenantID, Kind: "email", Template: templateInvoiceEmail, Payload: json.RawMessage(`{"invoiceId":"nope"}`)}
	smsID := uuid.New()
	store.records[smsID] = &outbox.Record{ID: smsID, TenantID: tenantID, Kind: "sms", Template: "anything", Payload: json.RawMessage(`{}`)}

	processor := NewOutboxProcessor(store, testLoader{}, NewMailer(&testSender{}, nil, "", "EUR", logger.Nop()), logger.Nop())
	for _, id := range []uuid.UUID{badID, smsID} {
		if err := processor.Handle(context.Background(), events.NotificationOutboxDue{OutboxID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !strings.HasPrefix(store.failed[badID], invalidOutboxPayloadPrefix) {
		t.Fatalf("expected invalid payload failure, got %q", store.failed[badID])
	}
	if !strings.Contains(store.failed[smsID], "unsupported") {
		t.Fatalf("expected unsupported failure, got %q", store.failed[smsID])
	}
}

func TestComputeOutboxRetryDelayCaps(t *testing.T) {
	if got := computeOutboxRetryDelay(1); got != time.Minute {
		t.Fatalf("expected 1m, got %v", got)
	}
	if got := computeOutboxRetryDelay(10); got != outboxRetryMaxDelay {
		t.Fatalf("expected cap, got %v", got)
	}
}
