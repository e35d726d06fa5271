package service

import (
	"context"
	"encoding/json"
	"testing"

	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/transport"
	"invoicing_backend/platform/apperr"

	"github.com/google/uuid"
)

func decodeUpdate(t *testing.T, body string) *transport.UpdatePayload {
	t.Helper()
	var p transport.UpdatePayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return &p
}

func createQuote(t *testing.T, h *harness) *repository.Invoice {
	t.Helper()
	result, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{
		"email": "a@x.com", "is_quote": true, "terms": "Valid 30 days",
		"invoice_items": [{"product_key": "WIDGET", "qty": 3}, {"notes": "Install", "cost": 50}]
	}`))
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return result.Invoice
}

func TestApply_ConvertClonesQuote(t *testing.T) {
	h := newHarness()
	quote := createQuote(t, h)
	before := copyInvoice(h.invoices.stored[quote.ID])

	result, err := h.svc.Apply(context.Background(), h.tenantID, quote.ID, decodeUpdate(t, `{"action":"convert"}`))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	inv := result.Invoice
	if inv.ID == quote.ID {
		t.Fatal("expected a new invoice, not the quote")
	}
	if inv.IsQuote || inv.QuoteID == nil || *inv.QuoteID != quote.ID {
		t.Fatalf("expected invoice linked to quote, got is_quote=%v quote_id=%v", inv.IsQuote, inv.QuoteID)
	}
	if inv.Status != repository.StatusDraft || inv.InvoiceNumber == quote.InvoiceNumber {
		t.Fatalf("expected fresh draft with its own number, got %v %s", inv.Status, inv.InvoiceNumber)
	}
	if len(inv.Items) != 2 || inv.Items[0].ID == quote.Items[0].ID || inv.Items[0].InvoiceID != inv.ID {
		t.Fatalf("expected copied items with new ids, got %+v", inv.Items)
	}
	if inv.Terms != "Valid 30 days" || !inv.Amount.Equal(quote.Amount) {
		t.Fatalf("expected quote fields carried over, got %+v", inv)
	}

	after := h.invoices.stored[quote.ID]
	if !after.IsQuote || after.InvoiceNumber != before.InvoiceNumber || after.Status != before.Status ||
		len(after.Items) != len(before.Items) || after.Items[0].ID != before.Items[0].ID {
		t.Fatal("expected the quote to be left untouched")
	}

	names := h.bus.names()
	if names[len(names)-2] != "invoices.quote.converted" {
		t.Fatalf("expected quote.converted event, got %v", names)
	}
}

func TestApply_ConvertRejectsNonQuote(t *testing.T) {
	h := newHarness()
	created, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{"email":"a@x.com","cost":1}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = h.svc.Apply(context.Background(), h.tenantID, created.Invoice.ID, decodeUpdate(t, `{"action":"convert"}`))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApply_ConvertUnknownQuote(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Apply(context.Background(), h.tenantID, uuid.New(), decodeUpdate(t, `{"action":"convert"}`))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApply_NamedActionSkipsNormalization(t *testing.T) {
	h := newHarness()
	created, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{"email":"a@x.com","cost":1,"terms":"kept"}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Invoice.ID

	result, err := h.svc.Apply(context.Background(), h.tenantID, id, decodeUpdate(t, `{"action":"archive","terms":"ignored"}`))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if result.Invoice.ArchivedAt == nil || result.Invoice.Terms != "kept" {
		t.Fatalf("expected archived invoice with unchanged fields, got %+v", result.Invoice)
	}

	if _, err := h.svc.Apply(context.Background(), h.tenantID, id, decodeUpdate(t, `{"action":"restore"}`)); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if h.invoices.stored[id].ArchivedAt != nil {
		t.Fatal("expected restore to clear archived_at")
	}

	_, err = h.svc.Apply(context.Background(), h.tenantID, id, decodeUpdate(t, `{"action":"explode"}`))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for unknown action, got %v", err)
	}
}

func TestApply_NoActionUpdates(t *testing.T) {
	h := newHarness()
	created, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{"email":"a@x.com","cost":1}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := h.svc.Apply(context.Background(), h.tenantID, created.Invoice.ID, decodeUpdate(t, `{"po_number":"PO-9"}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.Invoice.PONumber != "PO-9" {
		t.Fatalf("expected po_number updated, got %q", result.Invoice.PONumber)
	}
}

func TestDelete_SoftDeletesAndStaysReadable(t *testing.T) {
	h := newHarness()
	created, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{"email":"a@x.com","cost":1}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := h.svc.Delete(context.Background(), h.tenantID, created.Invoice.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted.IsDeleted() {
		t.Fatal("expected invoice marked deleted")
	}

	got, err := h.svc.Get(context.Background(), h.tenantID, created.Invoice.ID)
	if err != nil || !got.IsDeleted() {
		t.Fatalf("expected deleted invoice to stay readable, got %v", err)
	}

	list, err := h.svc.List(context.Background(), h.tenantID, transport.ListInvoicesRequest{PageSize: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 || list.Items[0].Client == nil {
		t.Fatalf("expected deleted invoice listed with its client, got %+v", list)
	}
}

func TestSendEmail_MarksSentAndRequiresNotifier(t *testing.T) {
	h := newHarness()
	created, err := h.svc.Create(context.Background(), h.tenantID, decodePayload(t, `{"email":"a@x.com","cost":1}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := h.svc.SendEmail(context.Background(), h.tenantID, created.Invoice.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if h.notifier.invoices != 1 || h.invoices.stored[created.Invoice.ID].Status != repository.StatusSent {
		t.Fatal("expected one invoice email and sent status")
	}

	h.svc.SetNotifier(nil)
	err = h.svc.SendEmail(context.Background(), h.tenantID, created.Invoice.ID)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable without notifier, got %v", err)
	}
}
