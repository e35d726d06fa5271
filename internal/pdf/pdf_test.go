package pdf

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoicing_backend/internal/adapters/storage"
	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleInvoice() *repository.Invoice {
	due := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	return &repository.Invoice{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		InvoiceNumber: "0007",
		Status:        repository.StatusSent,
		InvoiceDate:   time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
		DueDate:       &due,
		TaxName1:      "VAT",
		TaxRate1:      decimal.NewFromInt(21),
		Amount:        decimal.RequireFromString("121.00"),
		Balance:       decimal.RequireFromString("21.00"),
		InvoiceFooter: "Acme BV - KVK 1234",
		UpdatedAt:     time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC),
		Client: &clientrepo.Client{
			Name:         "Globex <Ltd>",
			City:         "Utrecht",
			CurrencyCode: "EUR",
			Contacts:     []clientrepo.Contact{{FirstName: "Ada", LastName: "Lovelace", IsPrimary: true}},
		},
		Items: []repository.LineItem{
			{ProductKey: "consulting", Notes: "May hours", Cost: decimal.NewFromInt(50), Qty: decimal.NewFromInt(2)},
		},
		Invitations: []repository.Invitation{{InvitationKey: "abc123"}},
	}
}

func TestRenderHTML_IncludesTotalsAndPortalQRCode(t *testing.T) {
	r := NewRenderer(nil, "https://portal.example.com", "USD")

	html, err := r.RenderHTML(sampleInvoice())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		"<h1>Invoice</h1>",
		"0007",
		"14-06-2026",
		"Globex &lt;Ltd&gt;",
		"Attn. Ada Lovelace",
		"EUR 100.00",
		"VAT 21%",
		"EUR 21.00",
		"EUR 121.00",
		"EUR 100.00",
		"https://portal.example.com/view/abc123",
		"data:image/png;base64,",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected rendered html to contain %q", want)
		}
	}
}

func TestRenderHTML_QuoteWithoutInvitationHasNoQRCode(t *testing.T) {
	inv := sampleInvoice()
	inv.IsQuote = true
	inv.Invitations = nil

	html, err := NewRenderer(nil, "https://portal.example.com", "EUR").RenderHTML(inv)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(html), "<h1>Quote</h1>") {
		t.Fatal("expected quote title")
	}
	if strings.Contains(string(html), "data:image/png") {
		t.Fatal("expected no qr code without invitation")
	}
}

func TestGotenbergClient_ConvertHTML(t *testing.T) {
	var gotFiles []string
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != convertHTMLPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("marginTop") != "0.5" {
			t.Errorf("expected margin field, got %q", r.FormValue("marginTop"))
		}
		for _, fh := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fh.Filename)
		}
		_, _ = io.WriteString(w, "%PDF-1.7")
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL, "svc", "secret")
	opts := InvoicePageOpts()
	opts.FooterHTML = []byte("<p>footer</p>")

	pdf, err := client.ConvertHTML(context.Background(), []byte("<p>hi</p>"), opts)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(pdf) != "%PDF-1.7" {
		t.Fatalf("unexpected body %q", pdf)
	}
	if gotUser != "svc" {
		t.Fatalf("expected basic auth user, got %q", gotUser)
	}
	if len(gotFiles) != 2 || gotFiles[0] != "index.html" || gotFiles[1] != "footer.html" {
		t.Fatalf("unexpected files %v", gotFiles)
	}
}

func TestGotenbergClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGotenbergClient(srv.URL, "", "").ConvertHTML(context.Background(), []byte("x"), InvoicePageOpts())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type fakeConverter struct {
	calls  int
	footer string
}

func (f *fakeConverter) ConvertHTML(_ context.Context, _ []byte, opts ConvertOpts) ([]byte, error) {
	f.calls++
	f.footer = string(opts.FooterHTML)
	return []byte("%PDF"), nil
}

func TestRenderer_InvoicePDFSendsFooter(t *testing.T) {
	conv := &fakeConverter{}
	if _, err := NewRenderer(conv, "", "EUR").InvoicePDF(context.Background(), sampleInvoice()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(conv.footer, "Acme BV - KVK 1234") {
		t.Fatalf("expected footer html, got %q", conv.footer)
	}
}

type memoryStore struct {
	objects map[string]storage.Object
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]storage.Object{}}
}

func (m *memoryStore) EnsureBucketExists(context.Context, string) error { return nil }

func (m *memoryStore) PutObject(_ context.Context, bucket, key, contentType string, data []byte, metadata map[string]string) error {
	m.objects[bucket+"/"+key] = storage.Object{Data: data, ContentType: contentType, Metadata: metadata}
	return nil
}

func (m *memoryStore) GetObject(_ context.Context, bucket, key string) (*storage.Object, error) {
	if m.failGet {
		return nil, errors.New("minio unreachable")
	}
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, apperr.NotFound("object not found")
	}
	return &obj, nil
}

func (m *memoryStore) DeleteObject(_ context.Context, bucket, key string) error {
	delete(m.objects, bucket+"/"+key)
	return nil
}

func TestCachedRenderer_ServesCurrentVersionOnly(t *testing.T) {
	conv := &fakeConverter{}
	store := newMemoryStore()
	cached := NewCachedRenderer(NewRenderer(conv, "", "EUR"), store, "invoice-pdfs", logger.Nop())
	inv := sampleInvoice()

	for i := 0; i < 2; i++ {
		if _, err := cached.InvoicePDF(context.Background(), inv); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	if conv.calls != 1 {
		t.Fatalf("expected second call served from cache, got %d renders", conv.calls)
	}

	inv.UpdatedAt = inv.UpdatedAt.Add(time.Minute)
	if _, err := cached.InvoicePDF(context.Background(), inv); err != nil {
		t.Fatalf("render: %v", err)
	}
	if conv.calls != 2 {
		t.Fatalf("expected stale cache to re-render, got %d renders", conv.calls)
	}
}

func TestCachedRenderer_StorageFailureFallsBackToRendering(t *testing.T) {
	conv := &fakeConverter{}
	store := newMemoryStore()
	store.failGet = true
	cached := NewCachedRenderer(NewRenderer(conv, "", "EUR"), store, "invoice-pdfs", logger.Nop())

	data, err := cached.InvoicePDF(context.Background(), sampleInvoice())
	if err != nil || string(data) != "%PDF" {
		t.Fatalf("expected rendered pdf, got %q %v", data, err)
	}
}

func TestCachedRenderer_EvictsOnInvoiceEvents(t *testing.T) {
	store := newMemoryStore()
	cached := NewCachedRenderer(NewRenderer(&fakeConverter{}, "", "EUR"), store, "invoice-pdfs", logger.Nop())
	bus := events.NewInMemoryBus(logger.Nop())
	cached.RegisterHandlers(bus)

	inv := sampleInvoice()
	if _, err := cached.InvoicePDF(context.Background(), inv); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected cached object, got %d", len(store.objects))
	}

	err := bus.PublishSync(context.Background(), events.PaymentRecorded{
		BaseEvent: events.NewBaseEvent(),
		InvoiceID: inv.ID,
		TenantID:  inv.TenantID,
		Amount:    decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatal("expected cached pdf evicted")
	}
}
