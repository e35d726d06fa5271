package pdf

import (
	"context"
	"fmt"
	"time"

	"invoicing_backend/internal/adapters/storage"
	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	contentTypePDF    = "application/pdf"
	metaUpdatedAt     = "updated-at"
	cacheWriteTimeout = 30 * time.Second
)

// Source renders an invoice PDF.
type Source interface {
	InvoicePDF(ctx context.Context, inv *repository.Invoice) ([]byte, error)
}

var (
	_ Source = (*Renderer)(nil)
	_ Source = (*CachedRenderer)(nil)
)

// CachedRenderer keeps rendered PDFs in object storage. A cached copy is only
// served while it was rendered from the invoice's current updated_at.
type CachedRenderer struct {
	next   Source
	store  storage.ObjectStore
	bucket string
	log    *logger.Logger
}

func NewCachedRenderer(next Source, store storage.ObjectStore, bucket string, log *logger.Logger) *CachedRenderer {
	return &CachedRenderer{next: next, store: store, bucket: bucket, log: log}
}

func objectKey(tenantID, invoiceID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.pdf", tenantID, invoiceID)
}

func versionOf(inv *repository.Invoice) string {
	return inv.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// InvoicePDF returns the cached PDF when current, otherwise renders and stores it.
// Storage failures degrade to rendering.
func (c *CachedRenderer) InvoicePDF(ctx context.Context, inv *repository.Invoice) ([]byte, error) {
	key := objectKey(inv.TenantID, inv.ID)
	version := versionOf(inv)

	obj, err := c.store.GetObject(ctx, c.bucket, key)
	switch {
	case err == nil && obj.Metadata[metaUpdatedAt] == version:
		return obj.Data, nil
	case err != nil && !apperr.Is(err, apperr.KindNotFound):
		c.log.Warn("pdf cache read failed", "invoiceId", inv.ID.String(), "error", err)
	}

	data, err := c.next.InvoicePDF(ctx, inv)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := c.store.PutObject(writeCtx, c.bucket, key, contentTypePDF, data, map[string]string{metaUpdatedAt: version}); err != nil {
		c.log.Warn("pdf cache write failed", "invoiceId", inv.ID.String(), "error", err)
	}
	return data, nil
}

// Evict removes the cached PDF of an invoice.
func (c *CachedRenderer) Evict(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return c.store.DeleteObject(ctx, c.bucket, objectKey(tenantID, invoiceID))
}

// RegisterHandlers evicts cached PDFs when an invoice changes.
func (c *CachedRenderer) RegisterHandlers(bus events.Bus) {
	evict := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		tenantID, invoiceID, ok := invoiceRef(event)
		if !ok {
			return nil
		}
		if err := c.Evict(ctx, tenantID, invoiceID); err != nil {
			c.log.Warn("pdf cache eviction failed", "invoiceId", invoiceID.String(), "error", err)
			return err
		}
		return nil
	})

	bus.Subscribe(events.InvoiceSaved{}.EventName(), evict)
	bus.Subscribe(events.InvoiceDeleted{}.EventName(), evict)
	bus.Subscribe(events.PaymentRecorded{}.EventName(), evict)
}

func invoiceRef(event events.Event) (tenantID, invoiceID uuid.UUID, ok bool) {
	switch e := event.(type) {
	case events.InvoiceSaved:
		return e.TenantID, e.InvoiceID, true
	case events.InvoiceDeleted:
		return e.TenantID, e.InvoiceID, true
	case events.PaymentRecorded:
		return e.TenantID, e.InvoiceID, true
	}
	return uuid.Nil, uuid.Nil, false
}
