package handler

import (
	"context"
	"net/http"

	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/service"
	"invoicing_backend/internal/invoices/transport"
	"invoicing_backend/platform/httpkit"
	"invoicing_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest      = "invalid request"
	msgValidationFailed    = "validation failed"
	msgPDFGenerationFailed = "PDF generation failed"

	resultSuccess = "success"
)

// InvoiceService is the slice of the invoices service the handler calls.
type InvoiceService interface {
	Create(ctx context.Context, tenantID uuid.UUID, p *transport.InvoicePayload) (*service.AssemblyResult, error)
	Apply(ctx context.Context, tenantID, id uuid.UUID, p *transport.UpdatePayload) (*service.AssemblyResult, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*repository.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, req transport.ListInvoicesRequest) (*repository.ListResult, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (*repository.Invoice, error)
	SendEmail(ctx context.Context, tenantID, id uuid.UUID) error
}

// PDFSource renders, or returns a cached rendering of, an invoice PDF.
type PDFSource interface {
	InvoicePDF(ctx context.Context, inv *repository.Invoice) ([]byte, error)
}

var _ InvoiceService = (*service.Service)(nil)

// Handler handles HTTP requests for invoices and quotes
type Handler struct {
	svc        InvoiceService
	val        *validator.Validator
	pdf        PDFSource
	portalBase string
}

// New creates a new invoices handler
func New(svc InvoiceService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SetPDFSource injects the PDF renderer for downloads.
func (h *Handler) SetPDFSource(src PDFSource) {
	h.pdf = src
}

// SetPortalBaseURL sets the base URL used for client portal invitation links.
func (h *Handler) SetPortalBaseURL(baseURL string) {
	h.portalBase = baseURL
}

// RegisterRoutes registers the invoice routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/email", h.Email)
	rg.GET("/:id/download", h.Download)
}

// List handles GET /api/v1/invoices
func (h *Handler) List(c *gin.Context) {
	var req transport.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.toListResponse(result))
}

// Create handles POST /api/v1/invoices
func (h *Handler) Create(c *gin.Context) {
	var req transport.InvoicePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), tenantID, &req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, h.toSaveResponse(result))
}

// GetByID handles GET /api/v1/invoices/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, tenantID, ok := h.pathScope(c)
	if !ok {
		return
	}

	inv, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.toInvoiceResponse(inv))
}

// Update handles PUT /api/v1/invoices/:id. The body either updates fields or
// names an action such as convert, archive or restore.
func (h *Handler) Update(c *gin.Context) {
	id, tenantID, ok := h.pathScope(c)
	if !ok {
		return
	}

	var req transport.UpdatePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Apply(c.Request.Context(), tenantID, id, &req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.toSaveResponse(result))
}

// Delete handles DELETE /api/v1/invoices/:id
func (h *Handler) Delete(c *gin.Context) {
	id, tenantID, ok := h.pathScope(c)
	if !ok {
		return
	}

	inv, err := h.svc.Delete(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.toInvoiceResponse(inv))
}

// Email handles GET /api/v1/invoices/:id/email
func (h *Handler) Email(c *gin.Context) {
	id, tenantID, ok := h.pathScope(c)
	if !ok {
		return
	}

	if err := h.svc.SendEmail(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ResultResponse{Result: resultSuccess})
}

// Download handles GET /api/v1/invoices/:id/download
func (h *Handler) Download(c *gin.Context) {
	if h.pdf == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "PDF downloads are not configured", nil)
		return
	}

	id, tenantID, ok := h.pathScope(c)
	if !ok {
		return
	}

	inv, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	pdfBytes, err := h.pdf.InvoicePDF(c.Request.Context(), inv)
	if err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusInternalServerError, msgPDFGenerationFailed, nil)
		return
	}
	servePDFBytes(c, inv, pdfBytes)
}

func (h *Handler) pathScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, uuid.UUID{}, false
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return id, tenantID, true
}
