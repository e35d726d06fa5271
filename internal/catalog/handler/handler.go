package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoicing_backend/internal/catalog/service"
	"invoicing_backend/internal/catalog/transport"
	"invoicing_backend/platform/httpkit"
	"invoicing_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// ProductLister is the catalog service operation the handler uses.
type ProductLister interface {
	ListProducts(ctx context.Context, tenantID uuid.UUID, req transport.ListProductsRequest) (transport.ProductListResponse, error)
}

var _ ProductLister = (*service.Service)(nil)

// Handler handles HTTP requests for catalog.
type Handler struct {
	svc ProductLister
	val *validator.Validator
}

// New creates a new catalog handler.
func New(svc ProductLister, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListProducts lists the tenant's products.
// GET /api/v1/products
func (h *Handler) ListProducts(c *gin.Context) {
	var req transport.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
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

	result, err := h.svc.ListProducts(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
