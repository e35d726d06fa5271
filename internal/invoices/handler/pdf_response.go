package handler

import (
	"fmt"
	"net/http"

	"invoicing_backend/internal/invoices/repository"

	"github.com/gin-gonic/gin"
)

const contentTypePDF = "application/pdf"

func servePDFBytes(c *gin.Context, inv *repository.Invoice, pdfBytes []byte) {
	setPDFHeaders(c, pdfFileName(inv))
	c.Data(http.StatusOK, contentTypePDF, pdfBytes)
}

func setPDFHeaders(c *gin.Context, fileName string) {
	c.Header("Content-Type", contentTypePDF)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
}

func pdfFileName(inv *repository.Invoice) string {
	kind := "Invoice"
	if inv.IsQuote {
		kind = "Quote"
	}
	return fmt.Sprintf("%s-%s.pdf", kind, inv.InvoiceNumber)
}
