package handler

import (
	clientrepo "invoicing_backend/internal/clients/repository"
	"invoicing_backend/internal/invoices/repository"
	"invoicing_backend/internal/invoices/service"
	"invoicing_backend/internal/invoices/transport"
	paymentrepo "invoicing_backend/internal/payments/repository"
)

func (h *Handler) toSaveResponse(result *service.AssemblyResult) transport.SaveInvoiceResponse {
	resp := transport.SaveInvoiceResponse{
		Invoice:  h.toInvoiceResponse(result.Invoice),
		Payment:  toPaymentResponse(result.Payment),
		Warnings: result.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return resp
}

func (h *Handler) toListResponse(result *repository.ListResult) transport.InvoiceListResponse {
	items := make([]transport.InvoiceResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, h.toInvoiceResponse(&result.Items[i]))
	}
	return transport.InvoiceListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
}

func (h *Handler) toInvoiceResponse(inv *repository.Invoice) transport.InvoiceResponse {
	resp := transport.InvoiceResponse{
		ID:               inv.ID,
		ClientID:         inv.ClientID,
		InvoiceNumber:    inv.InvoiceNumber,
		IsQuote:          inv.IsQuote,
		QuoteID:          inv.QuoteID,
		InvoiceStatusID:  int(inv.Status),
		Status:           inv.Status.String(),
		InvoiceDate:      transport.Date{Time: inv.InvoiceDate},
		Discount:         inv.Discount,
		IsAmountDiscount: inv.IsAmountDiscount,
		Terms:            inv.Terms,
		InvoiceFooter:    inv.InvoiceFooter,
		PublicNotes:      inv.PublicNotes,
		PONumber:         inv.PONumber,
		InvoiceDesignID:  inv.InvoiceDesignID,
		CustomValue1:     inv.CustomValue1,
		CustomValue2:     inv.CustomValue2,
		CustomTaxes1:     inv.CustomTaxes1,
		CustomTaxes2:     inv.CustomTaxes2,
		Partial:          inv.Partial,
		TaxName1:         inv.TaxName1,
		TaxRate1:         inv.TaxRate1,
		TaxName2:         inv.TaxName2,
		TaxRate2:         inv.TaxRate2,
		Amount:           inv.Amount,
		Balance:          inv.Balance,
		IsDeleted:        inv.IsDeleted(),
		ArchivedAt:       inv.ArchivedAt,
		DeletedAt:        inv.DeletedAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
		Client:           toClientResponse(inv.Client),
		InvoiceItems:     make([]transport.LineItemResponse, 0, len(inv.Items)),
		Invitations:      make([]transport.InvitationResponse, 0, len(inv.Invitations)),
	}
	if inv.DueDate != nil {
		resp.DueDate = &transport.Date{Time: *inv.DueDate}
	}

	for _, item := range inv.Items {
		resp.InvoiceItems = append(resp.InvoiceItems, transport.LineItemResponse{
			ID:         item.ID,
			ProductKey: item.ProductKey,
			Notes:      item.Notes,
			Cost:       item.Cost,
			Qty:        item.Qty,
			TaxName1:   item.TaxName1,
			TaxRate1:   item.TaxRate1,
			TaxName2:   item.TaxName2,
			TaxRate2:   item.TaxRate2,
		})
	}

	for _, invitation := range inv.Invitations {
		resp.Invitations = append(resp.Invitations, transport.InvitationResponse{
			ID:            invitation.ID,
			ContactID:     invitation.ContactID,
			InvitationKey: invitation.InvitationKey,
			Link:          transport.InvitationLink(h.portalBase, invitation.InvitationKey),
			SentAt:        invitation.SentAt,
			ViewedAt:      invitation.ViewedAt,
		})
	}
	return resp
}

func toClientResponse(c *clientrepo.Client) *transport.ClientResponse {
	if c == nil {
		return nil
	}
	resp := &transport.ClientResponse{
		ID:           c.ID,
		Name:         c.Name,
		Address1:     c.Address1,
		Address2:     c.Address2,
		City:         c.City,
		State:        c.State,
		PostalCode:   c.PostalCode,
		CurrencyCode: c.CurrencyCode,
		Contacts:     make([]transport.ContactResponse, 0, len(c.Contacts)),
	}
	for _, ct := range c.Contacts {
		resp.Contacts = append(resp.Contacts, transport.ContactResponse{
			ID:        ct.ID,
			FirstName: ct.FirstName,
			LastName:  ct.LastName,
			Email:     ct.Email,
			Phone:     ct.Phone,
			IsPrimary: ct.IsPrimary,
		})
	}
	return resp
}

func toPaymentResponse(p *paymentrepo.Payment) *transport.PaymentResponse {
	if p == nil {
		return nil
	}
	return &transport.PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		ClientID:    p.ClientID,
		Amount:      p.Amount,
		PaymentDate: transport.Date{Time: p.PaymentDate},
	}
}
