package email

const (
	subjectInvoiceFmt             = "Invoice %s from %s"
	subjectQuoteFmt               = "Quote %s from %s"
	subjectPaymentConfirmationFmt = "Payment received for invoice %s"
)
