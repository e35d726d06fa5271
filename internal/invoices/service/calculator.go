package service

import (
	"invoicing_backend/internal/invoices/repository"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the result of CalculateInvoice.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	LineTaxTotal   decimal.Decimal
	InvoiceTax     decimal.Decimal
	Amount         decimal.Decimal
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// computeDiscount returns the discount amount, capped at the subtotal.
func computeDiscount(subtotal, discount decimal.Decimal, isAmount bool) decimal.Decimal {
	if discount.Sign() <= 0 || subtotal.Sign() <= 0 {
		return decimal.Zero
	}
	amount := discount
	if !isAmount {
		amount = subtotal.Mul(discount).Div(hundred)
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return base.Mul(rate).Div(hundred)
}

// CalculateInvoice computes the invoice totals. Line taxes are calculated per
// line and reduced in proportion to the discount. Custom values flagged as
// taxable join the base of the invoice-level taxes; the others are added after tax.
func CalculateInvoice(inv *repository.Invoice) Totals {
	subtotal := decimal.Zero
	lineTax := decimal.Zero
	for _, item := range inv.Items {
		lineTotal := round2(item.Cost.Mul(item.Qty))
		subtotal = subtotal.Add(lineTotal)
		lineTax = lineTax.Add(percentOf(lineTotal, item.TaxRate1)).Add(percentOf(lineTotal, item.TaxRate2))
	}

	discountAmount := round2(computeDiscount(subtotal, inv.Discount, inv.IsAmountDiscount))

	if subtotal.Sign() > 0 && discountAmount.Sign() > 0 {
		lineTax = lineTax.Mul(subtotal.Sub(discountAmount)).Div(subtotal)
	}
	lineTax = round2(lineTax)

	taxable := subtotal.Sub(discountAmount)
	untaxed := decimal.Zero
	if inv.CustomTaxes1 {
		taxable = taxable.Add(inv.CustomValue1)
	} else {
		untaxed = untaxed.Add(inv.CustomValue1)
	}
	if inv.CustomTaxes2 {
		taxable = taxable.Add(inv.CustomValue2)
	} else {
		untaxed = untaxed.Add(inv.CustomValue2)
	}

	invoiceTax := round2(percentOf(taxable, inv.TaxRate1).Add(percentOf(taxable, inv.TaxRate2)))

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		LineTaxTotal:   lineTax,
		InvoiceTax:     invoiceTax,
		Amount:         round2(taxable.Add(lineTax).Add(invoiceTax).Add(untaxed)),
	}
}

// applyTotals recalculates the amount and moves the balance by the same delta,
// so payments already recorded stay applied.
func applyTotals(inv *repository.Invoice) {
	previousAmount := inv.Amount
	paid := previousAmount.Sub(inv.Balance)

	inv.Amount = CalculateInvoice(inv).Amount
	inv.Balance = inv.Amount.Sub(paid)
	if inv.Balance.Sign() < 0 {
		inv.Balance = decimal.Zero
	}
}
