package service

import (
	"testing"

	"invoicing_backend/internal/invoices/repository"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateInvoice_LineTaxesAndPercentDiscount(t *testing.T) {
	inv := &repository.Invoice{
		Discount: dec("10"),
		Items: []repository.LineItem{
			{Cost: dec("100"), Qty: dec("1"), TaxRate1: dec("21")},
			{Cost: dec("50"), Qty: dec("2")},
		},
	}

	totals := CalculateInvoice(inv)

	if !totals.Subtotal.Equal(dec("200")) {
		t.Fatalf("expected subtotal 200, got %s", totals.Subtotal)
	}
	if !totals.DiscountAmount.Equal(dec("20")) {
		t.Fatalf("expected discount 20, got %s", totals.DiscountAmount)
	}
	// 21 tax on the first line, reduced by the 10% discount.
	if !totals.LineTaxTotal.Equal(dec("18.9")) {
		t.Fatalf("expected line tax 18.90, got %s", totals.LineTaxTotal)
	}
	if !totals.Amount.Equal(dec("198.9")) {
		t.Fatalf("expected amount 198.90, got %s", totals.Amount)
	}
}

func TestCalculateInvoice_AmountDiscountCappedAtSubtotal(t *testing.T) {
	inv := &repository.Invoice{
		Discount:         dec("500"),
		IsAmountDiscount: true,
		Items:            []repository.LineItem{{Cost: dec("40"), Qty: dec("1")}},
	}

	totals := CalculateInvoice(inv)

	if !totals.DiscountAmount.Equal(dec("40")) || !totals.Amount.IsZero() {
		t.Fatalf("expected discount capped at 40 and zero amount, got %s / %s", totals.DiscountAmount, totals.Amount)
	}
}

func TestCalculateInvoice_InvoiceTaxAndCustomValues(t *testing.T) {
	inv := &repository.Invoice{
		TaxRate1:     dec("10"),
		CustomValue1: dec("20"),
		CustomTaxes1: true,
		CustomValue2: dec("5"),
		Items:        []repository.LineItem{{Cost: dec("9.99"), Qty: dec("2")}},
	}

	totals := CalculateInvoice(inv)

	// taxable = 19.98 + 20 = 39.98, tax 4.00, plus untaxed 5
	if !totals.InvoiceTax.Equal(dec("4")) {
		t.Fatalf("expected invoice tax 4.00, got %s", totals.InvoiceTax)
	}
	if !totals.Amount.Equal(dec("48.98")) {
		t.Fatalf("expected amount 48.98, got %s", totals.Amount)
	}
}

func TestApplyTotals_KeepsRecordedPayments(t *testing.T) {
	inv := &repository.Invoice{
		Amount:  dec("100"),
		Balance: dec("60"),
		Items:   []repository.LineItem{{Cost: dec("150"), Qty: dec("1")}},
	}

	applyTotals(inv)

	if !inv.Amount.Equal(dec("150")) || !inv.Balance.Equal(dec("110")) {
		t.Fatalf("expected amount 150 balance 110, got %s / %s", inv.Amount, inv.Balance)
	}
}
