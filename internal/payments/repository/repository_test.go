package repository

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyPayment(t *testing.T) {
	cases := []struct {
		balance, amount, remaining string
		status                     int
	}{
		{"100", "50", "50", statusPartial},
		{"100", "100", "0", statusPaid},
		{"100", "120", "0", statusPaid},
		{"19.98", "0.01", "19.97", statusPartial},
	}
	for _, tc := range cases {
		remaining, status := ApplyPayment(decimal.RequireFromString(tc.balance), decimal.RequireFromString(tc.amount))
		if !remaining.Equal(decimal.RequireFromString(tc.remaining)) || status != tc.status {
			t.Fatalf("ApplyPayment(%s, %s) = %s/%d, want %s/%d",
				tc.balance, tc.amount, remaining, status, tc.remaining, tc.status)
		}
	}
}
