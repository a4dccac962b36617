package cart

import "testing"

func TestComputeTotals(t *testing.T) {
	lines := []*Line{
		{RowID: "r1", Qty: 2, Amount: 180, BaseAmount: 180, DiscountAmount: 10},
		{RowID: "r2", Qty: 1, Amount: 50, BaseAmount: 50},
		{RowID: "free", IsFree: true, Qty: 1},
		nil,
	}
	got := ComputeTotals(lines, nil)
	if got.NetTotal != 230 || got.BaseNetTotal != 230 {
		t.Fatalf("net = %v/%v, want 230", got.NetTotal, got.BaseNetTotal)
	}
	if got.DiscountTotal != 20 {
		t.Fatalf("discount total = %v, want 20", got.DiscountTotal)
	}
	if got.PaidLineCount != 2 || got.FreeLineCount != 1 {
		t.Fatalf("counts = %d paid / %d free, want 2/1", got.PaidLineCount, got.FreeLineCount)
	}
}

func TestComputeTotalsInvoiceDiscount(t *testing.T) {
	lines := []*Line{{RowID: "r1", Qty: 1, Amount: 100, BaseAmount: 100}}

	got := ComputeTotals(lines, &InvoiceUpdates{DiscountAmount: 30})
	if got.AdditionalDiscount != 30 || got.NetTotal != 70 {
		t.Fatalf("flat invoice discount: %+v", got)
	}

	got = ComputeTotals(lines, &InvoiceUpdates{AdditionalDiscountPercentage: 10})
	if got.AdditionalDiscount != 10 || got.NetTotal != 90 {
		t.Fatalf("percentage invoice discount: %+v", got)
	}

	// A discount larger than the cart clamps instead of going negative.
	got = ComputeTotals(lines, &InvoiceUpdates{DiscountAmount: 500})
	if got.AdditionalDiscount != 100 || got.NetTotal != 0 {
		t.Fatalf("oversized invoice discount must clamp: %+v", got)
	}
}
